package config

const (
	EnvPrefix = "TRATO"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "TRATO_DB_DSN"
	EnvDBHost = "TRATO_DB_HOST"
	EnvDBUser = "TRATO_DB_USER"
	EnvDBName = "TRATO_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
