package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Catalog      CatalogConfig
	Orders       OrdersConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"TRATO_APP_ENV" required:"true"`
	Port         string `envconfig:"TRATO_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"TRATO_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"TRATO_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"TRATO_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"TRATO_DB_DSN"`
	Driver string `envconfig:"TRATO_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"TRATO_DB_HOST"`
	LegacyPort     int    `envconfig:"TRATO_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"TRATO_DB_USER"`
	LegacyPassword string `envconfig:"TRATO_DB_PASSWORD"`
	LegacyName     string `envconfig:"TRATO_DB_NAME"`
	LegacySSLMode  string `envconfig:"TRATO_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"TRATO_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"TRATO_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"TRATO_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"TRATO_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"TRATO_REDIS_URL" required:"true"`
	Address      string        `envconfig:"TRATO_REDIS_ADDR"`
	Password     string        `envconfig:"TRATO_REDIS_PASSWORD"`
	DB           int           `envconfig:"TRATO_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"TRATO_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"TRATO_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"TRATO_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"TRATO_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"TRATO_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"TRATO_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"TRATO_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"TRATO_JWT_EXPIRATION_MINUTES" required:"true"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"TRATO_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"TRATO_GCP_PROJECT_ID" required:"true"`
}

type PubSubConfig struct {
	DomainTopic        string `envconfig:"TRATO_PUBSUB_DOMAIN_TOPIC" default:"trato-domain-events"`
	DomainSubscription string `envconfig:"TRATO_PUBSUB_DOMAIN_SUBSCRIPTION" required:"true"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"TRATO_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"TRATO_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"TRATO_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type CatalogConfig struct {
	// DailyProductTTL bounds how long a daily listing stays sellable when the
	// seller does not give an explicit expiry.
	DailyProductTTL time.Duration `envconfig:"TRATO_CATALOG_DAILY_TTL" default:"24h"`
}

type OrdersConfig struct {
	// DeliveryFee is the flat fee added to delivery-type orders at checkout.
	DeliveryFee decimal.Decimal `envconfig:"TRATO_ORDERS_DELIVERY_FEE" default:"0"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
