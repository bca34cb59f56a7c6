package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// Postgres class 23 integrity violation, unique constraint.
const uniqueViolationCode = "23505"

// IsUniqueViolation reports whether err is a Postgres unique violation, and
// when constraintName is given, whether that specific constraint fired. Falls
// back to message matching for errors that lost their driver type.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}

	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		return pgxErr.Code == uniqueViolationCode &&
			(constraintName == "" || pgxErr.ConstraintName == constraintName)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == uniqueViolationCode &&
			(constraintName == "" || pqErr.Constraint == constraintName)
	}

	if constraintName != "" {
		return strings.Contains(err.Error(), constraintName)
	}
	return strings.Contains(err.Error(), "duplicate key value")
}
