package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Postgres SQLSTATE for unique_violation.
const pgUniqueViolationCode = "23505"

// IsUniqueViolation reports whether err is a unique-constraint rejection.
// Detection is structural: the Postgres error code or GORM's translated
// sentinel, with a message fallback for the sqlite driver used in tests.
// Callers treat a violation as the duplicate signal, not as a failure.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolationCode
	}

	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value")
}
