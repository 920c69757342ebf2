package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

const (
	sqlStateSerializationFailure = "40001"
	sqlStateDeadlockDetected     = "40P01"
	sqlStateUniqueViolation      = "23505"
	sqlStateForeignKeyViolation  = "23503"
)

// IsUniqueViolation reports whether the provided error references a Postgres
// unique violation constraint. When constraintName is provided, the helper looks
// for the constraint text in the error message.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}
	if code := sqlState(err); code != "" && code != sqlStateUniqueViolation {
		return false
	}
	if constraintName != "" {
		return chainContains(err, constraintName)
	}
	return chainContains(err, "duplicate key value", "UNIQUE constraint failed")
}

// IsForeignKeyViolation reports whether err was raised by a missing referenced row.
func IsForeignKeyViolation(err error) bool {
	if err == nil {
		return false
	}
	if sqlState(err) == sqlStateForeignKeyViolation {
		return true
	}
	return chainContains(err, "FOREIGN KEY constraint failed")
}

// IsRetryable reports whether a transaction failed because of a serialization
// conflict or deadlock and may succeed if re-run from the start.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	switch sqlState(err) {
	case sqlStateSerializationFailure, sqlStateDeadlockDetected:
		return true
	}
	return chainContains(err, "database is locked", "database table is locked")
}

func sqlState(err error) string {
	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		return pgxErr.Code
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}

// chainContains matches the messages of err and every error it wraps, since
// wrappers may replace the driver text.
func chainContains(err error, needles ...string) bool {
	for ; err != nil; err = errors.Unwrap(err) {
		msg := err.Error()
		for _, needle := range needles {
			if strings.Contains(msg, needle) {
				return true
			}
		}
	}
	return false
}
