package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

const (
	sqlStateUniqueViolation      = "23505"
	sqlStateSerializationFailure = "40001"
	sqlStateDeadlockDetected     = "40P01"
	sqlStateLockNotAvailable     = "55P03"
)

// SQLState extracts the Postgres error code from either driver, or "".
func SQLState(err error) string {
	if err == nil {
		return ""
	}
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

// IsUniqueViolation reports whether err is a unique constraint violation. When
// constraintName is provided the constraint must match as well.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}
	if SQLState(err) == sqlStateUniqueViolation {
		if constraintName == "" {
			return true
		}
		var pgxErr *pgconn.PgError
		if errors.As(err, &pgxErr) {
			return pgxErr.ConstraintName == constraintName
		}
		var pqErr *pq.Error
		if errors.As(err, &pqErr) {
			return pqErr.Constraint == constraintName
		}
	}
	msg := err.Error()
	if constraintName != "" {
		return strings.Contains(msg, constraintName)
	}
	return strings.Contains(msg, "duplicate key value") || strings.Contains(msg, "UNIQUE constraint failed")
}

// IsTxConflict reports whether err is a concurrency failure that is safe to
// retry from the top: serialization failures, deadlocks, lock timeouts and
// sqlite busy errors.
func IsTxConflict(err error) bool {
	if err == nil {
		return false
	}
	switch SQLState(err) {
	case sqlStateSerializationFailure, sqlStateDeadlockDetected, sqlStateLockNotAvailable:
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "SQLITE_BUSY")
}
