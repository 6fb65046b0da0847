package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// IsUniqueViolation reports whether err is a unique constraint violation. When
// constraintName is provided only that constraint matches.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code != pgUniqueViolation {
			return false
		}
		return constraintName == "" || pgErr.ConstraintName == constraintName
	}
	msg := err.Error()
	// SQLite names the columns rather than the constraint.
	if strings.Contains(msg, "UNIQUE constraint failed") {
		return true
	}
	if constraintName != "" && !strings.Contains(msg, constraintName) {
		return false
	}
	return strings.Contains(msg, "duplicate key value")
}

// IsForeignKeyViolation reports whether err is a foreign key violation.
func IsForeignKeyViolation(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgForeignKeyViolation
	}
	msg := err.Error()
	return strings.Contains(msg, "violates foreign key constraint") || strings.Contains(msg, "FOREIGN KEY constraint failed")
}
