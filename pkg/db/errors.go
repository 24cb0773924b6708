package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

const pgUniqueViolation = "23505"

// IsUniqueViolation reports whether err is a unique constraint violation. When
// constraintName is provided the constraint must match as well.
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
	if !strings.Contains(msg, "duplicate key value") && !strings.Contains(msg, "UNIQUE constraint failed") {
		return false
	}
	if constraintName == "" || strings.Contains(msg, constraintName) {
		return true
	}
	return sqliteColumnMatch(msg, constraintName)
}

// sqliteColumnMatch maps a postgres-style "<table>_<column>_key" name onto
// sqlite's "table.column" wording.
func sqliteColumnMatch(msg, constraintName string) bool {
	name, ok := strings.CutSuffix(constraintName, "_key")
	if !ok {
		return false
	}
	for i := 0; i < len(name); i++ {
		if name[i] != '_' {
			continue
		}
		if strings.Contains(msg, name[:i]+"."+name[i+1:]) {
			return true
		}
	}
	return false
}
