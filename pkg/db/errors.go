package db

import (
	"strings"

	pkgerrors "github.com/angelmondragon/wholesale-backend/pkg/errors"
)

const pgUniqueViolation = "23505"

// IsUniqueViolation reports a unique constraint failure from postgres
// (SQLSTATE 23505) or sqlite. A non-empty constraintName narrows the match to
// that constraint.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	unique := pkgerrors.PGCode(err) == pgUniqueViolation ||
		strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "UNIQUE constraint failed")
	if !unique {
		return false
	}
	return constraintName == "" || strings.Contains(msg, constraintName)
}
