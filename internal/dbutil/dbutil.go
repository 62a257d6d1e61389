package dbutil

import (
	"database/sql"
	"errors"
	"strings"
)

// IsUniqueViolation reports whether err is a SQLite unique-constraint
// failure. The embedded driver surfaces these as plain errors, so the check
// is by message; both the cgo and the pure-Go engine use the same wording.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// IsNoRows reports whether err means zero rows were found.
func IsNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
