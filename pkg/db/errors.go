package db

import "strings"

// uniqueViolationMarkers match both drivers: Postgres in production,
// sqlite under test.
var uniqueViolationMarkers = []string{
	"duplicate key value",
	"UNIQUE constraint failed",
}

// IsUniqueViolation reports whether err is a unique-constraint violation,
// optionally narrowed to a named constraint.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	if constraintName != "" {
		return strings.Contains(msg, constraintName)
	}
	for _, marker := range uniqueViolationMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
