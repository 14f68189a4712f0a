// Package env reads raw environment variables for the few settings needed
// before config loads (the logger's output format). Everything else goes
// through pkg/config.
package env

import "os"

// Get returns the named variable, falling back when unset or empty.
func Get(key, fallback string) string {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback
	}
	return value
}
