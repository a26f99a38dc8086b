package env

import "os"

// Get returns the value of the given environment variable or a fallback.
// Used for platform-injected variables (PORT, DYNO) that live outside the
// STORELY_ envconfig namespace.
func Get(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
