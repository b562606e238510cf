package env

import "os"

// Get returns the value of the given environment variable or a fallback.
// Used for the handful of knobs read outside pkg/config, such as PORT.
func Get(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
