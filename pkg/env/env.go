package env

import (
	"os"
	"strings"
)

// Prefix namespaces the variables the rental binaries read.
const Prefix = "RENTAL_"

// Get returns RENTAL_<key>, then the bare key, then fallback.
func Get(key, fallback string) string {
	if val, ok := Lookup(key); ok {
		return val
	}
	return fallback
}

// Lookup returns the first non-blank value of RENTAL_<key> or key. Keys may be passed
// with or without the prefix.
func Lookup(key string) (string, bool) {
	key = strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(key)), Prefix)
	if key == "" {
		return "", false
	}
	for _, name := range []string{Prefix + key, key} {
		if val := strings.TrimSpace(os.Getenv(name)); val != "" {
			return val, true
		}
	}
	return "", false
}
