package instance

import (
	"os"

	"github.com/angelmondragon/carrental-backend/pkg/env"
)

// GetID identifies this process in logs and lock tokens. RENTAL_INSTANCE_ID
// wins, then the hostname.
func GetID() string {
	if id, ok := env.Lookup("INSTANCE_ID"); ok {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "local"
}
