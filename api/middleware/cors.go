package middleware

import (
	"net/http"

	"github.com/go-chi/cors"

	"github.com/angelmondragon/carrental-backend/pkg/config"
)

// CORS applies the configured origin allow-list.
func CORS(cfg config.CORSConfig) func(http.Handler) http.Handler {
	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}
	return cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id", "Idempotency-Replayed"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler
}
