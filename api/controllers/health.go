package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/angelmondragon/carrental-backend/api/responses"
	"github.com/angelmondragon/carrental-backend/pkg/config"
	"github.com/angelmondragon/carrental-backend/pkg/db"
	pkgerrors "github.com/angelmondragon/carrental-backend/pkg/errors"
	"github.com/angelmondragon/carrental-backend/pkg/logger"
	"github.com/angelmondragon/carrental-backend/pkg/redis"
)

const readinessTimeout = 2 * time.Second

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Rental-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports ready only when the database and Redis answer a ping.
func HealthReady(cfg *config.Config, logg *logger.Logger, dbPinger db.Pinger, redisPinger redis.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Rental-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		checks := map[string]string{"database": "ok", "redis": "ok"}
		var failed []string
		if dbPinger == nil || dbPinger.Ping(ctx) != nil {
			checks["database"] = "unavailable"
			failed = append(failed, "database")
		}
		if redisPinger == nil || redisPinger.Ping(ctx) != nil {
			checks["redis"] = "unavailable"
			failed = append(failed, "redis")
		}

		if len(failed) > 0 {
			err := pkgerrors.New(pkgerrors.CodeDependency, "dependencies unavailable").WithDetails(checks)
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}
