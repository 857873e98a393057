package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/mvaldezh/whisperlink-backend/api/responses"
	"github.com/mvaldezh/whisperlink-backend/pkg/config"
	"github.com/mvaldezh/whisperlink-backend/pkg/db"
	pkgerrors "github.com/mvaldezh/whisperlink-backend/pkg/errors"
	"github.com/mvaldezh/whisperlink-backend/pkg/logger"
	"github.com/mvaldezh/whisperlink-backend/pkg/redis"
)

const envHeader = "X-WhisperLink-Env"

const readinessTimeout = 2 * time.Second

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports readiness by pinging the dependencies the API needs to
// serve traffic. Nil pingers are skipped so workers can reuse this handler.
func HealthReady(cfg *config.Config, logg *logger.Logger, dbP db.Pinger, redisP redis.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		checks := map[string]string{}

		if dbP != nil {
			if err := dbP.Ping(ctx); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "database unavailable"))
				return
			}
			checks["database"] = "ok"
		}
		if redisP != nil {
			if err := redisP.Ping(ctx); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "redis unavailable"))
				return
			}
			checks["redis"] = "ok"
		}

		checks["status"] = "ready"
		responses.WriteSuccess(w, checks)
	}
}
