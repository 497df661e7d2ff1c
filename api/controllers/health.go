package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/angelmondragon/wholesale-backend/api/responses"
	"github.com/angelmondragon/wholesale-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/wholesale-backend/pkg/errors"
	"github.com/angelmondragon/wholesale-backend/pkg/logger"
)

const readinessTimeout = 2 * time.Second

// Pinger is a dependency probed by the readiness check.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ReadinessCheck names one dependency. A nil Pinger is skipped.
type ReadinessCheck struct {
	Name   string
	Pinger Pinger
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Wholesale-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings every configured dependency and reports the first failure.
func HealthReady(cfg *config.Config, logg *logger.Logger, checks ...ReadinessCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Wholesale-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		status := map[string]string{"status": "ready"}
		for _, check := range checks {
			if check.Pinger == nil {
				continue
			}
			if err := check.Pinger.Ping(ctx); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, check.Name+" unavailable").
					WithDetails(map[string]any{"dependency": check.Name}))
				return
			}
			status[check.Name] = "ok"
		}
		responses.WriteSuccess(w, status)
	}
}
