package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const readinessTimeout = 2 * time.Second

// Pinger is satisfied by the db, redis, bigquery and pubsub clients.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ReadinessCheck names a dependency checked by /health/ready.
type ReadinessCheck struct {
	Name   string
	Pinger Pinger
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Storefront-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings every configured dependency and reports 503 when any
// of them fails. Nil pingers are skipped so optional integrations can be
// left unwired.
func HealthReady(cfg *config.Config, logg *logger.Logger, checks ...ReadinessCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Storefront-Env", cfg.App.Env)

		status := map[string]string{}
		var failed []string
		for _, check := range checks {
			if check.Pinger == nil {
				continue
			}
			ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
			err := check.Pinger.Ping(ctx)
			cancel()
			if err != nil {
				if logg != nil {
					logg.Warn(logg.WithField(r.Context(), "dependency", check.Name), "readiness check failed: "+err.Error())
				}
				status[check.Name] = "down"
				failed = append(failed, check.Name)
				continue
			}
			status[check.Name] = "ok"
		}

		if len(failed) > 0 {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeDependency, "dependencies unavailable").
				WithDetails(map[string]any{"checks": status}))
			return
		}

		status["status"] = "ready"
		responses.WriteSuccess(w, status)
	}
}
