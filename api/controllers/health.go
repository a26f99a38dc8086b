package controllers

import (
	"context"
	"net/http"

	"github.com/rgalindo-dev/storely-backend/api/responses"
	"github.com/rgalindo-dev/storely-backend/pkg/config"
	pkgerrors "github.com/rgalindo-dev/storely-backend/pkg/errors"
	"github.com/rgalindo-dev/storely-backend/pkg/logger"
)

// Pinger is the connectivity probe shared by the backing services.
type Pinger interface {
	Ping(context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Storely-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady probes every registered dependency. Nil pingers are skipped
// so optional services (redis, pubsub) don't fail readiness in dev.
func HealthReady(cfg *config.Config, logg *logger.Logger, checks map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		w.Header().Set("X-Storely-Env", cfg.App.Env)

		statuses := map[string]string{}
		for name, pinger := range checks {
			if pinger == nil {
				statuses[name] = "skipped"
				continue
			}
			if err := pinger.Ping(ctx); err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, name+" unavailable"))
				return
			}
			statuses[name] = "ok"
		}
		statuses["status"] = "ready"
		responses.WriteSuccess(w, statuses)
	}
}
