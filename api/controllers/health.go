package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/fabworks/fabtrack-backend/api/responses"
	"github.com/fabworks/fabtrack-backend/pkg/config"
	pkgerrors "github.com/fabworks/fabtrack-backend/pkg/errors"
	"github.com/fabworks/fabtrack-backend/pkg/logger"
)

const readinessTimeout = 2 * time.Second

type pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-FabTrack-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings the datastores the API cannot serve without.
func HealthReady(cfg *config.Config, logg *logger.Logger, db, redis pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-FabTrack-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		checks := map[string]string{}
		ok := true
		for name, dep := range map[string]pinger{"database": db, "redis": redis} {
			if dep == nil {
				checks[name] = "unconfigured"
				ok = false
				continue
			}
			if err := dep.Ping(ctx); err != nil {
				checks[name] = "down"
				ok = false
				continue
			}
			checks[name] = "up"
		}

		if !ok {
			err := pkgerrors.New(pkgerrors.CodeDependency, "dependencies unavailable")
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}
