package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/LucasBenitez7/acme-commerce-starter-sub000/api/responses"
	"github.com/LucasBenitez7/acme-commerce-starter-sub000/pkg/config"
	pkgerrors "github.com/LucasBenitez7/acme-commerce-starter-sub000/pkg/errors"
	"github.com/LucasBenitez7/acme-commerce-starter-sub000/pkg/logger"
)

const readinessTimeout = 2 * time.Second

// Pinger is anything the readiness probe can check.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependency names a pinger for readiness reporting.
type Dependency struct {
	Name   string
	Pinger Pinger
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Acme-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings every dependency and fails when any of them is down.
func HealthReady(cfg *config.Config, logg *logger.Logger, deps ...Dependency) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Acme-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		checks := make(map[string]string, len(deps))
		var failed error
		for _, dep := range deps {
			if dep.Pinger == nil {
				continue
			}
			if err := dep.Pinger.Ping(ctx); err != nil {
				checks[dep.Name] = "down"
				if failed == nil {
					failed = pkgerrors.Wrap(pkgerrors.CodeDependency, err, dep.Name+" unavailable").
						WithDetails(map[string]any{"dependency": dep.Name})
				}
				continue
			}
			checks[dep.Name] = "up"
		}

		if failed != nil {
			responses.WriteError(r.Context(), logg, w, failed)
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}
