package controllers

import (
	"context"
	"net/http"

	"github.com/trato-app/trato-backend/api/responses"
	"github.com/trato-app/trato-backend/pkg/config"
	"github.com/trato-app/trato-backend/pkg/logger"
)

// Pinger is the health check surface shared by the backing stores.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Trato-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports readiness once every backing store answers a ping.
func HealthReady(cfg *config.Config, logg *logger.Logger, checks map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Trato-Env", cfg.App.Env)
		statuses := map[string]string{"status": "ready"}
		healthy := true
		for name, check := range checks {
			if check == nil {
				continue
			}
			if err := check.Ping(r.Context()); err != nil {
				if logg != nil {
					logg.Error(r.Context(), "health check failed: "+name, err)
				}
				statuses[name] = "unreachable"
				healthy = false
				continue
			}
			statuses[name] = "ok"
		}
		if !healthy {
			statuses["status"] = "degraded"
			responses.WriteSuccessStatus(w, http.StatusServiceUnavailable, statuses)
			return
		}
		responses.WriteSuccess(w, statuses)
	}
}
