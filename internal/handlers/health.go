package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/nikhil/staffhub/internal/logger"
	"github.com/nikhil/staffhub/internal/middleware"
)

// Check reports whether one dependency is reachable.
type Check func(ctx context.Context) error

type HealthHandler struct {
	Checks map[string]Check
	Log    *logger.Logger
}

func NewHealthHandler(checks map[string]Check, log *logger.Logger) *HealthHandler {
	return &HealthHandler{Checks: checks, Log: log}
}

// Healthz answers 200 when every check passes and 503 otherwise.
func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	results := make(map[string]string, len(h.Checks))
	for name, check := range h.Checks {
		if err := check(ctx); err != nil {
			h.Log.Warn("Health check failed", "check", name, "error", err)
			results[name] = "down"
			status = http.StatusServiceUnavailable
			continue
		}
		results[name] = "ok"
	}
	middleware.WriteJSON(w, status, map[string]interface{}{"status": http.StatusText(status), "checks": results})
}
