package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// Pinger checks connectivity of one backing dependency.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves the health-check endpoint. Dependencies are probed
// on every call; a degraded dependency flips the overall status but the
// endpoint still answers 200 so orchestrators can read the detail.
type HealthHandler struct {
	deps   map[string]Pinger
	logger *slog.Logger
}

// NewHealthHandler creates a HealthHandler probing the given dependencies.
// Nil entries are skipped, so optional backends can be passed straight in.
func NewHealthHandler(deps map[string]Pinger, logger *slog.Logger) *HealthHandler {
	probes := make(map[string]Pinger, len(deps))
	for name, p := range deps {
		if p != nil {
			probes[name] = p
		}
	}
	return &HealthHandler{
		deps:   probes,
		logger: logHandler(logger, "health"),
	}
}

// HealthCheck responds with the server's liveness and per-dependency status.
// GET /health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := "ok"
	deps := make(map[string]string, len(h.deps))
	for name, p := range h.deps {
		if err := p.Ping(ctx); err != nil {
			h.logger.WarnContext(r.Context(), "dependency unhealthy",
				slog.String("dependency", name),
				slog.String("error", err.Error()),
			)
			deps[name] = "unhealthy"
			status = "degraded"
			continue
		}
		deps[name] = "ok"
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":       status,
		"dependencies": deps,
		"timestamp":    time.Now().UTC().Format(time.RFC3339),
	})
}
