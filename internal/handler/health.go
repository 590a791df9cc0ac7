package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// Pinger is satisfied by every store.Client.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports whether the backing store answers.
type HealthHandler struct {
	store   Pinger
	backend string
	logger  *slog.Logger
}

func NewHealthHandler(store Pinger, backend string, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{store: store, backend: backend, logger: logger}
}

// HandleHealth → 200 {"status":"ok"} or 503 {"status":"unavailable"}.
//
// HTTP: GET /healthz
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		h.logger.Warn("health check failed",
			slog.String("backend", h.backend),
			slog.String("error", err.Error()),
		)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "backend": h.backend})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "backend": h.backend})
}
