package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/sakif/life-tracker/internal/repository"
)

// HealthHandler reports whether the store is reachable.
type HealthHandler struct {
	store repository.Pinger
	resp  *Responder
}

func NewHealthHandler(store repository.Pinger, resp *Responder) *HealthHandler {
	return &HealthHandler{store: store, resp: resp}
}

type healthResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// HandleHealth pings the store with a short deadline.
//
// HTTP: GET /health
// Response: 200 {"status": "ok"} or 503 {"status": "unavailable", "error": "..."}
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		h.resp.logger.Warn("health check failed", slog.String("error", err.Error()))
		h.resp.JSON(w, http.StatusServiceUnavailable, healthResponse{
			Status: "unavailable",
			Error:  "store unreachable",
		})
		return
	}
	h.resp.JSON(w, http.StatusOK, healthResponse{Status: "ok"})
}
