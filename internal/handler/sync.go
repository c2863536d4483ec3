package handler

import (
	"net/http"

	"github.com/sakif/life-tracker/internal/auth"
	"github.com/sakif/life-tracker/internal/service"
)

// SyncHandler serves the full-state snapshot the client renders from.
type SyncHandler struct {
	sync *service.SyncService
	resp *Responder
}

func NewSyncHandler(sync *service.SyncService, resp *Responder) *SyncHandler {
	return &SyncHandler{sync: sync, resp: resp}
}

// HandleSnapshot returns every collection the caller owns.
//
// HTTP: GET /data
// Response: {"tasks": [...], "logs": [...], "todos": [...], "expenses": [...], "journal": [...]}
func (h *SyncHandler) HandleSnapshot(w http.ResponseWriter, r *http.Request) {
	owner, _ := auth.UserIDFromContext(r.Context())

	snap, err := h.sync.Snapshot(r.Context(), owner)
	if err != nil {
		h.resp.Error(w, r, err)
		return
	}
	h.resp.JSON(w, http.StatusOK, snap)
}
