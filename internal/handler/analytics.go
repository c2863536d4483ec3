package handler

import (
	"net/http"
	"strconv"

	"github.com/sakif/life-tracker/internal/apperror"
	"github.com/sakif/life-tracker/internal/auth"
	"github.com/sakif/life-tracker/internal/service"
)

type AnalyticsHandler struct {
	analytics *service.AnalyticsService
	resp      *Responder
}

func NewAnalyticsHandler(analytics *service.AnalyticsService, resp *Responder) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics, resp: resp}
}

// HandleAnalytics reports activity over the last ?days= days (default 7).
//
// HTTP: GET /analytics?days=N
func (h *AnalyticsHandler) HandleAnalytics(w http.ResponseWriter, r *http.Request) {
	owner, _ := auth.UserIDFromContext(r.Context())

	days := 0
	if raw := r.URL.Query().Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			h.resp.Error(w, r, apperror.ValidationFailed("days", "days must be a positive integer"))
			return
		}
		days = n
	}

	report, err := h.analytics.Report(r.Context(), owner, days)
	if err != nil {
		h.resp.Error(w, r, err)
		return
	}
	h.resp.JSON(w, http.StatusOK, report)
}
