package handler

import (
	"net/http"
	"time"

	"github.com/parleyhq/parley/internal/api/middleware"
	"github.com/parleyhq/parley/internal/api/respond"
)

// DashboardHandler handles /api/dashboard/* routes.
type DashboardHandler struct{}

// NewDashboardHandler creates a DashboardHandler.
func NewDashboardHandler() *DashboardHandler {
	return &DashboardHandler{}
}

// dashboardSummary is placeholder data until real aggregation lands. The
// shape is stable so clients can build against it now.
type dashboardSummary struct {
	Success     bool      `json:"success"`
	GeneratedAt time.Time `json:"generated_at"`
	Stats       struct {
		TotalConversations int     `json:"total_conversations"`
		TotalMessages      int     `json:"total_messages"`
		ActiveUsers        int     `json:"active_users"`
		AvgResponseSeconds float64 `json:"avg_response_seconds"`
	} `json:"stats"`
}

// Summary handles GET /api/dashboard/summary.
func (h *DashboardHandler) Summary(w http.ResponseWriter, r *http.Request) {
	id := middleware.IdentityFromContext(r.Context())
	if id == nil {
		respond.Error(w, http.StatusUnauthorized, respond.KindAuthentication, "authentication required")
		return
	}
	if !id.Onboarded() {
		respond.Error(w, http.StatusBadRequest, respond.KindNotOnboarded, "complete onboarding before viewing the dashboard")
		return
	}

	s := dashboardSummary{Success: true, GeneratedAt: time.Now().UTC()}
	s.Stats.TotalConversations = 12
	s.Stats.TotalMessages = 248
	s.Stats.ActiveUsers = 3
	s.Stats.AvgResponseSeconds = 1.4
	respond.JSON(w, http.StatusOK, s)
}
