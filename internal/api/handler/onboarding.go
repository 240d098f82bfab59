// Package handler contains HTTP handlers grouped by resource.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/parleyhq/parley/internal/api/middleware"
	"github.com/parleyhq/parley/internal/api/respond"
	"github.com/parleyhq/parley/internal/onboarding"
)

// OnboardingHandler handles /api/onboarding/* routes.
type OnboardingHandler struct {
	svc *onboarding.Service
	log *slog.Logger
}

// NewOnboardingHandler creates an OnboardingHandler.
func NewOnboardingHandler(svc *onboarding.Service, log *slog.Logger) *OnboardingHandler {
	return &OnboardingHandler{svc: svc, log: log}
}

type completeRequest struct {
	OrganizationName string  `json:"organization_name"`
	FullName         *string `json:"full_name,omitempty"`
}

type onboardResponse struct {
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	Organization any    `json:"org"`
	Profile      any    `json:"profile"`
}

// Complete handles POST /api/onboarding/complete. The caller is the end user
// finishing signup; a blank organization name is rejected rather than
// defaulted because the user typed it deliberately.
func (h *OnboardingHandler) Complete(w http.ResponseWriter, r *http.Request) {
	id := middleware.IdentityFromContext(r.Context())
	if id == nil {
		respond.Error(w, http.StatusUnauthorized, respond.KindAuthentication, "authentication required")
		return
	}

	var req completeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, respond.KindValidation, "request body must be valid JSON")
		return
	}
	if strings.TrimSpace(req.OrganizationName) == "" {
		respond.Error(w, http.StatusBadRequest, respond.KindValidation, "organization_name is required")
		return
	}

	fullName := req.FullName
	if fullName == nil && id.FullName != "" {
		n := id.FullName
		fullName = &n
	}

	res, err := h.svc.Onboard(r.Context(), id.UserID, req.OrganizationName, fullName)
	if err != nil {
		h.log.Error("onboarding failed", "user_id", id.UserID, "err", err)
		respond.Error(w, http.StatusInternalServerError, respond.KindUpstream, "onboarding failed: "+err.Error())
		return
	}

	msg := "Onboarding completed"
	if res.AlreadyOnboarded {
		msg = "User already onboarded"
	}
	respond.JSON(w, http.StatusOK, onboardResponse{
		Success:      true,
		Message:      msg,
		Organization: res.Organization,
		Profile:      res.Profile,
	})
}
