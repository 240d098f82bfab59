package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/parleyhq/parley/internal/api/respond"
	"github.com/parleyhq/parley/internal/onboarding"
)

// WebhookHandler handles /webhooks/* routes, the endpoints the identity
// provider (or a trusted relay) calls after user signup.
type WebhookHandler struct {
	svc *onboarding.Service
	log *slog.Logger
}

// NewWebhookHandler creates a WebhookHandler.
func NewWebhookHandler(svc *onboarding.Service, log *slog.Logger) *WebhookHandler {
	return &WebhookHandler{svc: svc, log: log}
}

// authWebhookRequest mirrors the identity provider's user-created event.
type authWebhookRequest struct {
	Type   string `json:"type"`
	Record struct {
		ID              string `json:"id"`
		Email           string `json:"email"`
		RawUserMetaData struct {
			OrganizationName string `json:"organization_name"`
			FullName         string `json:"full_name"`
		} `json:"raw_user_meta_data"`
	} `json:"record"`
}

type authWebhookResponse struct {
	Success          bool   `json:"success"`
	Message          string `json:"message"`
	UserID           string `json:"userId,omitempty"`
	OrganizationID   string `json:"organizationId,omitempty"`
	OrganizationName string `json:"organizationName,omitempty"`
}

// Auth handles POST /webhooks/auth. The provider retries on non-2xx, so this
// endpoint answers 200 even when onboarding fails internally; the failure is
// logged for alerting instead.
func (h *WebhookHandler) Auth(w http.ResponseWriter, r *http.Request) {
	var req authWebhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Error("auth webhook payload invalid", "err", err)
		respond.JSON(w, http.StatusOK, authWebhookResponse{Success: false, Message: "invalid payload"})
		return
	}
	if req.Record.ID == "" {
		h.log.Error("auth webhook payload missing user id", "type", req.Type)
		respond.JSON(w, http.StatusOK, authWebhookResponse{Success: false, Message: "record.id is required"})
		return
	}

	var fullName *string
	if n := strings.TrimSpace(req.Record.RawUserMetaData.FullName); n != "" {
		fullName = &n
	}

	res, err := h.svc.Onboard(r.Context(), req.Record.ID, req.Record.RawUserMetaData.OrganizationName, fullName)
	if err != nil {
		h.log.Error("auth webhook onboarding failed", "user_id", req.Record.ID, "err", err)
		respond.JSON(w, http.StatusOK, authWebhookResponse{
			Success: false,
			Message: "onboarding failed",
			UserID:  req.Record.ID,
		})
		return
	}

	msg := "User onboarded"
	if res.AlreadyOnboarded {
		msg = "User already onboarded"
	}
	respond.JSON(w, http.StatusOK, authWebhookResponse{
		Success:          true,
		Message:          msg,
		UserID:           req.Record.ID,
		OrganizationID:   res.Organization.ID,
		OrganizationName: res.Organization.Name,
	})
}

type onboardWebhookRequest struct {
	UserID           string  `json:"userId"`
	OrganizationName string  `json:"organizationName"`
	FullName         *string `json:"fullName,omitempty"`
}

type onboardWebhookResponse struct {
	Success      bool `json:"success"`
	Organization any  `json:"organization"`
	Profile      any  `json:"profile"`
}

// Onboard handles POST /webhooks/onboard, the service-to-service onboarding
// endpoint. Unlike the auth webhook it reports failures honestly, because the
// caller is a trusted service that handles errors itself.
func (h *WebhookHandler) Onboard(w http.ResponseWriter, r *http.Request) {
	var req onboardWebhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, respond.KindValidation, "request body must be valid JSON")
		return
	}
	if req.UserID == "" {
		respond.Error(w, http.StatusBadRequest, respond.KindValidation, "userId is required")
		return
	}

	res, err := h.svc.Onboard(r.Context(), req.UserID, req.OrganizationName, req.FullName)
	if err != nil {
		h.log.Error("onboard webhook failed", "user_id", req.UserID, "err", err)
		respond.Error(w, http.StatusInternalServerError, respond.KindUpstream, "onboarding failed: "+err.Error())
		return
	}
	if res.AlreadyOnboarded {
		respond.Error(w, http.StatusBadRequest, respond.KindAlreadyOnboarded, "User already onboarded")
		return
	}

	respond.JSON(w, http.StatusOK, onboardWebhookResponse{
		Success:      true,
		Organization: res.Organization,
		Profile:      res.Profile,
	})
}
