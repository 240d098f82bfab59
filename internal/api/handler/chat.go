package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"gorm.io/gorm"

	"github.com/parleyhq/parley/internal/api/middleware"
	"github.com/parleyhq/parley/internal/api/respond"
	"github.com/parleyhq/parley/internal/chat"
	"github.com/parleyhq/parley/internal/store"
)

// ChatHandler handles /api/chat/* routes.
type ChatHandler struct {
	svc  *chat.Service
	priv *store.Privileged
	log  *slog.Logger
}

// NewChatHandler creates a ChatHandler. The privileged handle is used only to
// derive per-request tenant handles from the resolved identity.
func NewChatHandler(svc *chat.Service, priv *store.Privileged, log *slog.Logger) *ChatHandler {
	return &ChatHandler{svc: svc, priv: priv, log: log}
}

// tenant resolves the caller's tenant-scoped store handle. It writes the
// not-onboarded error itself and returns ok=false when the caller has no
// organization yet.
func (h *ChatHandler) tenant(w http.ResponseWriter, r *http.Request) (*store.Tenant, *middleware.Identity, bool) {
	id := middleware.IdentityFromContext(r.Context())
	if id == nil {
		respond.Error(w, http.StatusUnauthorized, respond.KindAuthentication, "authentication required")
		return nil, nil, false
	}
	if !id.Onboarded() {
		respond.Error(w, http.StatusBadRequest, respond.KindNotOnboarded, "complete onboarding before using chat")
		return nil, nil, false
	}
	return h.priv.ForOrg(id.OrgID), id, true
}

type createConversationRequest struct {
	Title string `json:"title"`
}

// CreateConversation handles POST /api/chat/conversations.
func (h *ChatHandler) CreateConversation(w http.ResponseWriter, r *http.Request) {
	t, id, ok := h.tenant(w, r)
	if !ok {
		return
	}

	var req createConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, respond.KindValidation, "request body must be valid JSON")
		return
	}

	c, err := h.svc.CreateConversation(r.Context(), t, id.UserID, req.Title)
	if err != nil {
		h.log.Error("create conversation failed", "user_id", id.UserID, "err", err)
		respond.Error(w, http.StatusInternalServerError, respond.KindUpstream, "could not create conversation")
		return
	}
	respond.JSON(w, http.StatusCreated, c)
}

// ListConversations handles GET /api/chat/conversations.
func (h *ChatHandler) ListConversations(w http.ResponseWriter, r *http.Request) {
	t, id, ok := h.tenant(w, r)
	if !ok {
		return
	}

	convs, err := h.svc.ListConversations(r.Context(), t, id.UserID)
	if err != nil {
		h.log.Error("list conversations failed", "user_id", id.UserID, "err", err)
		respond.Error(w, http.StatusInternalServerError, respond.KindUpstream, "could not list conversations")
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{"conversations": convs})
}

// ListMessages handles GET /api/chat/conversations/{id}/messages.
func (h *ChatHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	t, id, ok := h.tenant(w, r)
	if !ok {
		return
	}

	conversationID := r.PathValue("id")
	msgs, err := h.svc.ListMessages(r.Context(), t, id.UserID, conversationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respond.Error(w, http.StatusNotFound, respond.KindNotFound, "conversation not found")
			return
		}
		h.log.Error("list messages failed", "user_id", id.UserID, "conversation_id", conversationID, "err", err)
		respond.Error(w, http.StatusInternalServerError, respond.KindUpstream, "could not list messages")
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{"messages": msgs})
}

type sendMessageRequest struct {
	ConversationID string `json:"conversation_id"`
	Content        string `json:"content"`
}

// SendMessage handles POST /api/chat/message.
func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	t, id, ok := h.tenant(w, r)
	if !ok {
		return
	}

	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, respond.KindValidation, "request body must be valid JSON")
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		respond.Error(w, http.StatusBadRequest, respond.KindValidation, "content is required")
		return
	}

	res, err := h.svc.SendMessage(r.Context(), t, id.UserID, req.ConversationID, req.Content)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respond.Error(w, http.StatusNotFound, respond.KindNotFound, "conversation not found")
			return
		}
		h.log.Error("send message failed", "user_id", id.UserID, "err", err)
		respond.Error(w, http.StatusInternalServerError, respond.KindUpstream, "could not send message")
		return
	}
	respond.JSON(w, http.StatusOK, res)
}
