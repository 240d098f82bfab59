// Package api wires all API routes onto the provided ServeMux.
package api

import (
	"net/http"

	"github.com/parleyhq/parley/internal/api/handler"
	"github.com/parleyhq/parley/internal/api/middleware"
	"github.com/parleyhq/parley/internal/api/respond"
	"github.com/parleyhq/parley/internal/health"
)

// Handlers bundles everything RegisterRoutes mounts.
type Handlers struct {
	Health     *health.Handler
	Onboarding *handler.OnboardingHandler
	Webhook    *handler.WebhookHandler
	Chat       *handler.ChatHandler
	Dashboard  *handler.DashboardHandler
}

// AuthDeps are the middleware inputs: the token verification key, the
// expected token issuer, the service role key, and the membership resolver.
type AuthDeps struct {
	JWTSecret      string
	Issuer         string
	ServiceRoleKey string
	Members        middleware.MembershipResolver
}

// RegisterRoutes registers all application routes on mux.
func RegisterRoutes(mux *http.ServeMux, h Handlers, deps AuthDeps) {
	// Public health endpoints (no auth required)
	mux.HandleFunc("GET /api/healthz", h.Health.ServeHealth)
	mux.HandleFunc("GET /api/readyz", h.Health.ServeReady)
	mux.HandleFunc("GET /{$}", h.Health.ServeRoot)

	// Provider-called webhook; authenticated by payload trust, always 200.
	mux.HandleFunc("POST /webhooks/auth", h.Webhook.Auth)

	// Service-to-service onboarding, gated on the service role key.
	serviceOnly := middleware.RequireServiceKey(deps.ServiceRoleKey)
	mux.Handle("POST /webhooks/onboard", serviceOnly(http.HandlerFunc(h.Webhook.Onboard)))

	// User-facing routes require a valid provider token.
	protected := middleware.RequireAuth(deps.JWTSecret, deps.Issuer, deps.Members)
	mux.Handle("POST /api/onboarding/complete", protected(http.HandlerFunc(h.Onboarding.Complete)))
	mux.Handle("POST /api/chat/conversations", protected(http.HandlerFunc(h.Chat.CreateConversation)))
	mux.Handle("GET /api/chat/conversations", protected(http.HandlerFunc(h.Chat.ListConversations)))
	mux.Handle("GET /api/chat/conversations/{id}/messages", protected(http.HandlerFunc(h.Chat.ListMessages)))
	mux.Handle("POST /api/chat/message", protected(http.HandlerFunc(h.Chat.SendMessage)))
	mux.Handle("GET /api/dashboard/summary", protected(http.HandlerFunc(h.Dashboard.Summary)))

	// Catch-all 404
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		respond.Error(w, http.StatusNotFound, respond.KindNotFound, "route not found")
	})
}
