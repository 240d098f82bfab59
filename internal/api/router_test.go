package api_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/parleyhq/parley/internal/ai"
	"github.com/parleyhq/parley/internal/api"
	"github.com/parleyhq/parley/internal/api/handler"
	"github.com/parleyhq/parley/internal/auth"
	"github.com/parleyhq/parley/internal/chat"
	"github.com/parleyhq/parley/internal/health"
	"github.com/parleyhq/parley/internal/model"
	"github.com/parleyhq/parley/internal/onboarding"
	"github.com/parleyhq/parley/internal/store"
)

const (
	testSecret     = "test-secret-at-least-32-bytes!!!"
	testIssuer     = "https://auth.test"
	testServiceKey = "service-role-key-for-tests"
)

func newTestMux(t *testing.T) (*http.ServeMux, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(gormsqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&model.Organization{},
		&model.Profile{},
		&model.Conversation{},
		&model.Message{},
	))

	log := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	priv := store.NewPrivileged(db)
	onboardSvc := onboarding.New(priv, log)
	chatSvc := chat.NewService(ai.NewNoopProvider(), 20, log)

	mux := http.NewServeMux()
	api.RegisterRoutes(mux, api.Handlers{
		Health:     health.New(nil),
		Onboarding: handler.NewOnboardingHandler(onboardSvc, log),
		Webhook:    handler.NewWebhookHandler(onboardSvc, log),
		Chat:       handler.NewChatHandler(chatSvc, priv, log),
		Dashboard:  handler.NewDashboardHandler(),
	}, api.AuthDeps{
		JWTSecret:      testSecret,
		Issuer:         testIssuer,
		ServiceRoleKey: testServiceKey,
		Members:        onboardSvc,
	})
	return mux, db
}

func bearerFor(t *testing.T, userID string) string {
	t.Helper()
	tok, err := auth.IssueAccessToken(userID, userID+"@example.com", "", testIssuer, testSecret, 15*time.Minute)
	require.NoError(t, err)
	return "Bearer " + tok
}

func doJSON(t *testing.T, mux *http.ServeMux, method, path, bearer string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd *strings.Reader
	if body == nil {
		rd = strings.NewReader("")
	} else {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = strings.NewReader(string(b))
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", bearer)
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func TestHealthzIsPublic(t *testing.T) {
	mux, _ := newTestMux(t)
	w := doJSON(t, mux, http.MethodGet, "/api/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestUnknownRouteIs404(t *testing.T) {
	mux, _ := newTestMux(t)
	w := doJSON(t, mux, http.MethodGet, "/api/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "not_found")
}

func TestOnboardingComplete_RequiresAuth(t *testing.T) {
	mux, _ := newTestMux(t)
	w := doJSON(t, mux, http.MethodPost, "/api/onboarding/complete", "", map[string]string{"organization_name": "Acme"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "authentication_error")
}

func TestOnboardingComplete_BlankNameRejected(t *testing.T) {
	mux, _ := newTestMux(t)
	w := doJSON(t, mux, http.MethodPost, "/api/onboarding/complete", bearerFor(t, "user-1"),
		map[string]string{"organization_name": "   "})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "validation_error")
}

func TestOnboardingComplete_ThenRepeatIsIdempotent(t *testing.T) {
	mux, _ := newTestMux(t)
	bearer := bearerFor(t, "user-1")

	w := doJSON(t, mux, http.MethodPost, "/api/onboarding/complete", bearer,
		map[string]string{"organization_name": "Acme"})
	require.Equal(t, http.StatusOK, w.Code)

	var first struct {
		Success      bool               `json:"success"`
		Message      string             `json:"message"`
		Organization model.Organization `json:"org"`
		Profile      model.Profile      `json:"profile"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &first))
	assert.True(t, first.Success)
	assert.Equal(t, "Acme", first.Organization.Name)
	assert.Equal(t, "user-1", first.Profile.ID)
	assert.Equal(t, model.RoleMember, first.Profile.Role)

	w = doJSON(t, mux, http.MethodPost, "/api/onboarding/complete", bearer,
		map[string]string{"organization_name": "Acme"})
	require.Equal(t, http.StatusOK, w.Code)

	var second struct {
		Message      string             `json:"message"`
		Organization model.Organization `json:"org"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &second))
	assert.Equal(t, "User already onboarded", second.Message)
	assert.Equal(t, first.Organization.ID, second.Organization.ID)
}

func TestOnboardingComplete_ForeignIssuerTokenRejected(t *testing.T) {
	mux, _ := newTestMux(t)

	tok, err := auth.IssueAccessToken("user-1", "user-1@example.com", "", "https://evil.example", testSecret, 15*time.Minute)
	require.NoError(t, err)

	w := doJSON(t, mux, http.MethodPost, "/api/onboarding/complete", "Bearer "+tok,
		map[string]string{"organization_name": "Acme"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "authentication_error")
}

func TestOnboardingComplete_DatastoreFailureIsUpstream(t *testing.T) {
	mux, db := newTestMux(t)

	// Losing the organizations table makes every persistence call fail the
	// way an unreachable datastore would.
	require.NoError(t, db.Exec("DROP TABLE organizations").Error)

	w := doJSON(t, mux, http.MethodPost, "/api/onboarding/complete", bearerFor(t, "user-1"),
		map[string]string{"organization_name": "Acme"})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "upstream_error")
}

func TestChat_RequiresOnboarding(t *testing.T) {
	mux, _ := newTestMux(t)
	w := doJSON(t, mux, http.MethodPost, "/api/chat/message", bearerFor(t, "user-1"),
		map[string]string{"content": "hi"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "not_onboarded")
}

func TestChat_FullFlowWithEchoFallback(t *testing.T) {
	mux, _ := newTestMux(t)
	bearer := bearerFor(t, "user-1")

	w := doJSON(t, mux, http.MethodPost, "/api/onboarding/complete", bearer,
		map[string]string{"organization_name": "Acme"})
	require.Equal(t, http.StatusOK, w.Code)

	// The noop provider always fails, so the reply is the echo fallback.
	w = doJSON(t, mux, http.MethodPost, "/api/chat/message", bearer,
		map[string]string{"content": "hello world"})
	require.Equal(t, http.StatusOK, w.Code)

	var turn chat.TurnResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &turn))
	require.NotEmpty(t, turn.ConversationID)
	assert.Equal(t, "hello world", turn.UserMessage.Content)
	assert.Equal(t, "You said: hello world", turn.AssistantMessage.Content)

	w = doJSON(t, mux, http.MethodGet, "/api/chat/conversations", bearer, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), turn.ConversationID)

	w = doJSON(t, mux, http.MethodGet, "/api/chat/conversations/"+turn.ConversationID+"/messages", bearer, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var msgs struct {
		Messages []model.Message `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &msgs))
	require.Len(t, msgs.Messages, 2)
	assert.Equal(t, model.MessageRoleUser, msgs.Messages[0].Role)
	assert.Equal(t, model.MessageRoleAssistant, msgs.Messages[1].Role)
}

func TestChat_BlankContentRejected(t *testing.T) {
	mux, _ := newTestMux(t)
	bearer := bearerFor(t, "user-1")
	doJSON(t, mux, http.MethodPost, "/api/onboarding/complete", bearer,
		map[string]string{"organization_name": "Acme"})

	w := doJSON(t, mux, http.MethodPost, "/api/chat/message", bearer,
		map[string]string{"content": "  "})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "validation_error")
}

func TestAuthWebhook_OnboardsWithoutAuth(t *testing.T) {
	mux, _ := newTestMux(t)

	payload := map[string]any{
		"type": "INSERT",
		"record": map[string]any{
			"id":    "user-7",
			"email": "seven@example.com",
			"raw_user_meta_data": map[string]any{
				"organization_name": "Globex",
				"full_name":         "Hank Scorpio",
			},
		},
	}
	w := doJSON(t, mux, http.MethodPost, "/webhooks/auth", "", payload)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success          bool   `json:"success"`
		UserID           string `json:"userId"`
		OrganizationName string `json:"organizationName"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "user-7", resp.UserID)
	assert.Equal(t, "Globex", resp.OrganizationName)
}

func TestAuthWebhook_MalformedPayloadStill200(t *testing.T) {
	mux, _ := newTestMux(t)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/auth", strings.NewReader("{not json"))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"success":false`)
}

func TestOnboardWebhook_RequiresServiceKey(t *testing.T) {
	mux, _ := newTestMux(t)
	body := map[string]string{"userId": "user-9", "organizationName": "Initech"}

	w := doJSON(t, mux, http.MethodPost, "/webhooks/onboard", "", body)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, mux, http.MethodPost, "/webhooks/onboard", "Bearer wrong", body)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, mux, http.MethodPost, "/webhooks/onboard", "Bearer "+testServiceKey, body)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Initech")

	// Repeat onboarding through the service endpoint is an explicit error.
	w = doJSON(t, mux, http.MethodPost, "/webhooks/onboard", "Bearer "+testServiceKey, body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "already_onboarded")
}

func TestDashboardSummary(t *testing.T) {
	mux, _ := newTestMux(t)
	bearer := bearerFor(t, "user-1")

	w := doJSON(t, mux, http.MethodGet, "/api/dashboard/summary", bearer, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "not_onboarded")

	doJSON(t, mux, http.MethodPost, "/api/onboarding/complete", bearer,
		map[string]string{"organization_name": "Acme"})

	w = doJSON(t, mux, http.MethodGet, "/api/dashboard/summary", bearer, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "total_conversations")
}
