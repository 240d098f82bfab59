// Package chat persists conversation turns and obtains assistant replies
// from the completion provider, degrading to a deterministic echo when the
// provider fails.
package chat

import (
	"context"
	"log/slog"
	"strings"

	"github.com/parleyhq/parley/internal/ai"
	"github.com/parleyhq/parley/internal/model"
	"github.com/parleyhq/parley/internal/store"
)

// titleMaxLen is the fixed prefix length a new conversation's title is
// truncated to.
const titleMaxLen = 50

// Service runs the chat workflow. The tenant-scoped store handle is supplied
// per call because it is derived from the caller's resolved membership.
type Service struct {
	provider      ai.Provider
	contextWindow int
	log           *slog.Logger
}

// NewService creates a Service. contextWindow caps how many recent messages
// are sent to the provider; out-of-range values fall back to 20.
func NewService(provider ai.Provider, contextWindow int, log *slog.Logger) *Service {
	if contextWindow <= 0 || contextWindow > 100 {
		contextWindow = 20
	}
	return &Service{provider: provider, contextWindow: contextWindow, log: log}
}

// TurnResult is the outcome of one chat turn.
type TurnResult struct {
	ConversationID   string         `json:"conversationId"`
	UserMessage      *model.Message `json:"userMessage"`
	AssistantMessage *model.Message `json:"assistantMessage"`
}

// CreateConversation starts a new conversation for userID.
func (s *Service) CreateConversation(ctx context.Context, t *store.Tenant, userID, title string) (*model.Conversation, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		title = "New Conversation"
	}
	c := &model.Conversation{UserID: userID, Title: truncateTitle(title)}
	if err := NewRepo(t).CreateConversation(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// ListConversations returns the caller's conversations, newest first.
func (s *Service) ListConversations(ctx context.Context, t *store.Tenant, userID string) ([]model.Conversation, error) {
	return NewRepo(t).ListConversations(ctx, userID)
}

// ListMessages returns a conversation's history oldest-first, after
// verifying the conversation belongs to userID.
func (s *Service) ListMessages(ctx context.Context, t *store.Tenant, userID, conversationID string) ([]model.Message, error) {
	repo := NewRepo(t)
	if _, err := repo.GetOwnedConversation(ctx, userID, conversationID); err != nil {
		return nil, err
	}
	return repo.ListMessages(ctx, conversationID)
}

// SendMessage runs one chat turn: resolve or create the conversation,
// persist the user message, obtain the assistant reply, persist it. A
// failing completion call never fails the turn; the reply degrades to a
// deterministic echo of the input.
func (s *Service) SendMessage(ctx context.Context, t *store.Tenant, userID, conversationID, content string) (*TurnResult, error) {
	repo := NewRepo(t)

	var conv *model.Conversation
	if conversationID == "" {
		c := &model.Conversation{UserID: userID, Title: truncateTitle(content)}
		if err := repo.CreateConversation(ctx, c); err != nil {
			return nil, err
		}
		conv = c
	} else {
		c, err := repo.GetOwnedConversation(ctx, userID, conversationID)
		if err != nil {
			return nil, err
		}
		conv = c
	}

	userMsg := &model.Message{
		ConversationID: conv.ID,
		UserID:         &userID,
		Role:           model.MessageRoleUser,
		Content:        content,
	}
	if err := repo.InsertMessage(ctx, userMsg); err != nil {
		return nil, err
	}

	reply := s.completeOrEcho(ctx, repo, conv.ID, userID, content)

	assistantMsg := &model.Message{
		ConversationID: conv.ID,
		Role:           model.MessageRoleAssistant,
		Content:        reply,
	}
	if err := repo.InsertMessage(ctx, assistantMsg); err != nil {
		return nil, err
	}

	return &TurnResult{
		ConversationID:   conv.ID,
		UserMessage:      userMsg,
		AssistantMessage: assistantMsg,
	}, nil
}

// completeOrEcho asks the provider for a reply seeded with the conversation
// history. Any failure, including failure to load the history, degrades to
// the echo fallback.
func (s *Service) completeOrEcho(ctx context.Context, repo *Repo, conversationID, userID, content string) string {
	history, err := repo.ListMessages(ctx, conversationID)
	if err != nil {
		s.log.Error("chat history load failed, using fallback reply", "user_id", userID, "conversation_id", conversationID, "err", err)
		return fallbackReply(content)
	}
	if len(history) > s.contextWindow {
		history = history[len(history)-s.contextWindow:]
	}

	providerMsgs := make([]ai.Message, 0, len(history))
	for _, m := range history {
		providerMsgs = append(providerMsgs, ai.Message{Role: m.Role, Content: m.Content})
	}

	reply, err := s.provider.Complete(ctx, providerMsgs)
	if err != nil {
		s.log.Warn("completion call failed, using fallback reply", "user_id", userID, "conversation_id", conversationID, "err", err)
		return fallbackReply(content)
	}
	return reply
}

func fallbackReply(content string) string {
	return "You said: " + content
}

func truncateTitle(s string) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) <= titleMaxLen {
		return s
	}
	return string(r[:titleMaxLen])
}
