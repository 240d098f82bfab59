package chat

import (
	"context"

	"gorm.io/gorm"

	"github.com/parleyhq/parley/internal/model"
	"github.com/parleyhq/parley/internal/store"
)

// Repo persists conversations and messages through a tenant-scoped store
// handle. Every read and write is confined to the handle's organization.
type Repo struct {
	t *store.Tenant
}

func NewRepo(t *store.Tenant) *Repo {
	return &Repo{t: t}
}

func (r *Repo) CreateConversation(ctx context.Context, c *model.Conversation) error {
	return r.t.Create(ctx, c)
}

// GetOwnedConversation loads a conversation and verifies it belongs to
// userID. A conversation owned by someone else reports not-found rather than
// revealing its existence.
func (r *Repo) GetOwnedConversation(ctx context.Context, userID, conversationID string) (*model.Conversation, error) {
	var c model.Conversation
	if err := r.t.Conversations().WithContext(ctx).
		Where("id = ?", conversationID).
		First(&c).Error; err != nil {
		return nil, err
	}
	if c.UserID != userID {
		return nil, gorm.ErrRecordNotFound
	}
	return &c, nil
}

func (r *Repo) ListConversations(ctx context.Context, userID string) ([]model.Conversation, error) {
	var out []model.Conversation
	if err := r.t.Conversations().WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repo) InsertMessage(ctx context.Context, m *model.Message) error {
	return r.t.Create(ctx, m)
}

// ListMessages returns the full message history of a conversation, oldest
// first.
func (r *Repo) ListMessages(ctx context.Context, conversationID string) ([]model.Message, error) {
	var out []model.Message
	if err := r.t.Messages().WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
