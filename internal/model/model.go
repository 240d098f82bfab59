// Package model contains GORM model definitions shared across packages.
// All models are driver-agnostic: they work with both PostgreSQL and SQLite.
package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Roles a profile can carry. CreateProfile only ever assigns RoleMember;
// RoleAdmin originates from the seed tenant or manual admin action.
const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// Message roles.
const (
	MessageRoleUser      = "user"
	MessageRoleAssistant = "assistant"
	MessageRoleSystem    = "system"
)

// Organization represents a tenant. NameKey is the normalized form of Name
// (lower-cased, trimmed); its unique index makes find-or-create atomic: two
// concurrent creators of the same name collide on the index instead of both
// inserting.
type Organization struct {
	ID        string    `gorm:"type:text;primaryKey" json:"id"`
	Name      string    `gorm:"type:text;not null" json:"name"`
	NameKey   string    `gorm:"type:text;not null;uniqueIndex" json:"-"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

// BeforeCreate generates a UUID primary key and derives NameKey if not set.
func (o *Organization) BeforeCreate(_ *gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.New().String()
	}
	if o.NameKey == "" {
		o.NameKey = NormalizeOrgName(o.Name)
	}
	return nil
}

// NormalizeOrgName returns the canonical lookup key for an organization name.
func NormalizeOrgName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Profile is the per-user membership record. Its primary key is the user
// identity from the auth provider, so at most one profile can exist per user;
// the existence of a profile is the definition of "onboarded".
type Profile struct {
	ID             string    `gorm:"type:text;primaryKey" json:"id"`
	OrganizationID string    `gorm:"type:text;not null;index" json:"org_id"`
	Role           string    `gorm:"type:text;not null;default:'member'" json:"role"`
	FullName       *string   `gorm:"type:text" json:"full_name"`
	CreatedAt      time.Time `gorm:"not null" json:"created_at"`
}

// Conversation is a chat thread owned by one user inside one organization.
type Conversation struct {
	ID        string    `gorm:"type:text;primaryKey" json:"id"`
	OrgID     string    `gorm:"type:text;not null;index" json:"org_id"`
	UserID    string    `gorm:"type:text;not null;index" json:"user_id"`
	Title     string    `gorm:"type:text;not null" json:"title"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

// BeforeCreate generates a UUID primary key if not set.
func (c *Conversation) BeforeCreate(_ *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return nil
}

// Message is a single chat turn. UserID is nil for assistant and system
// messages.
type Message struct {
	ID             string    `gorm:"type:text;primaryKey" json:"id"`
	ConversationID string    `gorm:"type:text;not null;index" json:"conversation_id"`
	OrgID          string    `gorm:"type:text;not null;index" json:"org_id"`
	UserID         *string   `gorm:"type:text" json:"user_id"`
	Role           string    `gorm:"type:text;not null" json:"role"`
	Content        string    `gorm:"type:text;not null" json:"content"`
	CreatedAt      time.Time `gorm:"not null" json:"created_at"`
}

// BeforeCreate generates a UUID primary key if not set.
func (m *Message) BeforeCreate(_ *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	return nil
}
