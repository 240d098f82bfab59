// Package store models the two database capabilities the application holds.
//
// Ordinary request handlers operate through a Tenant handle, whose query
// builders always carry an org_id predicate — the in-process analog of the
// hosted database's row-level security. The onboarding workflow alone holds a
// Privileged handle, because creating a brand-new organization is a
// cross-tenant write that happens before any membership exists to authorize
// it. Privileged must never be handed to arbitrary request handlers.
package store

import (
	"context"

	"gorm.io/gorm"

	"github.com/parleyhq/parley/internal/model"
)

// Privileged is the elevated-privilege capability. Only the onboarding
// workflow and the seed bootstrap construct one.
type Privileged struct {
	db *gorm.DB
}

// NewPrivileged wraps the root database handle.
func NewPrivileged(db *gorm.DB) *Privileged {
	return &Privileged{db: db}
}

// DB exposes the unscoped handle to the packages entitled to it.
func (p *Privileged) DB() *gorm.DB { return p.db }

// ForOrg derives a tenant-scoped handle from the privileged one.
func (p *Privileged) ForOrg(orgID string) *Tenant {
	return NewTenant(p.db, orgID)
}

// Tenant is an org-scoped capability. Every query made through it is
// confined to one organization.
type Tenant struct {
	db    *gorm.DB
	orgID string
}

// NewTenant creates a handle scoped to orgID.
func NewTenant(db *gorm.DB, orgID string) *Tenant {
	return &Tenant{db: db, orgID: orgID}
}

// OrgID returns the organization this handle is confined to.
func (t *Tenant) OrgID() string { return t.orgID }

// Conversations returns a query over the tenant's conversations.
func (t *Tenant) Conversations() *gorm.DB {
	return t.db.Model(&model.Conversation{}).Where("org_id = ?", t.orgID)
}

// Messages returns a query over the tenant's messages.
func (t *Tenant) Messages() *gorm.DB {
	return t.db.Model(&model.Message{}).Where("org_id = ?", t.orgID)
}

// Create inserts v after stamping its org scope. It rejects models that do
// not belong to this tenant.
func (t *Tenant) Create(ctx context.Context, v any) error {
	switch m := v.(type) {
	case *model.Conversation:
		m.OrgID = t.orgID
	case *model.Message:
		m.OrgID = t.orgID
	default:
		return gorm.ErrInvalidData
	}
	return t.db.WithContext(ctx).Create(v).Error
}
