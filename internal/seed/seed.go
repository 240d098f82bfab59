// Package seed creates a demo tenant on first boot when no profiles exist.
package seed

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/parleyhq/parley/internal/model"
	"github.com/parleyhq/parley/internal/store"
)

// TenantOptions configures the seed tenant. When OrgName or AdminUserID is
// empty, seeding is skipped entirely.
type TenantOptions struct {
	OrgName     string
	AdminUserID string
	AdminEmail  string
}

// EnsureDemoTenant creates the seed organization and an admin profile when
// the profiles table is empty. This is the only place an admin role
// originates; every onboarded user is a member. The function is idempotent
// and safe to call on every startup.
func EnsureDemoTenant(ctx context.Context, priv *store.Privileged, opts TenantOptions, log *slog.Logger) error {
	if opts.OrgName == "" || opts.AdminUserID == "" {
		log.Debug("seed tenant not configured; skipping")
		return nil
	}

	db := priv.DB().WithContext(ctx)

	var count int64
	if err := db.Model(&model.Profile{}).Count(&count).Error; err != nil {
		return fmt.Errorf("count profiles: %w", err)
	}
	if count > 0 {
		log.Info("seed tenant already exists")
		return nil
	}

	org := &model.Organization{Name: opts.OrgName}
	if err := db.Create(org).Error; err != nil {
		return fmt.Errorf("insert seed organization: %w", err)
	}

	p := &model.Profile{
		ID:             opts.AdminUserID,
		OrganizationID: org.ID,
		Role:           model.RoleAdmin,
	}
	if err := db.Create(p).Error; err != nil {
		return fmt.Errorf("insert seed admin profile: %w", err)
	}

	log.Info("seed tenant created", "org", opts.OrgName, "admin_user_id", opts.AdminUserID, "admin_email", opts.AdminEmail)
	return nil
}
