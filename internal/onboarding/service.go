// Package onboarding converts a freshly authenticated user identity plus a
// human-supplied organization name into a durable (Organization, Profile)
// pair, safely callable more than once.
package onboarding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"gorm.io/gorm"

	"github.com/parleyhq/parley/internal/model"
	"github.com/parleyhq/parley/internal/store"
)

// DefaultOrgName is used when the caller supplies an empty or blank
// organization name.
const DefaultOrgName = "Default Organization"

var (
	// ErrAlreadyOnboarded is returned when a profile already exists for the
	// user identity.
	ErrAlreadyOnboarded = errors.New("user already onboarded")
	// ErrNotOnboarded is returned by callers that require a membership the
	// identity does not yet have.
	ErrNotOnboarded = errors.New("user not onboarded")
)

// Service runs the onboarding workflow. It is the only request-path holder
// of the privileged store: creating an organization is a cross-tenant write
// that happens before any membership exists to authorize it.
type Service struct {
	priv *store.Privileged
	log  *slog.Logger
}

// New creates a Service.
func New(priv *store.Privileged, log *slog.Logger) *Service {
	return &Service{priv: priv, log: log}
}

// Result is the outcome of Onboard.
type Result struct {
	Organization *model.Organization
	Profile      *model.Profile
	// AlreadyOnboarded is true when the records existed before this call.
	AlreadyOnboarded bool
}

// IsOnboarded reports whether a profile exists for userID. A missing row is
// not an error; anything else propagates.
func (s *Service) IsOnboarded(ctx context.Context, userID string) (bool, error) {
	p, err := s.ProfileFor(ctx, userID)
	if err != nil {
		return false, err
	}
	return p != nil, nil
}

// ProfileFor returns the profile for userID, or nil when none exists.
func (s *Service) ProfileFor(ctx context.Context, userID string) (*model.Profile, error) {
	var p model.Profile
	err := s.priv.DB().WithContext(ctx).First(&p, "id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	return &p, nil
}

// FindOrCreateOrganization resolves name to an organization, creating it on
// first reference. Matching is on the normalized name (trimmed,
// case-insensitive); a blank name resolves to DefaultOrgName. The insert
// races against concurrent creators on the unique name_key index: the loser
// re-fetches the winner's row, so at most one organization exists per
// normalized name.
func (s *Service) FindOrCreateOrganization(ctx context.Context, name string) (*model.Organization, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultOrgName
	}
	key := model.NormalizeOrgName(name)

	db := s.priv.DB().WithContext(ctx)

	var org model.Organization
	err := db.First(&org, "name_key = ?", key).Error
	if err == nil {
		return &org, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("find organization: %w", err)
	}

	org = model.Organization{Name: name, NameKey: key}
	err = db.Create(&org).Error
	if err == nil {
		s.log.Info("organization created", "org_id", org.ID, "name", org.Name)
		return &org, nil
	}
	if isDuplicate(err) {
		// Lost the insert race; the winner's row is now visible.
		var existing model.Organization
		if err := db.First(&existing, "name_key = ?", key).Error; err != nil {
			return nil, fmt.Errorf("refetch organization after conflict: %w", err)
		}
		return &existing, nil
	}
	return nil, fmt.Errorf("create organization: %w", err)
}

// CreateProfile inserts the membership record for userID in orgID. The role
// is always "member"; role escalation is an admin capability outside this
// workflow. A duplicate insert surfaces ErrAlreadyOnboarded.
func (s *Service) CreateProfile(ctx context.Context, userID, orgID string, fullName *string) (*model.Profile, error) {
	p := model.Profile{
		ID:             userID,
		OrganizationID: orgID,
		Role:           model.RoleMember,
		FullName:       fullName,
	}
	if err := s.priv.DB().WithContext(ctx).Create(&p).Error; err != nil {
		if isDuplicate(err) {
			return nil, fmt.Errorf("%w: profile %s exists", ErrAlreadyOnboarded, userID)
		}
		return nil, fmt.Errorf("create profile: %w", err)
	}
	return &p, nil
}

// Onboard orchestrates find-or-create-organization followed by profile
// creation. Calling it again for an onboarded user returns the existing
// records with AlreadyOnboarded set and performs no writes. There is no
// compensating delete when profile creation fails after the organization was
// created: organizations are shared, not owned per-user, so the row is kept.
func (s *Service) Onboard(ctx context.Context, userID, orgName string, fullName *string) (*Result, error) {
	existing, err := s.ProfileFor(ctx, userID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		var org model.Organization
		if err := s.priv.DB().WithContext(ctx).First(&org, "id = ?", existing.OrganizationID).Error; err != nil {
			return nil, fmt.Errorf("load organization: %w", err)
		}
		return &Result{Organization: &org, Profile: existing, AlreadyOnboarded: true}, nil
	}

	org, err := s.FindOrCreateOrganization(ctx, orgName)
	if err != nil {
		return nil, err
	}

	profile, err := s.CreateProfile(ctx, userID, org.ID, fullName)
	if err != nil {
		if errors.Is(err, ErrAlreadyOnboarded) {
			// A concurrent call won the profile insert; fall back to its records.
			return s.Onboard(ctx, userID, orgName, fullName)
		}
		return nil, err
	}

	s.log.Info("user onboarded", "user_id", userID, "org_id", org.ID)
	return &Result{Organization: org, Profile: profile}, nil
}

// isDuplicate reports whether err is a primary-key or unique-index violation.
// GORM translates these to ErrDuplicatedKey on both drivers; the string check
// covers paths where translation is unavailable.
func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate key")
}
