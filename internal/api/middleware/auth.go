// Package middleware provides HTTP middleware for Parley.
package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/parleyhq/parley/internal/api/respond"
	"github.com/parleyhq/parley/internal/auth"
	"github.com/parleyhq/parley/internal/model"
)

type contextKey string

const identityKey contextKey = "auth_identity"

// Identity is the resolved caller of an authenticated request. OrgID and
// Role are empty until the user has onboarded.
type Identity struct {
	UserID   string
	Email    string
	FullName string
	OrgID    string
	Role     string
}

// Onboarded reports whether the caller has an organization membership.
func (id *Identity) Onboarded() bool { return id.OrgID != "" }

// MembershipResolver looks up the caller's profile. A missing profile is not
// an error; it returns (nil, nil).
type MembershipResolver interface {
	ProfileFor(ctx context.Context, userID string) (*model.Profile, error)
}

// RequireAuth validates the Bearer JWT in the Authorization header against
// the signing key and expected issuer, then resolves the caller's
// organization membership. On success it injects an *Identity into the
// request context; a caller who has not onboarded still passes, with an
// empty OrgID. On failure it writes a 401 JSON error.
func RequireAuth(secret, issuer string, members MembershipResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractBearerToken(r)
			if token == "" {
				respond.Error(w, http.StatusUnauthorized,
					respond.KindAuthentication, "Authorization header is required")
				return
			}

			claims, err := auth.ParseAccessToken(token, secret, issuer)
			if err != nil {
				respond.Error(w, http.StatusUnauthorized,
					respond.KindAuthentication, "access token is invalid or expired")
				return
			}

			id := &Identity{
				UserID:   claims.UserID(),
				Email:    claims.Email,
				FullName: claims.FullName,
			}
			profile, err := members.ProfileFor(r.Context(), id.UserID)
			if err != nil {
				respond.Error(w, http.StatusInternalServerError,
					respond.KindUpstream, "could not resolve user membership")
				return
			}
			if profile != nil {
				id.OrgID = profile.OrganizationID
				id.Role = profile.Role
			}

			ctx := context.WithValue(r.Context(), identityKey, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IdentityFromContext extracts the resolved Identity from the request
// context. Returns nil if not present.
func IdentityFromContext(ctx context.Context) *Identity {
	v := ctx.Value(identityKey)
	if v == nil {
		return nil
	}
	id, _ := v.(*Identity)
	return id
}

// RequireServiceKey admits only callers presenting the service role key as a
// Bearer credential. It is for trusted service-to-service endpoints and does
// not resolve an Identity.
func RequireServiceKey(serviceKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractBearerToken(r)
			if token == "" {
				respond.Error(w, http.StatusUnauthorized,
					respond.KindAuthentication, "Authorization header is required")
				return
			}
			if subtle.ConstantTimeCompare([]byte(token), []byte(serviceKey)) != 1 {
				respond.Error(w, http.StatusUnauthorized,
					respond.KindAuthentication, "invalid service credential")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func extractBearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if h == "" {
		return ""
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return parts[1]
}
