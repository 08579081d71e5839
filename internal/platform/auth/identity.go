package auth

import (
	"context"
	"strings"

	"github.com/assetdeck/api/internal/domain"
)

type contextKey string

const identityKey contextKey = "github.com/assetdeck/api/internal/platform/auth/identity"

// Identity describes the authenticated caller attached to a request.
type Identity struct {
	UID   string
	Email string
	Role  domain.Role
}

// IsAdmin reports whether the identity carries the admin role.
func (i Identity) IsAdmin() bool {
	return i.Role == domain.RoleAdmin
}

// IsModerator reports whether the identity carries at least moderator privileges.
func (i Identity) IsModerator() bool {
	return i.Role == domain.RoleModerator || i.Role == domain.RoleAdmin
}

// Valid reports whether the identity names a subject.
func (i Identity) Valid() bool {
	return strings.TrimSpace(i.UID) != ""
}

// WithIdentity attaches the identity to the context.
func WithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// IdentityFromContext extracts the identity from the context, if present.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	if ctx == nil {
		return Identity{}, false
	}
	identity, ok := ctx.Value(identityKey).(Identity)
	if !ok || !identity.Valid() {
		return Identity{}, false
	}
	return identity, true
}
