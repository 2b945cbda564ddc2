// Package orgscope carries the resolved (user, org, role) triple through a request.
// The value is always derived server side from the authenticated identity and is passed
// explicitly; there is no package-level "current organization".
package orgscope

import (
	"context"

	"github.com/sellerdesk/backend/internal/models"
)

// Scope is the Org Scope Context for one request.
type Scope struct {
	UserID int64
	OrgID  int64
	Role   models.Role
}

// Valid reports whether the scope names a real tenant and user.
func (s Scope) Valid() bool {
	return s.UserID > 0 && s.OrgID > 0 && s.Role.Valid()
}

type ctxKey struct{}

// WithScope returns a child context carrying s.
func WithScope(ctx context.Context, s Scope) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the scope stored by WithScope.
func FromContext(ctx context.Context) (Scope, bool) {
	s, ok := ctx.Value(ctxKey{}).(Scope)
	return s, ok
}

// Identity is the authenticated caller before an organization is chosen.
type Identity struct {
	UserID             int64
	ExternalIdentityID string
	DisplayName        string
}

type identityKey struct{}

// WithIdentity returns a child context carrying the authenticated identity.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext returns the identity stored by WithIdentity.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}
