// Package identity authenticates host identity assertions and lazily provisions users.
package identity

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/sellerdesk/backend/internal/apperr"
	"github.com/sellerdesk/backend/internal/models"
	"github.com/sellerdesk/backend/internal/orgscope"
)

// TestTokenPrefix marks automation bearer tokens: `tenant:<external-identity>`.
const TestTokenPrefix = "tenant:"

// Provisioner finds a user by external identity, creating the user together with a default
// organization and owner membership on first sight.
type Provisioner interface {
	FindOrProvision(ctx context.Context, externalID, displayName string) (*models.User, error)
}

// Resolver turns a presented credential into an authenticated identity.
type Resolver struct {
	assertions      *AssertionService
	users           Provisioner
	allowTestTokens bool
	logger          *zap.Logger
}

// NewResolver creates a resolver.
func NewResolver(assertions *AssertionService, users Provisioner, allowTestTokens bool, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{assertions: assertions, users: users, allowTestTokens: allowTestTokens, logger: logger}
}

// Resolve authenticates credential and returns the caller's identity. Any failure to
// authenticate is an *apperr.AuthenticationError whose detail is only logged.
func (r *Resolver) Resolve(ctx context.Context, credential string) (orgscope.Identity, error) {
	externalID, displayName, err := r.authenticate(credential)
	if err != nil {
		r.logger.Info("identity rejected", zap.Error(err))
		return orgscope.Identity{}, &apperr.AuthenticationError{Reason: err.Error()}
	}

	user, err := r.users.FindOrProvision(ctx, externalID, displayName)
	if err != nil {
		return orgscope.Identity{}, err
	}
	return orgscope.Identity{
		UserID:             user.ID,
		ExternalIdentityID: user.ExternalIdentityID,
		DisplayName:        user.DisplayName,
	}, nil
}

func (r *Resolver) authenticate(credential string) (string, string, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return "", "", errors.New("missing credential")
	}
	if strings.HasPrefix(credential, TestTokenPrefix) {
		if !r.allowTestTokens {
			return "", "", errors.New("test tokens disabled")
		}
		id := strings.TrimSpace(strings.TrimPrefix(credential, TestTokenPrefix))
		if id == "" {
			return "", "", errors.New("empty test token identity")
		}
		return id, id, nil
	}
	if r.assertions == nil {
		return "", "", errors.New("signed assertions not configured")
	}
	claims, err := r.assertions.Verify(credential)
	if err != nil {
		return "", "", err
	}
	return claims.Subject, claims.DisplayName, nil
}
