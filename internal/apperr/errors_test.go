package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNotFoundError(t *testing.T) {
	t.Run("Error message", func(t *testing.T) {
		assert.Equal(t, "catalog item not found", ErrCatalogItemNotFound.Error())
	})

	t.Run("errors.Is by entity", func(t *testing.T) {
		assert.True(t, errors.Is(&NotFoundError{Entity: "job"}, ErrJobNotFound))
		assert.False(t, errors.Is(ErrJobNotFound, ErrUserNotFound))
	})

	t.Run("IsNotFound through wrapping", func(t *testing.T) {
		err := fmt.Errorf("load item: %w", ErrCatalogItemNotFound)
		assert.True(t, IsNotFound(err))
		assert.False(t, IsNotFound(ErrMembershipExists))
	})
}

func TestQuotaExceeded(t *testing.T) {
	t.Run("limit message", func(t *testing.T) {
		err := &QuotaExceeded{OrgID: 7, LimitKey: "api", Limit: 10}
		assert.Equal(t, "quota api exceeded for org 7 (limit 10)", err.Error())
		assert.True(t, IsQuotaExceeded(fmt.Errorf("wrap: %w", err)))
	})

	t.Run("fail closed keeps cause", func(t *testing.T) {
		cause := errors.New("connection refused")
		err := &QuotaExceeded{OrgID: 7, LimitKey: "api", Limit: 10, Cause: cause}
		assert.ErrorIs(t, err, cause)
		assert.Contains(t, err.Error(), "unavailable")
	})
}

func TestTaxonomyHelpers(t *testing.T) {
	assert.True(t, IsAuthentication(&AuthenticationError{Reason: "expired"}))
	assert.True(t, IsAuthorization(ErrNoMembership))
	assert.True(t, IsScopeViolation(&ScopeViolation{Kind: KindMissingOrgID}))
	assert.True(t, IsStructuralInvariant(ErrLastOwner))
	assert.True(t, IsAlreadyExists(ErrMembershipExists))
	assert.True(t, IsValidation(&ValidationError{Field: "sku", Message: "required"}))

	assert.False(t, IsAuthorization(&AuthenticationError{}))
	assert.Equal(t, "unauthenticated", (&AuthenticationError{}).Error())
	assert.Equal(t, "forbidden", (&AuthorizationError{}).Error())
}
