package identity

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sellerdesk/backend/internal/apperr"
	"github.com/sellerdesk/backend/internal/models"
)

type fakeProvisioner struct {
	mu    sync.Mutex
	users map[string]*models.User
	err   error
}

func (f *fakeProvisioner) FindOrProvision(_ context.Context, externalID, displayName string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if f.users == nil {
		f.users = make(map[string]*models.User)
	}
	if u, ok := f.users[externalID]; ok {
		return u, nil
	}
	u := &models.User{ID: int64(len(f.users) + 1), ExternalIdentityID: externalID, DisplayName: displayName}
	f.users[externalID] = u
	return u, nil
}

func TestResolver_SignedAssertion(t *testing.T) {
	assertions := newTestAssertions()
	users := &fakeProvisioner{}
	r := NewResolver(assertions, users, false, nil)

	token, err := assertions.Sign("host-1", "Ada", testNow)
	require.NoError(t, err)

	id, err := r.Resolve(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, int64(1), id.UserID)
	assert.Equal(t, "host-1", id.ExternalIdentityID)

	again, err := r.Resolve(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, id, again, "second sight returns the same user")
	assert.Len(t, users.users, 1)
}

func TestResolver_TestTokens(t *testing.T) {
	users := &fakeProvisioner{}

	t.Run("enabled", func(t *testing.T) {
		r := NewResolver(nil, users, true, nil)
		id, err := r.Resolve(context.Background(), "tenant:alice")
		require.NoError(t, err)
		assert.Equal(t, "alice", id.ExternalIdentityID)
	})

	t.Run("disabled", func(t *testing.T) {
		r := NewResolver(newTestAssertions(), users, false, nil)
		_, err := r.Resolve(context.Background(), "tenant:alice")
		assert.True(t, apperr.IsAuthentication(err))
	})

	t.Run("empty identity", func(t *testing.T) {
		r := NewResolver(nil, users, true, nil)
		_, err := r.Resolve(context.Background(), "tenant:  ")
		assert.True(t, apperr.IsAuthentication(err))
	})
}

func TestResolver_Failures(t *testing.T) {
	r := NewResolver(newTestAssertions(), &fakeProvisioner{}, false, nil)

	_, err := r.Resolve(context.Background(), "")
	assert.True(t, apperr.IsAuthentication(err))

	_, err = r.Resolve(context.Background(), "bogus")
	assert.True(t, apperr.IsAuthentication(err))

	boom := errors.New("db down")
	r = NewResolver(nil, &fakeProvisioner{err: boom}, true, nil)
	_, err = r.Resolve(context.Background(), "tenant:bob")
	assert.ErrorIs(t, err, boom)
	assert.False(t, apperr.IsAuthentication(err))
}
