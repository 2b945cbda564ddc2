//go:build integration

package organizations

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sellerdesk/backend/internal/apperr"
	"github.com/sellerdesk/backend/internal/identity"
	"github.com/sellerdesk/backend/internal/models"
	"github.com/sellerdesk/backend/internal/scopedb"
	"github.com/sellerdesk/backend/pkg/database/dbtest"
)

func TestIntegration_Memberships(t *testing.T) {
	ctx := context.Background()
	exec := scopedb.New(dbtest.Start(t), nil, nil)
	users := identity.NewRepository(exec, nil)
	repo := NewRepository(exec)

	owner, err := users.FindOrProvision(ctx, "owner-1", "Owner")
	require.NoError(t, err)
	viewer, err := users.FindOrProvision(ctx, "viewer-1", "Viewer")
	require.NoError(t, err)

	home, err := repo.ActiveMembership(ctx, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleOwner, home.Role, "first sight provisions an owned default org")
	orgID := home.OrgID

	t.Run("add member", func(t *testing.T) {
		m, err := repo.AddMember(ctx, orgID, "viewer-1", models.RoleViewer)
		require.NoError(t, err)
		assert.Equal(t, viewer.ID, m.UserID)

		_, err = repo.AddMember(ctx, orgID, "viewer-1", models.RoleManager)
		assert.ErrorIs(t, err, apperr.ErrMembershipExists)

		_, err = repo.AddMember(ctx, orgID, "nobody", models.RoleViewer)
		assert.ErrorIs(t, err, apperr.ErrUserNotFound)
	})

	t.Run("last owner protected", func(t *testing.T) {
		err := repo.RemoveMember(ctx, orgID, owner.ID)
		assert.True(t, apperr.IsStructuralInvariant(err))

		err = repo.ChangeRole(ctx, orgID, owner.ID, models.RoleManager)
		assert.True(t, apperr.IsStructuralInvariant(err))

		members, err := repo.ListMembers(ctx, orgID)
		require.NoError(t, err)
		require.Len(t, members, 2)
		assert.Equal(t, models.RoleOwner, members[0].Role, "nothing was written")
	})

	t.Run("second owner unlocks removal", func(t *testing.T) {
		require.NoError(t, repo.ChangeRole(ctx, orgID, viewer.ID, models.RoleOwner))
		require.NoError(t, repo.RemoveMember(ctx, orgID, owner.ID))

		err := repo.RemoveMember(ctx, orgID, viewer.ID)
		assert.ErrorIs(t, err, apperr.ErrLastOwner)
	})

	t.Run("concurrent removal of two owners keeps one", func(t *testing.T) {
		org, err := repo.Create(ctx, "Race", owner.ID)
		require.NoError(t, err)
		_, err = repo.AddMember(ctx, org.ID, "viewer-1", models.RoleOwner)
		require.NoError(t, err)

		var wg sync.WaitGroup
		errs := make([]error, 2)
		for i, uid := range []int64{owner.ID, viewer.ID} {
			wg.Add(1)
			go func(i int, uid int64) {
				defer wg.Done()
				errs[i] = repo.RemoveMember(ctx, org.ID, uid)
			}(i, uid)
		}
		wg.Wait()

		failures := 0
		for _, err := range errs {
			if err != nil {
				failures++
			}
		}
		assert.Equal(t, 1, failures)
		members, err := repo.ListMembers(ctx, org.ID)
		require.NoError(t, err)
		assert.Len(t, members, 1)
	})

	t.Run("activate switches scope", func(t *testing.T) {
		org, err := repo.Create(ctx, "Second", viewer.ID)
		require.NoError(t, err)

		active, err := repo.ActiveMembership(ctx, viewer.ID)
		require.NoError(t, err)
		assert.Equal(t, org.ID, active.OrgID)

		require.NoError(t, repo.Activate(ctx, orgID, viewer.ID))
		active, err = repo.ActiveMembership(ctx, viewer.ID)
		require.NoError(t, err)
		assert.Equal(t, orgID, active.OrgID)

		other, err := users.FindOrProvision(ctx, "stranger", "")
		require.NoError(t, err)
		assert.ErrorIs(t, repo.Activate(ctx, orgID, other.ID), apperr.ErrMembershipNotFound)

		list, err := repo.ListForUser(ctx, viewer.ID)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, len(list), 2)
	})

	t.Run("members are scoped", func(t *testing.T) {
		stranger, err := repo.ActiveMembership(ctx, mustUser(t, users, "stranger").ID)
		require.NoError(t, err)
		members, err := repo.ListMembers(ctx, stranger.OrgID)
		require.NoError(t, err)
		require.Len(t, members, 1)
		assert.Equal(t, "stranger", members[0].ExternalIdentityID)
	})
}

func mustUser(t *testing.T, users *identity.Repository, externalID string) *models.User {
	t.Helper()
	u, err := users.GetByExternalID(context.Background(), externalID)
	require.NoError(t, err)
	return u
}
