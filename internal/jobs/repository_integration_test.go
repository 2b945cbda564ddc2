//go:build integration

package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sellerdesk/backend/internal/identity"
	"github.com/sellerdesk/backend/internal/models"
	"github.com/sellerdesk/backend/internal/organizations"
	"github.com/sellerdesk/backend/internal/scopedb"
	"github.com/sellerdesk/backend/pkg/database/dbtest"
)

func TestIntegration_RequeueAfterFinishKeepsOutcome(t *testing.T) {
	ctx := context.Background()
	exec := scopedb.New(dbtest.Start(t), nil, nil)
	u, err := identity.NewRepository(exec, nil).FindOrProvision(ctx, "jobs-1", "Jobs")
	require.NoError(t, err)
	home, err := organizations.NewRepository(exec).ActiveMembership(ctx, u.ID)
	require.NoError(t, err)

	repo := NewRepository(exec)
	job, err := repo.Create(ctx, home.OrgID, models.JobKindRecomputeSales, u.ID)
	require.NoError(t, err)

	ok, err := repo.MarkRunning(ctx, home.OrgID, job.ID)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, repo.Finish(ctx, home.OrgID, job.ID, nil))

	ok, err = repo.Requeue(ctx, home.OrgID, job.ID, errors.New("late failure"))
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := repo.Get(ctx, home.OrgID, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusDone, got.Status)

	n, err := repo.CountPending(ctx, home.OrgID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestIntegration_RequeueRunningJob(t *testing.T) {
	ctx := context.Background()
	exec := scopedb.New(dbtest.Start(t), nil, nil)
	u, err := identity.NewRepository(exec, nil).FindOrProvision(ctx, "jobs-2", "Jobs")
	require.NoError(t, err)
	home, err := organizations.NewRepository(exec).ActiveMembership(ctx, u.ID)
	require.NoError(t, err)

	repo := NewRepository(exec)
	job, err := repo.Create(ctx, home.OrgID, models.JobKindRecomputeSales, u.ID)
	require.NoError(t, err)
	_, err = repo.MarkRunning(ctx, home.OrgID, job.ID)
	require.NoError(t, err)

	ok, err := repo.Requeue(ctx, home.OrgID, job.ID, errors.New("db timeout"))
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := repo.Get(ctx, home.OrgID, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusPending, got.Status)
	assert.Equal(t, 1, got.Attempts)
}
