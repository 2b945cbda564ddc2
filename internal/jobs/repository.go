package jobs

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/sellerdesk/backend/internal/apperr"
	"github.com/sellerdesk/backend/internal/models"
	"github.com/sellerdesk/backend/internal/scopedb"
)

// Repository handles background_jobs rows.
type Repository struct {
	exec *scopedb.Executor
}

// NewRepository creates a jobs repository.
func NewRepository(exec *scopedb.Executor) *Repository {
	return &Repository{exec: exec}
}

const jobColumns = `id, org_id, kind, status, attempts, error, requested_by, created_at, finished_at`

func scanJob(row pgx.Row) (*models.BackgroundJob, error) {
	var j models.BackgroundJob
	err := row.Scan(&j.ID, &j.OrgID, &j.Kind, &j.Status, &j.Attempts, &j.Error, &j.RequestedBy, &j.CreatedAt, &j.FinishedAt)
	if err != nil {
		return nil, err
	}
	return &j, nil
}

// Create inserts a pending job for orgID.
func (r *Repository) Create(ctx context.Context, orgID int64, kind string, requestedBy int64) (*models.BackgroundJob, error) {
	return scanJob(r.exec.QueryRowScoped(ctx, orgID,
		`INSERT INTO background_jobs (id, org_id, kind, status, requested_by)
		VALUES (@id, @org_id, @kind, @status, @requested_by)
		RETURNING `+jobColumns,
		pgx.NamedArgs{"id": uuid.New(), "kind": kind, "status": models.JobStatusPending, "requested_by": requestedBy}))
}

// Get returns one job of orgID.
func (r *Repository) Get(ctx context.Context, orgID int64, id uuid.UUID) (*models.BackgroundJob, error) {
	j, err := scanJob(r.exec.QueryRowScoped(ctx, orgID,
		`SELECT `+jobColumns+` FROM background_jobs WHERE org_id = @org_id AND id = @id`,
		pgx.NamedArgs{"id": id}))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.ErrJobNotFound
	}
	return j, err
}

// List returns orgID's most recent jobs.
func (r *Repository) List(ctx context.Context, orgID int64, limit int) ([]*models.BackgroundJob, error) {
	rows, err := r.exec.QueryScoped(ctx, orgID,
		`SELECT `+jobColumns+` FROM background_jobs WHERE org_id = @org_id ORDER BY created_at DESC LIMIT @limit`,
		pgx.NamedArgs{"limit": limit})
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.BackgroundJob
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, j)
	}
	return list, rows.Err()
}

// CountPending counts jobs of orgID that are queued or running.
func (r *Repository) CountPending(ctx context.Context, orgID int64) (int64, error) {
	var n int64
	err := r.exec.QueryRowScoped(ctx, orgID,
		`SELECT COUNT(*) FROM background_jobs WHERE org_id = @org_id AND status IN (@pending, @running)`,
		pgx.NamedArgs{"pending": models.JobStatusPending, "running": models.JobStatusRunning}).Scan(&n)
	return n, err
}

// MarkRunning moves a job to running and bumps its attempt count. It reports false when
// the job is unknown to orgID or already finished.
func (r *Repository) MarkRunning(ctx context.Context, orgID int64, id uuid.UUID) (bool, error) {
	tag, err := r.exec.ExecScoped(ctx, orgID,
		`UPDATE background_jobs SET status = @running, attempts = attempts + 1
		WHERE org_id = @org_id AND id = @id AND status IN (@pending, @running)`,
		pgx.NamedArgs{"id": id, "pending": models.JobStatusPending, "running": models.JobStatusRunning})
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// Finish records the outcome of a job. A nil cause marks it done.
func (r *Repository) Finish(ctx context.Context, orgID int64, id uuid.UUID, cause error) error {
	status, msg := models.JobStatusDone, ""
	if cause != nil {
		status, msg = models.JobStatusFailed, cause.Error()
	}
	_, err := r.exec.ExecScoped(ctx, orgID,
		`UPDATE background_jobs SET status = @status, error = @error, finished_at = NOW()
		WHERE org_id = @org_id AND id = @id`,
		pgx.NamedArgs{"id": id, "status": status, "error": msg})
	return err
}

// Requeue returns a running job to pending after a retryable failure. It reports false when
// the job is no longer running, e.g. another worker already finished it.
func (r *Repository) Requeue(ctx context.Context, orgID int64, id uuid.UUID, cause error) (bool, error) {
	tag, err := r.exec.ExecScoped(ctx, orgID,
		`UPDATE background_jobs SET status = @pending, error = @error
		WHERE org_id = @org_id AND id = @id AND status = @running`,
		pgx.NamedArgs{"id": id, "pending": models.JobStatusPending, "running": models.JobStatusRunning, "error": cause.Error()})
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
