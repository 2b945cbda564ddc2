package quota

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/sellerdesk/backend/internal/scopedb"
)

// PostgresStore keeps buckets in the quota_buckets table using an atomic upsert.
type PostgresStore struct {
	exec *scopedb.Executor
}

// NewPostgresStore creates a Postgres-backed counter store.
func NewPostgresStore(exec *scopedb.Executor) *PostgresStore {
	return &PostgresStore{exec: exec}
}

// Increment upserts the bucket and returns the post-increment count.
func (s *PostgresStore) Increment(ctx context.Context, orgID int64, limitKey string, bucket int64, _ time.Duration) (int64, error) {
	const q = `INSERT INTO quota_buckets (org_id, limit_key, time_bucket, count)
		VALUES (@org_id, @limit_key, @time_bucket, 1)
		ON CONFLICT (org_id, limit_key, time_bucket)
		DO UPDATE SET count = quota_buckets.count + 1
		RETURNING count`
	var count int64
	err := s.exec.QueryRowScoped(ctx, orgID, q, pgx.NamedArgs{
		"limit_key":   limitKey,
		"time_bucket": bucket,
	}).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("increment quota bucket: %w", err)
	}
	return count, nil
}

// Prune deletes this organization's expired buckets for limitKey.
func (s *PostgresStore) Prune(ctx context.Context, orgID int64, limitKey string, before int64) error {
	const q = `DELETE FROM quota_buckets
		WHERE org_id = @org_id AND limit_key = @limit_key AND time_bucket < @before`
	_, err := s.exec.ExecScoped(ctx, orgID, q, pgx.NamedArgs{
		"limit_key": limitKey,
		"before":    before,
	})
	return err
}
