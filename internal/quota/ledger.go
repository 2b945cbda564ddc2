// Package quota implements the per-tenant quota ledger: request rate, export size and
// background job queue depth. Every check fails closed.
package quota

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sellerdesk/backend/internal/apperr"
)

// Limit keys.
const (
	KeyAPI      = "api"
	KeyExport   = "export_rows"
	KeyJobQueue = "job_queue"
)

const (
	window = time.Second
	// retention is how far back buckets are kept before opportunistic pruning.
	retention = 5 * time.Second
)

// Store is a durable atomic counter keyed by (org, limit key, time bucket).
type Store interface {
	// Increment atomically adds one to the bucket, creating it if needed, and returns
	// the new count. ttl is a hint for stores that expire keys themselves.
	Increment(ctx context.Context, orgID int64, limitKey string, bucket int64, ttl time.Duration) (int64, error)
	// Prune deletes buckets older than before.
	Prune(ctx context.Context, orgID int64, limitKey string, before int64) error
}

// PendingJobCounter counts background jobs not yet picked up for an organization.
type PendingJobCounter interface {
	CountPending(ctx context.Context, orgID int64) (int64, error)
}

// Ledger runs the three quota checks.
type Ledger struct {
	store  Store
	jobs   PendingJobCounter
	logger *zap.Logger
	now    func() time.Time
}

// NewLedger creates a ledger.
func NewLedger(store Store, jobs PendingJobCounter, logger *zap.Logger) *Ledger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ledger{store: store, jobs: jobs, logger: logger, now: time.Now}
}

// WithClock overrides the clock, for tests.
func (l *Ledger) WithClock(now func() time.Time) *Ledger {
	l.now = now
	return l
}

// CheckRate counts one request in the current one-second window for (orgID, limitKey) and
// rejects it once the count exceeds perSecond.
func (l *Ledger) CheckRate(ctx context.Context, orgID int64, limitKey string, perSecond int64) error {
	now := l.now()
	bucket := now.Unix()

	count, err := l.store.Increment(ctx, orgID, limitKey, bucket, retention)
	if err != nil {
		return l.failClosed(orgID, limitKey, perSecond, err)
	}

	if err := l.store.Prune(ctx, orgID, limitKey, now.Add(-retention).Unix()); err != nil {
		l.logger.Debug("prune quota buckets", zap.Int64("org_id", orgID), zap.String("limit_key", limitKey), zap.Error(err))
	}

	if count > perSecond {
		l.logger.Debug("rate quota exceeded",
			zap.Int64("org_id", orgID),
			zap.String("limit_key", limitKey),
			zap.Int64("count", count),
			zap.Int64("limit", perSecond),
		)
		return &apperr.QuotaExceeded{
			OrgID:      orgID,
			LimitKey:   limitKey,
			Limit:      perSecond,
			RetryAfter: time.Unix(bucket+1, 0).Sub(now),
		}
	}
	return nil
}

// CheckExportLimit rejects exports asking for more than maxRows. Callers clamp their
// query LIMIT to maxRows regardless.
func (l *Ledger) CheckExportLimit(orgID, requestedRows, maxRows int64) error {
	if requestedRows > maxRows {
		return &apperr.QuotaExceeded{OrgID: orgID, LimitKey: KeyExport, Limit: maxRows}
	}
	return nil
}

// CheckJobQueueLimit rejects enqueueing when the organization already has maxEnqueued
// pending jobs.
func (l *Ledger) CheckJobQueueLimit(ctx context.Context, orgID, maxEnqueued int64) error {
	pending, err := l.jobs.CountPending(ctx, orgID)
	if err != nil {
		return l.failClosed(orgID, KeyJobQueue, maxEnqueued, err)
	}
	if pending+1 > maxEnqueued {
		return &apperr.QuotaExceeded{OrgID: orgID, LimitKey: KeyJobQueue, Limit: maxEnqueued}
	}
	return nil
}

func (l *Ledger) failClosed(orgID int64, limitKey string, limit int64, err error) error {
	// scope violations are fatal and must not be downgraded to a quota rejection
	if apperr.IsScopeViolation(err) {
		return err
	}
	l.logger.Warn("quota store unavailable, rejecting",
		zap.Int64("org_id", orgID),
		zap.String("limit_key", limitKey),
		zap.Error(err),
	)
	return &apperr.QuotaExceeded{OrgID: orgID, LimitKey: limitKey, Limit: limit, RetryAfter: window, Cause: err}
}
