// Package worker drains the tenant job queue. Every job carries exactly one org id and all
// of its datastore access is scoped to it.
package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sellerdesk/backend/internal/apperr"
	"github.com/sellerdesk/backend/internal/models"
	"github.com/sellerdesk/backend/pkg/queue"
)

// JobStore tracks job status rows.
type JobStore interface {
	MarkRunning(ctx context.Context, orgID int64, id uuid.UUID) (bool, error)
	Finish(ctx context.Context, orgID int64, id uuid.UUID, cause error) error
	Requeue(ctx context.Context, orgID int64, id uuid.UUID, cause error) (bool, error)
}

// JobQueue is the Redis queue the worker drains.
type JobQueue interface {
	Dequeue(ctx context.Context, timeout time.Duration) (*queue.Job, error)
	Retry(ctx context.Context, job *queue.Job) (bool, error)
	Len(ctx context.Context) (int64, error)
}

// SummaryRecomputer rebuilds an org's sales summary.
type SummaryRecomputer interface {
	Recompute(ctx context.Context, orgID int64) error
}

// Processor runs background jobs.
type Processor struct {
	jobs    JobStore
	queue   JobQueue
	sales   SummaryRecomputer
	logger  *zap.Logger
	backoff time.Duration
}

// NewProcessor creates a job processor.
func NewProcessor(jobs JobStore, q JobQueue, sales SummaryRecomputer, logger *zap.Logger) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{jobs: jobs, queue: q, sales: sales, logger: logger, backoff: queue.RetryBackoff}
}

// Process executes one job.
func (p *Processor) Process(ctx context.Context, job *queue.Job) error {
	if job.OrgID <= 0 {
		return &apperr.ScopeViolation{Kind: apperr.KindMissingOrgID, StatementPrefix: "job " + job.ID.String()}
	}
	switch job.Kind {
	case models.JobKindRecomputeSales:
		return p.sales.Recompute(ctx, job.OrgID)
	default:
		return fmt.Errorf("unknown job kind: %s", job.Kind)
	}
}

// Handle runs job and records its outcome, retrying transient failures through the queue.
// It returns the job's failure, if any.
func (p *Processor) Handle(ctx context.Context, job *queue.Job) error {
	log := p.logger.With(
		zap.String("job_id", job.ID.String()),
		zap.Int64("org_id", job.OrgID),
		zap.String("kind", job.Kind),
	)
	if job.OrgID <= 0 {
		log.Error("dropping job without org id")
		return nil
	}
	ok, err := p.jobs.MarkRunning(ctx, job.OrgID, job.ID)
	if err != nil {
		log.Error("mark running failed", zap.Error(err))
		return nil
	}
	if !ok {
		log.Info("job already finished or not found for org")
		return nil
	}

	err = p.Process(ctx, job)
	if err == nil {
		if ferr := p.jobs.Finish(ctx, job.OrgID, job.ID, nil); ferr != nil {
			log.Error("mark done failed", zap.Error(ferr))
		}
		log.Info("job completed")
		return nil
	}

	log.Error("job failed", zap.Int("attempt", job.Attempt), zap.Error(err))
	// a scope violation is a defect, retrying it would only repeat it
	if apperr.IsScopeViolation(err) {
		p.fail(ctx, log, job, err)
		return err
	}
	// the row goes back to pending before the envelope is visible to other workers
	requeued, rerr := p.jobs.Requeue(ctx, job.OrgID, job.ID, err)
	if rerr != nil {
		log.Error("requeue status failed", zap.Error(rerr))
		p.fail(ctx, log, job, err)
		return err
	}
	if !requeued {
		log.Info("job no longer running, not retried")
		return err
	}
	dead, rerr := p.queue.Retry(ctx, job)
	if rerr != nil {
		log.Error("retry enqueue failed", zap.Error(rerr))
	}
	if dead || rerr != nil {
		p.fail(ctx, log, job, err)
	}
	return err
}

func (p *Processor) fail(ctx context.Context, log *zap.Logger, job *queue.Job, cause error) {
	if ferr := p.jobs.Finish(ctx, job.OrgID, job.ID, cause); ferr != nil {
		log.Error("mark failed failed", zap.Error(ferr))
	}
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *Processor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("job worker stopping")
			return
		default:
		}

		job, err := p.queue.Dequeue(ctx, 5*time.Second)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			p.logger.Warn("dequeue error", zap.Error(err))
			sleep(ctx, p.backoff)
			continue
		}
		if job == nil {
			continue
		}
		p.logger.Debug("processing job", zap.String("job_id", job.ID.String()), zap.String("kind", job.Kind))
		failed := p.Handle(ctx, job) != nil
		if depth, err := p.queue.Len(ctx); err == nil {
			p.logger.Debug("queue depth", zap.Int64("pending", depth))
		}
		if failed {
			sleep(ctx, p.backoff)
		}
	}
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
