package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// QueueJobs is the Redis list key for tenant background jobs.
	QueueJobs = "worker:jobs"
	// QueueDLQ is the dead-letter queue for failed jobs after retries.
	QueueDLQ = "worker:dlq"
	// MaxRetries is the number of times to retry a job before moving to DLQ.
	MaxRetries = 3
	// RetryBackoff is the delay between retries.
	RetryBackoff = 10 * time.Second
)

// Job is the envelope pushed to Redis. OrgID is the only tenant the worker may touch while
// processing it; the row in background_jobs is the source of truth for status.
type Job struct {
	ID        uuid.UUID `json:"id"`
	OrgID     int64     `json:"org_id"`
	Kind      string    `json:"kind"`
	Attempt   int       `json:"attempt"`
	CreatedAt time.Time `json:"created_at"`
}

// Queue enqueues and dequeues jobs via Redis.
type Queue struct {
	client *redis.Client
	key    string
	logger *zap.Logger
}

// NewQueue creates a new Redis-backed job queue.
func NewQueue(client *redis.Client, logger *zap.Logger) *Queue {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Queue{client: client, key: QueueJobs, logger: logger}
}

// Enqueue pushes job to the tail of the queue.
func (q *Queue) Enqueue(ctx context.Context, job Job) error {
	if job.OrgID <= 0 {
		return fmt.Errorf("enqueue job %s: missing org id", job.ID)
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}
	raw, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	if err := q.client.RPush(ctx, q.key, raw).Err(); err != nil {
		return fmt.Errorf("rpush: %w", err)
	}
	q.logger.Debug("enqueued job",
		zap.String("job_id", job.ID.String()),
		zap.Int64("org_id", job.OrgID),
		zap.String("kind", job.Kind),
	)
	return nil
}

// Dequeue blocks for up to timeout until a job is available. It returns nil when the
// wait timed out or the payload was unreadable.
func (q *Queue) Dequeue(ctx context.Context, timeout time.Duration) (*Job, error) {
	result, err := q.client.BLPop(ctx, timeout, q.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	if len(result) < 2 {
		return nil, nil
	}
	var job Job
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		q.logger.Warn("invalid job payload", zap.String("raw", result[1]), zap.Error(err))
		return nil, nil
	}
	return &job, nil
}

// Retry re-enqueues a job with incremented attempt. If attempt >= MaxRetries, pushes to DLQ instead.
// It reports whether the job went to the DLQ.
func (q *Queue) Retry(ctx context.Context, job *Job) (bool, error) {
	job.Attempt++
	raw, err := json.Marshal(job)
	if err != nil {
		return false, err
	}
	if job.Attempt >= MaxRetries {
		if err := q.client.RPush(ctx, QueueDLQ, raw).Err(); err != nil {
			q.logger.Error("dlq push failed", zap.Error(err), zap.String("job_id", job.ID.String()))
			return false, err
		}
		q.logger.Warn("job moved to DLQ", zap.String("job_id", job.ID.String()), zap.Int("attempt", job.Attempt))
		return true, nil
	}
	if err := q.client.RPush(ctx, q.key, raw).Err(); err != nil {
		return false, err
	}
	q.logger.Info("job retried", zap.String("job_id", job.ID.String()), zap.Int("attempt", job.Attempt))
	return false, nil
}

// Len returns the number of queued jobs.
func (q *Queue) Len(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.key).Result()
}
