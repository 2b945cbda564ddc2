package queue

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestQueue(t *testing.T) (*Queue, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewQueue(client, nil), mr
}

func TestQueue_EnqueueDequeue(t *testing.T) {
	ctx := context.Background()
	q, _ := newTestQueue(t)

	job := Job{ID: uuid.New(), OrgID: 42, Kind: "recompute_sales"}
	require.NoError(t, q.Enqueue(ctx, job))

	n, err := q.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := q.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, job.ID, got.ID)
	assert.Equal(t, int64(42), got.OrgID)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestQueue_RejectsUnscopedJob(t *testing.T) {
	q, _ := newTestQueue(t)
	err := q.Enqueue(context.Background(), Job{ID: uuid.New(), Kind: "recompute_sales"})
	assert.Error(t, err)
}

func TestQueue_InvalidPayloadSkipped(t *testing.T) {
	q, mr := newTestQueue(t)
	_, err := mr.Lpush(QueueJobs, "{not json")
	require.NoError(t, err)

	got, err := q.Dequeue(context.Background(), time.Second)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestQueue_RetryThenDLQ(t *testing.T) {
	ctx := context.Background()
	q, mr := newTestQueue(t)
	job := &Job{ID: uuid.New(), OrgID: 1, Kind: "recompute_sales"}

	for i := 1; i < MaxRetries; i++ {
		dead, err := q.Retry(ctx, job)
		require.NoError(t, err)
		assert.False(t, dead)
	}
	dead, err := q.Retry(ctx, job)
	require.NoError(t, err)
	assert.True(t, dead)

	dlq, err := mr.List(QueueDLQ)
	require.NoError(t, err)
	assert.Len(t, dlq, 1)
	queued, err := mr.List(QueueJobs)
	require.NoError(t, err)
	assert.Len(t, queued, MaxRetries-1)
}
