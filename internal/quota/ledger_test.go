package quota

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sellerdesk/backend/internal/apperr"
)

// memStore mimics the atomic upsert of the durable stores for unit tests.
type memStore struct {
	mu      sync.Mutex
	buckets map[string]int64
	pruned  []int64
	err     error
}

func newMemStore() *memStore {
	return &memStore{buckets: make(map[string]int64)}
}

func (m *memStore) Increment(_ context.Context, orgID int64, limitKey string, bucket int64, _ time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	k := fmt.Sprintf("%d/%s/%d", orgID, limitKey, bucket)
	m.buckets[k]++
	return m.buckets[k], nil
}

func (m *memStore) Prune(_ context.Context, _ int64, _ string, before int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pruned = append(m.pruned, before)
	return nil
}

type fixedJobs struct {
	pending int64
	err     error
}

func (f fixedJobs) CountPending(context.Context, int64) (int64, error) { return f.pending, f.err }

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newClock() *clock {
	return &clock{t: time.Unix(1_700_000_000, 100_000_000)}
}

func TestCheckRate_AllowsExactlyQuotaThenResets(t *testing.T) {
	ctx := context.Background()
	clk := newClock()
	l := NewLedger(newMemStore(), fixedJobs{}, nil).WithClock(clk.Now)

	for i := 1; i <= 10; i++ {
		require.NoError(t, l.CheckRate(ctx, 1, KeyAPI, 10), "call %d", i)
	}
	for i := 11; i <= 20; i++ {
		err := l.CheckRate(ctx, 1, KeyAPI, 10)
		var qe *apperr.QuotaExceeded
		require.ErrorAs(t, err, &qe, "call %d", i)
		assert.Equal(t, int64(10), qe.Limit)
		assert.Greater(t, qe.RetryAfter, time.Duration(0))
		assert.NoError(t, qe.Cause)
	}

	clk.Advance(time.Second)
	assert.NoError(t, l.CheckRate(ctx, 1, KeyAPI, 10), "first call of the next window")
}

func TestCheckRate_IsolatedByOrgAndKey(t *testing.T) {
	ctx := context.Background()
	clk := newClock()
	l := NewLedger(newMemStore(), fixedJobs{}, nil).WithClock(clk.Now)

	for i := 0; i < 3; i++ {
		_ = l.CheckRate(ctx, 1, KeyAPI, 2)
	}
	require.True(t, apperr.IsQuotaExceeded(l.CheckRate(ctx, 1, KeyAPI, 2)))

	assert.NoError(t, l.CheckRate(ctx, 2, KeyAPI, 2))
	assert.NoError(t, l.CheckRate(ctx, 1, "compute", 2))
}

func TestCheckRate_ConcurrentOrgsScenario(t *testing.T) {
	ctx := context.Background()
	clk := newClock()
	l := NewLedger(newMemStore(), fixedJobs{}, nil).WithClock(clk.Now)

	var allowed [3]atomic.Int64
	var wg sync.WaitGroup
	for _, org := range []int64{1, 2} {
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func(org int64) {
				defer wg.Done()
				if l.CheckRate(ctx, org, KeyAPI, 10) == nil {
					allowed[org].Add(1)
				}
			}(org)
		}
	}
	wg.Wait()

	assert.Equal(t, int64(10), allowed[1].Load())
	assert.Equal(t, int64(10), allowed[2].Load())

	clk.Advance(time.Second)
	assert.NoError(t, l.CheckRate(ctx, 1, KeyAPI, 10))
}

func TestCheckRate_PrunesOldBuckets(t *testing.T) {
	store := newMemStore()
	clk := newClock()
	l := NewLedger(store, fixedJobs{}, nil).WithClock(clk.Now)

	require.NoError(t, l.CheckRate(context.Background(), 1, KeyAPI, 10))
	require.Len(t, store.pruned, 1)
	assert.Equal(t, clk.Now().Add(-retention).Unix(), store.pruned[0])
}

func TestCheckRate_FailsClosed(t *testing.T) {
	store := newMemStore()
	store.err = errors.New("connection refused")
	l := NewLedger(store, fixedJobs{}, nil)

	err := l.CheckRate(context.Background(), 1, KeyAPI, 10)
	var qe *apperr.QuotaExceeded
	require.ErrorAs(t, err, &qe)
	assert.ErrorIs(t, err, store.err)
}

func TestCheckRate_ScopeViolationPropagates(t *testing.T) {
	store := newMemStore()
	store.err = fmt.Errorf("increment: %w", &apperr.ScopeViolation{Kind: apperr.KindMissingOrgID})
	l := NewLedger(store, fixedJobs{}, nil)

	err := l.CheckRate(context.Background(), 0, KeyAPI, 10)
	assert.True(t, apperr.IsScopeViolation(err))
	assert.False(t, apperr.IsQuotaExceeded(err))
}

func TestCheckExportLimit(t *testing.T) {
	l := NewLedger(newMemStore(), fixedJobs{}, nil)

	assert.NoError(t, l.CheckExportLimit(1, 100, 100))
	assert.NoError(t, l.CheckExportLimit(1, 0, 100))

	err := l.CheckExportLimit(1, 101, 100)
	var qe *apperr.QuotaExceeded
	require.ErrorAs(t, err, &qe)
	assert.Equal(t, KeyExport, qe.LimitKey)
	assert.Equal(t, int64(100), qe.Limit)
}

func TestCheckJobQueueLimit(t *testing.T) {
	ctx := context.Background()

	t.Run("below limit", func(t *testing.T) {
		l := NewLedger(newMemStore(), fixedJobs{pending: 4}, nil)
		assert.NoError(t, l.CheckJobQueueLimit(ctx, 1, 5))
	})

	t.Run("at limit", func(t *testing.T) {
		l := NewLedger(newMemStore(), fixedJobs{pending: 5}, nil)
		err := l.CheckJobQueueLimit(ctx, 1, 5)
		var qe *apperr.QuotaExceeded
		require.ErrorAs(t, err, &qe)
		assert.Equal(t, KeyJobQueue, qe.LimitKey)
	})

	t.Run("fails closed", func(t *testing.T) {
		l := NewLedger(newMemStore(), fixedJobs{err: errors.New("timeout")}, nil)
		assert.True(t, apperr.IsQuotaExceeded(l.CheckJobQueueLimit(ctx, 1, 5)))
	})
}
