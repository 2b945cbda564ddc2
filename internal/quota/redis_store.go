package quota

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps buckets as Redis counters that expire on their own.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a Redis-backed counter store.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, prefix: "quota"}
}

// BucketKey returns the Redis key for one bucket.
func (s *RedisStore) BucketKey(orgID int64, limitKey string, bucket int64) string {
	return fmt.Sprintf("%s:%d:%s:%d", s.prefix, orgID, limitKey, bucket)
}

// Increment runs INCR and EXPIRE in one MULTI/EXEC.
func (s *RedisStore) Increment(ctx context.Context, orgID int64, limitKey string, bucket int64, ttl time.Duration) (int64, error) {
	key := s.BucketKey(orgID, limitKey, bucket)
	var incr *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, ttl)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("incr %s: %w", key, err)
	}
	return incr.Val(), nil
}

// Prune is a no-op: keys expire through their TTL.
func (s *RedisStore) Prune(context.Context, int64, string, int64) error {
	return nil
}
