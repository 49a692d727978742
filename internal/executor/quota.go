package executor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrQuotaExceeded is returned when a learner has used up their code runs.
var ErrQuotaExceeded = errors.New("code execution quota exceeded")

// Quota checks and records code runs against a per-learner daily limit.
type Quota interface {
	// Check returns true if the key has runs remaining.
	Check(ctx context.Context, key string) (bool, error)
	// Record counts one run for the key.
	Record(ctx context.Context, key string) error
	// Usage returns runs used and the limit for the key. A zero limit is unlimited.
	Usage(ctx context.Context, key string) (used int64, limit int64, err error)
}

// InMemoryQuota is a simple in-memory quota for development and tests.
// Counts never reset; RedisQuota is the daily-windowed production variant.
type InMemoryQuota struct {
	mu     sync.RWMutex
	limit  int64
	limits map[string]int64
	usage  map[string]int64
}

// NewInMemoryQuota creates an in-memory quota with a default limit (0 = unlimited).
func NewInMemoryQuota(limit int64) *InMemoryQuota {
	return &InMemoryQuota{
		limit:  limit,
		limits: make(map[string]int64),
		usage:  make(map[string]int64),
	}
}

// SetLimit overrides the limit for one key.
func (q *InMemoryQuota) SetLimit(key string, limit int64) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.limits[key] = limit
}

func (q *InMemoryQuota) Check(_ context.Context, key string) (bool, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	limit := q.limitFor(key)
	if limit == 0 {
		return true, nil
	}
	return q.usage[key] < limit, nil
}

func (q *InMemoryQuota) Record(_ context.Context, key string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.usage[key]++
	return nil
}

func (q *InMemoryQuota) Usage(_ context.Context, key string) (int64, int64, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.usage[key], q.limitFor(key), nil
}

func (q *InMemoryQuota) limitFor(key string) int64 {
	if l, ok := q.limits[key]; ok {
		return l
	}
	return q.limit
}

// RedisQuota counts runs per key per UTC day in Redis/Dragonfly.
type RedisQuota struct {
	client *redis.Client
	limit  int64
	now    func() time.Time
}

// NewRedisQuota creates a Redis-backed daily quota (0 = unlimited).
func NewRedisQuota(client *redis.Client, limit int64) *RedisQuota {
	return &RedisQuota{client: client, limit: limit, now: time.Now}
}

func (q *RedisQuota) Check(ctx context.Context, key string) (bool, error) {
	if q.limit == 0 {
		return true, nil
	}
	used, _, err := q.Usage(ctx, key)
	if err != nil {
		return false, err
	}
	return used < q.limit, nil
}

func (q *RedisQuota) Record(ctx context.Context, key string) error {
	k := q.windowKey(key)
	_, err := q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, k)
		pipe.Expire(ctx, k, 48*time.Hour)
		return nil
	})
	if err != nil {
		return fmt.Errorf("record code run: %w", err)
	}
	return nil
}

func (q *RedisQuota) Usage(ctx context.Context, key string) (int64, int64, error) {
	used, err := q.client.Get(ctx, q.windowKey(key)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, q.limit, nil
	}
	if err != nil {
		return 0, q.limit, fmt.Errorf("read code run usage: %w", err)
	}
	return used, q.limit, nil
}

func (q *RedisQuota) windowKey(key string) string {
	return "exec_quota:" + key + ":" + q.now().UTC().Format("20060102")
}
