package progress

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// maxAddAttempts bounds optimistic retries when concurrent adds collide.
const maxAddAttempts = 5

// RedisLocalCache stores per-device ordinal lists in Redis/Dragonfly.
type RedisLocalCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisLocalCache creates a Redis-backed local cache. A zero ttl keeps
// entries until they are cleared.
func NewRedisLocalCache(client *redis.Client, ttl time.Duration) *RedisLocalCache {
	return &RedisLocalCache{client: client, ttl: ttl}
}

func (c *RedisLocalCache) Read(ctx context.Context, deviceID, courseID, sectionID string) ([]byte, error) {
	v, err := c.client.Get(ctx, deviceKey(deviceID, courseID, sectionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read local progress: %w", err)
	}
	return v, nil
}

func (c *RedisLocalCache) Write(ctx context.Context, deviceID, courseID, sectionID string, ordinals []int) error {
	if err := c.client.Set(ctx, deviceKey(deviceID, courseID, sectionID), EncodeOrdinals(ordinals), c.ttl).Err(); err != nil {
		return fmt.Errorf("write local progress: %w", err)
	}
	return nil
}

// Add merges ordinal into the stored list with a WATCH/MULTI check-and-set,
// retrying when another writer changed the key in between.
func (c *RedisLocalCache) Add(ctx context.Context, deviceID, courseID, sectionID string, ordinal int) ([]byte, error) {
	key := deviceKey(deviceID, courseID, sectionID)
	var out []byte
	txf := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		out = EncodeOrdinals(append(DecodeOrdinals(raw), ordinal))
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, out, c.ttl)
			return nil
		})
		return err
	}

	for range maxAddAttempts {
		err := c.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("add local progress: %w", err)
		}
		return out, nil
	}
	return nil, fmt.Errorf("add local progress: too many concurrent updates to %s", key)
}

func (c *RedisLocalCache) Clear(ctx context.Context, deviceID, courseID, sectionID string) error {
	if err := c.client.Del(ctx, deviceKey(deviceID, courseID, sectionID)).Err(); err != nil {
		return fmt.Errorf("clear local progress: %w", err)
	}
	return nil
}
