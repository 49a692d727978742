// Package cache opens the Dragonfly/Redis client that holds device-local
// progress and code-execution quotas.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Options overrides client timeouts. Zero values keep the defaults.
type Options struct {
	DialTimeout  time.Duration // default 5s
	ReadTimeout  time.Duration // default 3s
	WriteTimeout time.Duration // default 3s
}

// Cache wraps a Redis/Dragonfly client.
type Cache struct {
	Client *redis.Client
}

// ParseURL validates a Redis connection URL.
func ParseURL(url string) (*redis.Options, error) {
	if url == "" {
		return nil, fmt.Errorf("cache URL is empty")
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid cache URL: %w", err)
	}
	return opts, nil
}

// New creates a cache client and pings it.
func New(ctx context.Context, url string, o Options) (*Cache, error) {
	opts, err := ParseURL(url)
	if err != nil {
		return nil, err
	}
	applyOptions(opts, o)

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("pinging cache: %w", err)
	}

	return &Cache{Client: client}, nil
}

func applyOptions(opts *redis.Options, o Options) {
	opts.DialTimeout = orDefault(o.DialTimeout, 5*time.Second)
	opts.ReadTimeout = orDefault(o.ReadTimeout, 3*time.Second)
	opts.WriteTimeout = orDefault(o.WriteTimeout, 3*time.Second)
}

func orDefault(d, fallback time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return fallback
}

// Close shuts down the cache client.
func (c *Cache) Close() error {
	return c.Client.Close()
}

// HealthCheck verifies the cache connection is alive.
func (c *Cache) HealthCheck(ctx context.Context) error {
	return c.Client.Ping(ctx).Err()
}
