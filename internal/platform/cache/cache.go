// Package cache provides a Redis client wrapper and a generation-stamped read cache.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache wraps a Redis client.
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

// New creates a new cache client.
func New(ctx context.Context, url string) (*Cache, error) {
	opts, err := ParseURL(url)
	if err != nil {
		return nil, err
	}

	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("pinging cache: %w", err)
	}

	return &Cache{Client: client}, nil
}

// Close shuts down the cache client.
func (c *Cache) Close() error {
	return c.Client.Close()
}

// HealthCheck verifies the cache connection is alive.
func (c *Cache) HealthCheck(ctx context.Context) error {
	return c.Client.Ping(ctx).Err()
}

// ReadCache stores JSON snapshots under a namespace whose generation counter
// is bumped on every invalidation, so stale entries are never read again and
// simply expire.
type ReadCache struct {
	client    *redis.Client
	namespace string
	ttl       time.Duration
}

// NewReadCache creates a read cache for one namespace.
func NewReadCache(client *redis.Client, namespace string, ttl time.Duration) *ReadCache {
	return &ReadCache{client: client, namespace: namespace, ttl: ttl}
}

func (r *ReadCache) genKey() string {
	return r.namespace + ":gen"
}

// Generation returns the current namespace generation. Readers that fill
// the cache should take it before reading the source and write with SetAt,
// so an invalidation in between orphans the write.
func (r *ReadCache) Generation(ctx context.Context) (int64, error) {
	gen, err := r.client.Get(ctx, r.genKey()).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0, fmt.Errorf("read generation: %w", err)
	}
	return gen, nil
}

func (r *ReadCache) keyAt(gen int64, name string) string {
	return fmt.Sprintf("%s:%d:%s", r.namespace, gen, name)
}

// Get decodes the cached value for name in the current generation.
func (r *ReadCache) Get(ctx context.Context, name string, dst any) (bool, error) {
	gen, err := r.Generation(ctx)
	if err != nil {
		return false, err
	}
	return r.GetAt(ctx, gen, name, dst)
}

// GetAt decodes the value for name stored in generation gen into dst. It
// reports false on a miss.
func (r *ReadCache) GetAt(ctx context.Context, gen int64, name string, dst any) (bool, error) {
	key := r.keyAt(gen, name)
	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get %s: %w", key, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		slog.Warn("dropping undecodable cache entry", "key", key, "error", err)
		return false, nil
	}
	return true, nil
}

// Set stores value under name in the current generation.
func (r *ReadCache) Set(ctx context.Context, name string, value any) error {
	gen, err := r.Generation(ctx)
	if err != nil {
		return err
	}
	return r.SetAt(ctx, gen, name, value)
}

// SetAt stores value under name in generation gen. A write to a generation
// that has since been invalidated is never read.
func (r *ReadCache) SetAt(ctx context.Context, gen int64, name string, value any) error {
	key := r.keyAt(gen, name)
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value: %w", err)
	}
	if err := r.client.Set(ctx, key, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// Invalidate drops every entry of the namespace by advancing its generation.
func (r *ReadCache) Invalidate(ctx context.Context) error {
	if err := r.client.Incr(ctx, r.genKey()).Err(); err != nil {
		return fmt.Errorf("bump generation: %w", err)
	}
	return nil
}
