package cache

import (
	"context"
	"time"
)

// LayeredCache fronts Redis with an in-process memory layer. Reads hit memory
// first; writes go through to Redis and then warm memory. Cross-instance
// operations (locks, counters, multi-key) always go to Redis.
type LayeredCache struct {
	memory *MemoryCache
	redis  *RedisCache
}

var _ Service = (*LayeredCache)(nil)

// NewLayeredCache builds the two-level cache over an existing Redis backend.
func NewLayeredCache(redis *RedisCache, opts ...LayeredOption) *LayeredCache {
	cfg := &LayeredConfig{MemoryMaxSize: 1000}
	for _, opt := range opts {
		opt(cfg)
	}
	return &LayeredCache{
		memory: NewMemoryCache(WithMemoryMaxSize(cfg.MemoryMaxSize)),
		redis:  redis,
	}
}

// Set writes through to Redis before warming the memory layer, so a failed
// Redis write never leaves memory ahead of the shared store.
func (c *LayeredCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if err := c.redis.Set(ctx, key, value, expiration); err != nil {
		return err
	}
	_ = c.memory.Set(ctx, key, value, expiration)
	return nil
}

func (c *LayeredCache) Get(ctx context.Context, key string, dest interface{}) error {
	if err := c.memory.Get(ctx, key, dest); err == nil {
		return nil
	}
	if err := c.redis.Get(ctx, key, dest); err != nil {
		return err
	}
	// promote; Redis owns the real TTL
	_ = c.memory.Set(ctx, key, dest, 0)
	return nil
}

func (c *LayeredCache) Delete(ctx context.Context, keys ...string) error {
	_ = c.memory.Delete(ctx, keys...)
	return c.redis.Delete(ctx, keys...)
}

func (c *LayeredCache) DeleteByPattern(ctx context.Context, pattern string) error {
	_ = c.memory.DeleteByPattern(ctx, pattern)
	return c.redis.DeleteByPattern(ctx, pattern)
}

func (c *LayeredCache) Exists(ctx context.Context, keys ...string) (bool, error) {
	return c.redis.Exists(ctx, keys...)
}

func (c *LayeredCache) Increment(ctx context.Context, key string) (int64, error) {
	return c.redis.Increment(ctx, key)
}

func (c *LayeredCache) Expire(ctx context.Context, key string, expiration time.Duration) (bool, error) {
	return c.redis.Expire(ctx, key, expiration)
}

func (c *LayeredCache) MSet(ctx context.Context, values map[string]interface{}, expiration time.Duration) error {
	return c.redis.MSet(ctx, values, expiration)
}

func (c *LayeredCache) MGet(ctx context.Context, keys ...string) (map[string]string, error) {
	return c.redis.MGet(ctx, keys...)
}

func (c *LayeredCache) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return c.redis.TryLock(ctx, key, ttl)
}

func (c *LayeredCache) Unlock(ctx context.Context, key string) error {
	return c.redis.Unlock(ctx, key)
}

// Close releases both layers.
func (c *LayeredCache) Close() error {
	_ = c.memory.Close()
	return c.redis.Close()
}
