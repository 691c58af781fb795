package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// memoryItem holds one cached value and its deadline.
type memoryItem struct {
	value    interface{}
	expireAt time.Time
}

func (m *memoryItem) expired() bool {
	return time.Now().After(m.expireAt)
}

// MemoryCache implements Service in process, with LRU eviction at capacity
// and periodic sweeping of expired entries. It backs the snapshot cache when
// Redis is disabled and serves as L1 under the layered cache.
type MemoryCache struct {
	mu      sync.Mutex
	data    map[string]*memoryItem
	access  map[string]time.Time
	maxSize int
	sweeper *time.Ticker
}

var _ Service = (*MemoryCache)(nil)

// memoryDefaultTTL bounds entries written without an expiration.
const memoryDefaultTTL = 7 * 24 * time.Hour

// NewMemoryCache creates an in-memory cache.
func NewMemoryCache(opts ...MemoryOption) *MemoryCache {
	cfg := &MemoryConfig{
		MaxSize:         1000,
		CleanupInterval: 5 * time.Minute,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	c := &MemoryCache{
		data:    make(map[string]*memoryItem),
		access:  make(map[string]time.Time),
		maxSize: cfg.MaxSize,
		sweeper: time.NewTicker(cfg.CleanupInterval),
	}
	go c.sweep()
	return c
}

func (c *MemoryCache) Set(_ context.Context, key string, value interface{}, expiration time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.data) >= c.maxSize {
		c.evictLRU()
	}

	if expiration <= 0 {
		expiration = memoryDefaultTTL
	}
	c.data[key] = &memoryItem{value: value, expireAt: time.Now().Add(expiration)}
	c.access[key] = time.Now()
	return nil
}

// Get copies the cached value into dest via a JSON round trip so callers see
// the same decode semantics as the Redis backend.
func (c *MemoryCache) Get(_ context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	item, ok := c.data[key]
	if !ok || item.expired() {
		if ok {
			delete(c.data, key)
			delete(c.access, key)
		}
		c.mu.Unlock()
		return ErrCacheMiss
	}
	c.access[key] = time.Now()
	value := item.value
	c.mu.Unlock()

	if sp, ok := dest.(*string); ok {
		if s, ok := value.(string); ok {
			*sp = s
			return nil
		}
	}
	b, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("memory cache encode: %w", err)
	}
	if err := json.Unmarshal(b, dest); err != nil {
		return fmt.Errorf("memory cache decode: %w", err)
	}
	return nil
}

func (c *MemoryCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, key := range keys {
		delete(c.data, key)
		delete(c.access, key)
	}
	return nil
}

// DeleteByPattern drops everything; the memory layer is a best-effort cache
// and pattern matching is not worth the bookkeeping here.
func (c *MemoryCache) DeleteByPattern(_ context.Context, _ string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = make(map[string]*memoryItem)
	c.access = make(map[string]time.Time)
	return nil
}

func (c *MemoryCache) Exists(_ context.Context, keys ...string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, key := range keys {
		if item, ok := c.data[key]; ok && !item.expired() {
			return true, nil
		}
	}
	return false, nil
}

func (c *MemoryCache) Increment(_ context.Context, key string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, ok := c.data[key]
	if !ok || item.expired() {
		c.data[key] = &memoryItem{value: int64(1), expireAt: time.Now().Add(memoryDefaultTTL)}
		c.access[key] = time.Now()
		return 1, nil
	}
	v, ok := item.value.(int64)
	if !ok {
		return 0, fmt.Errorf("memory cache: %s is not a counter", key)
	}
	item.value = v + 1
	return v + 1, nil
}

func (c *MemoryCache) Expire(_ context.Context, key string, expiration time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if item, ok := c.data[key]; ok {
		item.expireAt = time.Now().Add(expiration)
		return true, nil
	}
	return false, nil
}

func (c *MemoryCache) MSet(ctx context.Context, values map[string]interface{}, expiration time.Duration) error {
	for key, value := range values {
		if err := c.Set(ctx, key, value, expiration); err != nil {
			return err
		}
	}
	return nil
}

func (c *MemoryCache) MGet(_ context.Context, keys ...string) (map[string]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make(map[string]string)
	for _, key := range keys {
		item, ok := c.data[key]
		if !ok || item.expired() {
			continue
		}
		if s, ok := item.value.(string); ok {
			out[key] = s
		}
	}
	return out, nil
}

func (c *MemoryCache) TryLock(_ context.Context, key string, ttl time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if item, ok := c.data[key]; ok && !item.expired() {
		return false, nil
	}
	c.data[key] = &memoryItem{value: "locked", expireAt: time.Now().Add(ttl)}
	return true, nil
}

func (c *MemoryCache) Unlock(ctx context.Context, key string) error {
	return c.Delete(ctx, key)
}

// evictLRU removes the least recently used entry; callers hold the lock.
func (c *MemoryCache) evictLRU() {
	var oldestKey string
	oldest := time.Now()
	for key, at := range c.access {
		if at.Before(oldest) {
			oldest = at
			oldestKey = key
		}
	}
	if oldestKey != "" {
		delete(c.data, oldestKey)
		delete(c.access, oldestKey)
	}
}

func (c *MemoryCache) sweep() {
	for range c.sweeper.C {
		c.mu.Lock()
		now := time.Now()
		for key, item := range c.data {
			if now.After(item.expireAt) {
				delete(c.data, key)
				delete(c.access, key)
			}
		}
		c.mu.Unlock()
	}
}

// Close stops the sweeper.
func (c *MemoryCache) Close() error {
	if c.sweeper != nil {
		c.sweeper.Stop()
	}
	return nil
}
