package repository

import (
	"context"
	"sort"
	"strings"
	"sync"

	"VolWatch/internal/domain/repository"

	"github.com/redis/go-redis/v9"
)

const watchlistKey = "volwatch:watchlist"

// RedisWatchlist persists tracked symbols in a Redis set.
type RedisWatchlist struct {
	client *redis.Client
}

// NewRedisWatchlist creates a Redis-backed watchlist.
func NewRedisWatchlist(client *redis.Client) repository.Watchlist {
	return &RedisWatchlist{client: client}
}

func (w *RedisWatchlist) Add(ctx context.Context, symbol string) error {
	return w.client.SAdd(ctx, watchlistKey, strings.ToUpper(symbol)).Err()
}

func (w *RedisWatchlist) Remove(ctx context.Context, symbol string) error {
	return w.client.SRem(ctx, watchlistKey, strings.ToUpper(symbol)).Err()
}

func (w *RedisWatchlist) List(ctx context.Context) ([]string, error) {
	symbols, err := w.client.SMembers(ctx, watchlistKey).Result()
	if err != nil {
		return nil, err
	}
	sort.Strings(symbols)
	return symbols, nil
}

// MemoryWatchlist keeps the watchlist in process, used when Redis is disabled.
type MemoryWatchlist struct {
	mu      sync.RWMutex
	symbols map[string]struct{}
}

// NewMemoryWatchlist creates an in-memory watchlist seeded with symbols.
func NewMemoryWatchlist(seed []string) repository.Watchlist {
	w := &MemoryWatchlist{symbols: make(map[string]struct{}, len(seed))}
	for _, s := range seed {
		w.symbols[strings.ToUpper(s)] = struct{}{}
	}
	return w
}

func (w *MemoryWatchlist) Add(_ context.Context, symbol string) error {
	w.mu.Lock()
	w.symbols[strings.ToUpper(symbol)] = struct{}{}
	w.mu.Unlock()
	return nil
}

func (w *MemoryWatchlist) Remove(_ context.Context, symbol string) error {
	w.mu.Lock()
	delete(w.symbols, strings.ToUpper(symbol))
	w.mu.Unlock()
	return nil
}

func (w *MemoryWatchlist) List(context.Context) ([]string, error) {
	w.mu.RLock()
	out := make([]string, 0, len(w.symbols))
	for s := range w.symbols {
		out = append(out, s)
	}
	w.mu.RUnlock()
	sort.Strings(out)
	return out, nil
}
