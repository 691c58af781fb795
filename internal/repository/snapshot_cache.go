package repository

import (
	"context"
	"errors"
	"time"

	"VolWatch/internal/domain/models"
	"VolWatch/internal/domain/repository"
	"VolWatch/pkg/cache"
)

// CachedSnapshots implements SnapshotCache on top of pkg/cache. With a
// layered cache behind it, reads hit memory first and Redis second, so other
// replicas can serve snapshots this instance computed.
type CachedSnapshots struct {
	cache cache.Service
	ttl   time.Duration
}

// NewCachedSnapshots creates a snapshot cache with the given TTL.
func NewCachedSnapshots(c cache.Service, ttl time.Duration) repository.SnapshotCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CachedSnapshots{cache: c, ttl: ttl}
}

func snapshotKey(symbol string, tf repository.Timeframe) string {
	return cache.GenerateKeyWithParams("snapshot", symbol, string(tf))
}

func (s *CachedSnapshots) Put(ctx context.Context, a *models.VolatilityAnalysis) error {
	if a == nil {
		return nil
	}
	key := snapshotKey(a.Symbol, repository.Timeframe(a.Timeframe))
	return s.cache.Set(ctx, key, a, s.ttl)
}

func (s *CachedSnapshots) Get(ctx context.Context, symbol string, tf repository.Timeframe) (*models.VolatilityAnalysis, error) {
	var a models.VolatilityAnalysis
	err := s.cache.Get(ctx, snapshotKey(symbol, tf), &a)
	if err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}
