package repository

import (
	"context"
	"time"

	"VolWatch/internal/domain/models"
)

// ConnState describes the live stream connection lifecycle.
type ConnState string

const (
	StateDisconnected ConnState = "disconnected"
	StateConnecting   ConnState = "connecting"
	StateConnected    ConnState = "connected"
)

// CandleSource fetches historical candles for backfill. It may return fewer
// candles than requested, or none; callers treat empty as insufficient data.
type CandleSource interface {
	FetchCandles(ctx context.Context, symbol string, tf Timeframe, limit int) ([]models.Candle, error)
}

// MarketStream delivers live candle ticks over a persistent connection.
// Ticks may arrive duplicated or out of order; the engine tolerates both.
type MarketStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context, symbols []string, tfs []Timeframe) error
	Read(ctx context.Context) (<-chan *models.CandleTick, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	State() ConnState
	OnStateChange(fn func(ConnState, int))
}

// AlertPublisher pushes alert events to downstream consumers.
type AlertPublisher interface {
	Publish(ctx context.Context, a *models.AlertEvent) error
	Close() error
}

// AlertQuery filters archived alerts. Zero-value fields are unbounded;
// a zero From/To means no time constraint.
type AlertQuery struct {
	Symbol    string
	Timeframe string
	From      time.Time
	To        time.Time
	Limit     int
}

// AlertArchive persists alert history for later querying.
type AlertArchive interface {
	Store(ctx context.Context, a *models.AlertEvent) error
	Query(ctx context.Context, q AlertQuery) ([]*models.AlertEvent, error)
	Health(ctx context.Context) error
}

// SnapshotCache caches the latest analysis snapshot per (symbol, timeframe).
type SnapshotCache interface {
	Put(ctx context.Context, a *models.VolatilityAnalysis) error
	Get(ctx context.Context, symbol string, tf Timeframe) (*models.VolatilityAnalysis, error)
}

// Watchlist persists the user's tracked symbols.
type Watchlist interface {
	Add(ctx context.Context, symbol string) error
	Remove(ctx context.Context, symbol string) error
	List(ctx context.Context) ([]string, error)
}

// Metrics records operational measurements.
type Metrics interface {
	RecordTickApplied(symbol, timeframe, outcome string)
	RecordAlert(kind, symbol, timeframe string)
	RecordError(kind string)
	RecordLastPrice(symbol string, price float64)
	RecordLatency(op string, seconds float64)
}
