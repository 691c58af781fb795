package usecase

import (
	"context"
	"sync"
	"time"

	drepo "VolWatch/internal/domain/repository"
	"VolWatch/internal/engine"
	xlogger "VolWatch/pkg/logger"
)

// Backfiller seeds the engine with historical candles before live streaming
// starts. Symbols are worked in small batches; within a symbol every
// timeframe is fetched concurrently.
type Backfiller struct {
	source   drepo.CandleSource
	analyzer *engine.Analyzer
	metrics  drepo.Metrics
	logger   *xlogger.Logger

	limit     int
	batchSize int
}

// NewBackfiller creates a Backfiller.
func NewBackfiller(
	source drepo.CandleSource,
	analyzer *engine.Analyzer,
	metrics drepo.Metrics,
	lgr *xlogger.Logger,
	limit, batchSize int,
) *Backfiller {
	if limit <= 0 {
		limit = 200
	}
	if batchSize <= 0 {
		batchSize = 5
	}
	return &Backfiller{
		source:    source,
		analyzer:  analyzer,
		metrics:   metrics,
		logger:    lgr,
		limit:     limit,
		batchSize: batchSize,
	}
}

// Run seeds all (symbol, timeframe) pairs. A failed fetch leaves that key
// uninitialized; the engine reports insufficient_data until it catches up.
func (b *Backfiller) Run(ctx context.Context, symbols []string, tfs []drepo.Timeframe) {
	start := time.Now()
	for i := 0; i < len(symbols); i += b.batchSize {
		end := i + b.batchSize
		if end > len(symbols) {
			end = len(symbols)
		}

		var wg sync.WaitGroup
		for _, sym := range symbols[i:end] {
			wg.Add(1)
			go func(sym string) {
				defer wg.Done()
				b.seedSymbol(ctx, sym, tfs)
			}(sym)
		}
		wg.Wait()

		if ctx.Err() != nil {
			return
		}
	}
	b.metrics.RecordLatency("backfill_total", time.Since(start).Seconds())
	b.logger.Info("backfill complete",
		xlogger.Int("symbols", len(symbols)),
		xlogger.Int("timeframes", len(tfs)),
	)
}

// SeedKey backfills a single (symbol, timeframe) pair, used for gap repair
// after stream reconnects.
func (b *Backfiller) SeedKey(ctx context.Context, symbol string, tf drepo.Timeframe) error {
	candles, err := b.source.FetchCandles(ctx, symbol, tf, b.limit)
	if err != nil {
		b.metrics.RecordError("backfill_fetch")
		return err
	}
	b.analyzer.SeedHistory(symbol, string(tf), candles)
	return nil
}

func (b *Backfiller) seedSymbol(ctx context.Context, symbol string, tfs []drepo.Timeframe) {
	var wg sync.WaitGroup
	for _, tf := range tfs {
		wg.Add(1)
		go func(tf drepo.Timeframe) {
			defer wg.Done()
			if err := b.SeedKey(ctx, symbol, tf); err != nil {
				b.logger.Warn("backfill fetch failed",
					xlogger.String("symbol", symbol),
					xlogger.String("tf", string(tf)),
					xlogger.Error(err),
				)
			}
		}(tf)
	}
	wg.Wait()
}
