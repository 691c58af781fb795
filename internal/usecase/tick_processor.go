package usecase

import (
	"context"
	"fmt"
	"time"

	"VolWatch/internal/domain/models"
	drepo "VolWatch/internal/domain/repository"
	"VolWatch/internal/engine"
)

// TickProcessor feeds candle ticks into the analysis engine, publishes alerts
// and keeps the snapshot cache warm.
type TickProcessor struct {
	analyzer *engine.Analyzer
	pub      drepo.AlertPublisher
	cache    drepo.SnapshotCache
	metrics  drepo.Metrics
}

// NewTickProcessor creates a new TickProcessor instance.
func NewTickProcessor(
	analyzer *engine.Analyzer,
	pub drepo.AlertPublisher,
	cache drepo.SnapshotCache,
	metrics drepo.Metrics,
) *TickProcessor {
	return &TickProcessor{
		analyzer: analyzer,
		pub:      pub,
		cache:    cache,
		metrics:  metrics,
	}
}

// Process applies a single tick and routes any resulting alert downstream.
func (p *TickProcessor) Process(ctx context.Context, t *models.CandleTick) error {
	if t == nil {
		return fmt.Errorf("tick is nil")
	}

	start := time.Now()
	snap, alert, outcome := p.analyzer.ApplyTick(t.Symbol, t.Timeframe, t.Candle)
	p.metrics.RecordTickApplied(t.Symbol, t.Timeframe, outcomeLabel(outcome))

	if snap != nil && p.cache != nil {
		if err := p.cache.Put(ctx, snap); err != nil {
			p.metrics.RecordError("snapshot_cache")
		}
	}

	if alert != nil {
		p.metrics.RecordAlert(string(alert.Kind), alert.Symbol, alert.Timeframe)
		if p.pub != nil {
			if err := p.pub.Publish(ctx, alert); err != nil {
				p.metrics.RecordError("alert_publish")
				return fmt.Errorf("publish alert: %w", err)
			}
		}
	}

	p.metrics.RecordLatency("tick_process", time.Since(start).Seconds())
	return nil
}

// Close closes the alert publisher if present.
func (p *TickProcessor) Close() {
	if p.pub != nil {
		_ = p.pub.Close()
	}
}

func outcomeLabel(o engine.TickOutcome) string {
	switch o {
	case engine.TickAppended:
		return "appended"
	case engine.TickReplaced:
		return "replaced"
	default:
		return "ignored"
	}
}
