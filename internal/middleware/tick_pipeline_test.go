package middleware

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"VolWatch/internal/domain/models"
)

type nopMetrics struct{}

func (nopMetrics) RecordTickApplied(string, string, string) {}
func (nopMetrics) RecordAlert(string, string, string)       {}
func (nopMetrics) RecordError(string)                       {}
func (nopMetrics) RecordLastPrice(string, float64)          {}
func (nopMetrics) RecordLatency(string, float64)            {}

type captureProc struct {
	mu    sync.Mutex
	ticks []*models.CandleTick
	err   error
}

func (p *captureProc) Process(_ context.Context, t *models.CandleTick) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.ticks = append(p.ticks, t)
	return nil
}

func (p *captureProc) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.ticks)
}

func tick(symbol string) *models.CandleTick {
	return &models.CandleTick{
		Symbol:    symbol,
		Timeframe: "15m",
		Candle:    models.Candle{Time: 60, Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 10},
	}
}

func TestPipelineForwardsValidTick(t *testing.T) {
	proc := &captureProc{}
	p := NewTickPipeline(proc, nopMetrics{})

	if err := p.Process(context.Background(), tick("BTCUSDT")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if proc.count() != 1 {
		t.Fatalf("expected tick forwarded")
	}
}

func TestPipelineRejectsInvalidTicks(t *testing.T) {
	proc := &captureProc{}
	p := NewTickPipeline(proc, nopMetrics{})

	bad := []*models.CandleTick{
		nil,
		{Timeframe: "15m", Candle: models.Candle{Time: 60, Open: 1, High: 1, Low: 1, Close: 1}},
		{Symbol: "BTCUSDT", Candle: models.Candle{Time: 60, Open: 1, High: 1, Low: 1, Close: 1}},
		{Symbol: "BTCUSDT", Timeframe: "15m", Candle: models.Candle{Time: 0, Open: 1, High: 1, Low: 1, Close: 1}},
	}
	for i, b := range bad {
		if err := p.Process(context.Background(), b); err == nil {
			t.Fatalf("case %d: expected validation error", i)
		}
	}
	if proc.count() != 0 {
		t.Fatalf("invalid ticks must not reach downstream")
	}
}

func TestPipelineBuffersOnDownstreamError(t *testing.T) {
	proc := &captureProc{err: errors.New("downstream down")}
	p := NewTickPipeline(proc, nopMetrics{}, WithBufferSize(8))

	if err := p.Process(context.Background(), tick("BTCUSDT")); err == nil {
		t.Fatalf("expected downstream error")
	}
	if len(p.bufCh) != 1 {
		t.Fatalf("expected tick buffered, buffered=%d", len(p.bufCh))
	}
}

func TestPipelineThrottlesPerKey(t *testing.T) {
	proc := &captureProc{}
	// 1 rps: the first tick passes, an immediate second one is dropped
	p := NewTickPipeline(proc, nopMetrics{}, WithMaxRPS(1))

	_ = p.Process(context.Background(), tick("BTCUSDT"))
	_ = p.Process(context.Background(), tick("BTCUSDT"))
	if proc.count() != 1 {
		t.Fatalf("expected second tick throttled, forwarded=%d", proc.count())
	}

	// a different key has its own bucket
	_ = p.Process(context.Background(), tick("ETHUSDT"))
	if proc.count() != 2 {
		t.Fatalf("expected independent throttle per key")
	}
}

func TestPipelineRestartsAfterStop(t *testing.T) {
	proc := &captureProc{}
	p := NewTickPipeline(proc, nopMetrics{})
	ctx := context.Background()

	p.Start(ctx)
	p.Stop()
	p.Start(ctx)
	defer p.Stop()

	// the second run's flusher must drain the buffer; a dead flusher would
	// leave the tick stuck
	p.bufCh <- tick("ETHUSDT")

	deadline := time.Now().Add(2 * time.Second)
	for proc.count() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("flusher not running after restart")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
