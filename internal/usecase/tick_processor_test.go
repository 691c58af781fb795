package usecase

import (
	"context"
	"sync"
	"testing"

	"VolWatch/internal/domain/models"
	drepo "VolWatch/internal/domain/repository"
	"VolWatch/internal/engine"
)

type nopMetrics struct{}

func (nopMetrics) RecordTickApplied(string, string, string) {}
func (nopMetrics) RecordAlert(string, string, string)       {}
func (nopMetrics) RecordError(string)                       {}
func (nopMetrics) RecordLastPrice(string, float64)          {}
func (nopMetrics) RecordLatency(string, float64)            {}

type capturePublisher struct {
	mu     sync.Mutex
	events []*models.AlertEvent
}

func (p *capturePublisher) Publish(_ context.Context, a *models.AlertEvent) error {
	p.mu.Lock()
	p.events = append(p.events, a)
	p.mu.Unlock()
	return nil
}

func (p *capturePublisher) Close() error { return nil }

type captureCache struct {
	mu    sync.Mutex
	snaps map[string]*models.VolatilityAnalysis
}

func newCaptureCache() *captureCache {
	return &captureCache{snaps: make(map[string]*models.VolatilityAnalysis)}
}

func (c *captureCache) Put(_ context.Context, a *models.VolatilityAnalysis) error {
	c.mu.Lock()
	c.snaps[a.Symbol+":"+a.Timeframe] = a
	c.mu.Unlock()
	return nil
}

func (c *captureCache) Get(_ context.Context, symbol string, tf drepo.Timeframe) (*models.VolatilityAnalysis, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snaps[symbol+":"+string(tf)], nil
}

func barAt(ts int64, close float64) models.Candle {
	return models.Candle{Time: ts, Open: close, High: close + 1, Low: close - 1, Close: close, Volume: 1000}
}

// decaySeries oscillates widely around 100, then shrinks the amplitude each
// bar so the window drifts into a tight squeeze.
func decaySeries(nHigh, nDecay int) []models.Candle {
	out := make([]models.Candle, 0, nHigh+nDecay)
	ts := int64(0)
	sign := 1.0
	for i := 0; i < nHigh; i++ {
		ts += 60
		out = append(out, barAt(ts, 100+3*sign))
		sign = -sign
	}
	amp := 3.0
	for i := 0; i < nDecay; i++ {
		ts += 60
		amp *= 0.8
		out = append(out, barAt(ts, 100+amp*sign))
		sign = -sign
	}
	return out
}

func testAnalyzer() *engine.Analyzer {
	cfg := engine.DefaultConfig()
	cfg.PercentileLookback = 30
	return engine.NewAnalyzer(cfg, nil)
}

func TestTickProcessorCachesSnapshots(t *testing.T) {
	analyzer := testAnalyzer()
	cache := newCaptureCache()
	proc := NewTickProcessor(analyzer, nil, cache, nopMetrics{})

	series := decaySeries(30, 30)
	analyzer.SeedHistory("BTCUSDT", "15m", series)

	next := barAt(series[len(series)-1].Time+60, 100)
	tk := &models.CandleTick{Symbol: "BTCUSDT", Timeframe: "15m", Candle: next}
	if err := proc.Process(context.Background(), tk); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	snap, err := cache.Get(context.Background(), "BTCUSDT", drepo.TF15m)
	if err != nil || snap == nil {
		t.Fatalf("expected snapshot cached")
	}
	if snap.Status != models.StatusOK {
		t.Fatalf("unexpected status %s", snap.Status)
	}
}

func TestTickProcessorPublishesBreakoutAlert(t *testing.T) {
	analyzer := testAnalyzer()
	pub := &capturePublisher{}
	proc := NewTickProcessor(analyzer, pub, nil, nopMetrics{})

	series := decaySeries(30, 60)
	analyzer.SeedHistory("BTCUSDT", "15m", series)

	// one more compressed bar moves the key into the live phase
	calm := barAt(series[len(series)-1].Time+60, 100)
	if err := proc.Process(context.Background(), &models.CandleTick{Symbol: "BTCUSDT", Timeframe: "15m", Candle: calm}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	burst := barAt(calm.Time+60, 110)
	if err := proc.Process(context.Background(), &models.CandleTick{Symbol: "BTCUSDT", Timeframe: "15m", Candle: burst}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	pub.mu.Lock()
	defer pub.mu.Unlock()
	if len(pub.events) == 0 {
		t.Fatalf("expected a published alert")
	}
	last := pub.events[len(pub.events)-1]
	if last.Kind != models.AlertBreakout || last.Signal != models.SignalBullish {
		t.Fatalf("unexpected alert %+v", last)
	}
	if last.Symbol != "BTCUSDT" || last.Timeframe != "15m" {
		t.Fatalf("unexpected alert key %s %s", last.Symbol, last.Timeframe)
	}
}

func TestTickProcessorNilTick(t *testing.T) {
	proc := NewTickProcessor(testAnalyzer(), nil, nil, nopMetrics{})
	if err := proc.Process(context.Background(), nil); err == nil {
		t.Fatalf("expected error on nil tick")
	}
}
