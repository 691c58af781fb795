package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"

	"VolWatch/internal/domain/models"
	drepo "VolWatch/internal/domain/repository"
	"VolWatch/pkg/logger"
)

type fakeSource struct {
	mu      sync.Mutex
	fetches int
	fail    map[string]bool
}

func (f *fakeSource) FetchCandles(_ context.Context, symbol string, tf drepo.Timeframe, limit int) ([]models.Candle, error) {
	f.mu.Lock()
	f.fetches++
	f.mu.Unlock()
	if f.fail[symbol] {
		return nil, errors.New("exchange down")
	}
	return decaySeries(30, 30), nil
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	l, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stdout"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return l
}

func TestBackfillerSeedsAllKeys(t *testing.T) {
	analyzer := testAnalyzer()
	src := &fakeSource{}
	b := NewBackfiller(src, analyzer, nopMetrics{}, testLogger(t), 200, 2)

	symbols := []string{"BTCUSDT", "ETHUSDT", "SOLUSDT"}
	tfs := []drepo.Timeframe{drepo.TF5m, drepo.TF15m}
	b.Run(context.Background(), symbols, tfs)

	if src.fetches != len(symbols)*len(tfs) {
		t.Fatalf("expected %d fetches, got %d", len(symbols)*len(tfs), src.fetches)
	}
	for _, sym := range symbols {
		for _, tf := range tfs {
			snap, ok := analyzer.GetAnalysis(sym, string(tf))
			if !ok {
				t.Fatalf("expected %s %s seeded", sym, tf)
			}
			if snap.Status != models.StatusOK {
				t.Fatalf("expected ok snapshot for %s %s, got %s", sym, tf, snap.Status)
			}
		}
	}
}

func TestBackfillerFailedFetchLeavesKeyUninitialized(t *testing.T) {
	analyzer := testAnalyzer()
	src := &fakeSource{fail: map[string]bool{"ETHUSDT": true}}
	b := NewBackfiller(src, analyzer, nopMetrics{}, testLogger(t), 200, 5)

	b.Run(context.Background(), []string{"BTCUSDT", "ETHUSDT"}, []drepo.Timeframe{drepo.TF15m})

	if _, ok := analyzer.GetAnalysis("BTCUSDT", "15m"); !ok {
		t.Fatalf("healthy symbol should be seeded")
	}
	if _, ok := analyzer.GetAnalysis("ETHUSDT", "15m"); ok {
		t.Fatalf("failed symbol must stay uninitialized")
	}
}

func TestReseedJobHandlesQueuePayload(t *testing.T) {
	analyzer := testAnalyzer()
	src := &fakeSource{}
	b := NewBackfiller(src, analyzer, nopMetrics{}, testLogger(t), 200, 5)
	job := NewReseedJob(b)

	// queue payloads arrive as generic maps after JSON decoding
	payload := map[string]interface{}{"symbol": "BTCUSDT", "timeframe": "1h"}
	if err := job.Handle(context.Background(), payload); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := analyzer.GetAnalysis("BTCUSDT", "1h"); !ok {
		t.Fatalf("expected key reseeded")
	}
}
