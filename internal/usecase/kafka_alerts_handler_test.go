package usecase

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"VolWatch/internal/domain/models"
	drepo "VolWatch/internal/domain/repository"
)

type captureArchive struct {
	mu     sync.Mutex
	stored []*models.AlertEvent
}

func (a *captureArchive) Store(_ context.Context, ev *models.AlertEvent) error {
	a.mu.Lock()
	a.stored = append(a.stored, ev)
	a.mu.Unlock()
	return nil
}

func (a *captureArchive) Query(context.Context, drepo.AlertQuery) ([]*models.AlertEvent, error) {
	return nil, nil
}

func (a *captureArchive) Health(context.Context) error { return nil }

func TestKafkaAlertsHandlerStoresEvent(t *testing.T) {
	archive := &captureArchive{}
	h := NewKafkaAlertsHandler("volwatch.alerts", archive, nopMetrics{})

	price := 50123.45
	ev := models.AlertEvent{
		ID:          "00000000-0000-0000-0000-000000000001",
		Kind:        models.AlertBreakout,
		Symbol:      "BTCUSDT",
		Timeframe:   "15m",
		Price:       &price,
		Signal:      models.SignalBullish,
		Regime:      models.RegimeExpansion,
		SqueezeBars: 12,
		Timestamp:   time.Now().UTC(),
	}
	b, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	if err := h.Handle(context.Background(), b); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(archive.stored) != 1 {
		t.Fatalf("expected 1 stored event")
	}
	got := archive.stored[0]
	if got.Kind != models.AlertBreakout || got.Symbol != "BTCUSDT" || got.SqueezeBars != 12 {
		t.Fatalf("unexpected event %+v", got)
	}
	if got.Price == nil || *got.Price != price {
		t.Fatalf("price lost in transit")
	}
}

func TestKafkaAlertsHandlerRejectsBadPayload(t *testing.T) {
	h := NewKafkaAlertsHandler("volwatch.alerts", &captureArchive{}, nopMetrics{})
	if err := h.Handle(context.Background(), []byte("{not json")); err == nil {
		t.Fatalf("expected unmarshal error")
	}
}

func TestKafkaAlertsHandlerTopic(t *testing.T) {
	h := NewKafkaAlertsHandler("volwatch.alerts", &captureArchive{}, nopMetrics{})
	if h.Topic() != "volwatch.alerts" {
		t.Fatalf("unexpected topic %s", h.Topic())
	}
}
