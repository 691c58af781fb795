package engine

import (
	"testing"

	"VolWatch/internal/domain/models"
)

func candleAt(t int64, close float64) models.Candle {
	return models.Candle{Time: t, Open: close, High: close + 1, Low: close - 1, Close: close, Volume: 1000}
}

func TestWindowAppendEvictsOldest(t *testing.T) {
	w := NewCandleWindow(3)
	for i := int64(1); i <= 4; i++ {
		w.Append(candleAt(i*60, float64(i)))
	}
	if w.Len() != 3 {
		t.Fatalf("expected len 3, got %d", w.Len())
	}
	if w.Candles()[0].Time != 120 {
		t.Fatalf("expected oldest evicted, first time %d", w.Candles()[0].Time)
	}
	last, ok := w.Last()
	if !ok || last.Time != 240 {
		t.Fatalf("unexpected last %v", last)
	}
}

func TestWindowApplyEmptyIgnores(t *testing.T) {
	w := NewCandleWindow(10)
	if got := w.Apply(candleAt(60, 1)); got != TickIgnored {
		t.Fatalf("expected ignore on empty window, got %v", got)
	}
	if w.Len() != 0 {
		t.Fatalf("empty window must stay empty")
	}
}

func TestWindowApplySameTimeReplaces(t *testing.T) {
	w := NewCandleWindow(10)
	w.Append(candleAt(60, 100))
	if got := w.Apply(candleAt(60, 101)); got != TickReplaced {
		t.Fatalf("expected replace, got %v", got)
	}
	if w.Len() != 1 {
		t.Fatalf("replace must not grow window, len %d", w.Len())
	}
	last, _ := w.Last()
	if last.Close != 101 {
		t.Fatalf("expected in-place update, close %v", last.Close)
	}
}

func TestWindowApplyNewerAppends(t *testing.T) {
	w := NewCandleWindow(10)
	w.Append(candleAt(60, 100))
	if got := w.Apply(candleAt(120, 101)); got != TickAppended {
		t.Fatalf("expected append, got %v", got)
	}
	if w.Len() != 2 {
		t.Fatalf("expected len 2, got %d", w.Len())
	}
}

func TestWindowApplyStaleDiscards(t *testing.T) {
	w := NewCandleWindow(10)
	w.Append(candleAt(120, 100))
	if got := w.Apply(candleAt(60, 99)); got != TickIgnored {
		t.Fatalf("expected stale tick discarded, got %v", got)
	}
	last, _ := w.Last()
	if last.Close != 100 {
		t.Fatalf("stale tick must not mutate window")
	}
}

func TestWindowResetKeepsNewestAtCapacity(t *testing.T) {
	w := NewCandleWindow(3)
	batch := []models.Candle{
		candleAt(60, 1), candleAt(120, 2), candleAt(180, 3), candleAt(240, 4), candleAt(300, 5),
	}
	w.Reset(batch)
	if w.Len() != 3 {
		t.Fatalf("expected len 3, got %d", w.Len())
	}
	if w.Candles()[0].Time != 180 {
		t.Fatalf("expected newest kept, first time %d", w.Candles()[0].Time)
	}
}
