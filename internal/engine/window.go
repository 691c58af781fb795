package engine

import "VolWatch/internal/domain/models"

// TickOutcome reports how a streamed candle was reconciled into a window.
type TickOutcome int

const (
	// TickIgnored means the tick was stale, out of order, or hit an empty window.
	TickIgnored TickOutcome = iota
	// TickReplaced means the still-forming last bar was replaced in place.
	TickReplaced
	// TickAppended means a new bar closed and was appended.
	TickAppended
)

// CandleWindow is a bounded, time-ordered candle buffer for one
// (symbol, timeframe) pair. It is owned exclusively by the engine state for
// that key; callers must not retain the slice returned by Candles across
// updates.
type CandleWindow struct {
	capacity int
	candles  []models.Candle
}

// NewCandleWindow creates a window holding at most capacity candles.
func NewCandleWindow(capacity int) *CandleWindow {
	if capacity <= 0 {
		capacity = DefaultConfig().MaxCandles
	}
	return &CandleWindow{
		capacity: capacity,
		candles:  make([]models.Candle, 0, capacity),
	}
}

// Len returns the number of buffered candles.
func (w *CandleWindow) Len() int { return len(w.candles) }

// Candles returns the buffered candles ordered by time ascending.
func (w *CandleWindow) Candles() []models.Candle { return w.candles }

// Last returns the most recent candle, if any.
func (w *CandleWindow) Last() (models.Candle, bool) {
	if len(w.candles) == 0 {
		return models.Candle{}, false
	}
	return w.candles[len(w.candles)-1], true
}

// Append adds a candle and evicts the oldest when over capacity.
func (w *CandleWindow) Append(c models.Candle) {
	w.candles = append(w.candles, c)
	if len(w.candles) > w.capacity {
		copy(w.candles, w.candles[1:])
		w.candles = w.candles[:w.capacity]
	}
}

// ReplaceLast overwrites the most recent candle in place.
func (w *CandleWindow) ReplaceLast(c models.Candle) {
	if len(w.candles) == 0 {
		return
	}
	w.candles[len(w.candles)-1] = c
}

// Reset discards the buffer and loads a fresh historical batch, keeping the
// most recent candles when the batch exceeds capacity.
func (w *CandleWindow) Reset(batch []models.Candle) {
	if len(batch) > w.capacity {
		batch = batch[len(batch)-w.capacity:]
	}
	w.candles = w.candles[:0]
	w.candles = append(w.candles, batch...)
}

// Apply reconciles a streamed tick against the window:
// same time as the last bar replaces it in place (the bar is still forming),
// a newer time appends and evicts from the front, an older time or an empty
// window discards the tick. Only TickAppended marks a closed bar eligible
// for alert checks.
func (w *CandleWindow) Apply(c models.Candle) TickOutcome {
	last, ok := w.Last()
	if !ok {
		return TickIgnored
	}
	switch {
	case c.Time == last.Time:
		w.ReplaceLast(c)
		return TickReplaced
	case c.Time > last.Time:
		w.Append(c)
		return TickAppended
	default:
		return TickIgnored
	}
}
