package engine

import (
	"sync"

	"github.com/google/uuid"

	"VolWatch/internal/domain/models"
)

// DefaultAlertCapacity bounds the in-memory alert log.
const DefaultAlertCapacity = 50

// AlertEngine diffs consecutive snapshots per (symbol, timeframe) pair and
// emits at most one alert per pair per update. Emitted alerts are prepended
// to a bounded newest-first log and pushed to registered callbacks.
type AlertEngine struct {
	mu        sync.Mutex
	capacity  int
	recent    []*models.AlertEvent
	callbacks []func(*models.AlertEvent)
}

// NewAlertEngine creates an alert engine with the given log capacity.
func NewAlertEngine(capacity int) *AlertEngine {
	if capacity <= 0 {
		capacity = DefaultAlertCapacity
	}
	return &AlertEngine{capacity: capacity}
}

// OnAlert registers a push callback invoked for every emitted alert.
func (e *AlertEngine) OnAlert(fn func(*models.AlertEvent)) {
	e.mu.Lock()
	e.callbacks = append(e.callbacks, fn)
	e.mu.Unlock()
}

// Evaluate diffs a previous and current snapshot and records the resulting
// alert, if any. Both snapshots must exist with OK status; the very first
// observation for a key therefore never alerts. The checks form an
// if/else-if chain: breakout wins over squeeze entry, which wins over the
// squeeze-to-tight transition. A previous regime of Unavailable counts as
// no prior regime and satisfies the squeeze-entry precondition.
func (e *AlertEngine) Evaluate(prev, cur *models.VolatilityAnalysis) *models.AlertEvent {
	if prev == nil || cur == nil {
		return nil
	}
	if prev.Status != models.StatusOK || cur.Status != models.StatusOK {
		return nil
	}

	var kind models.AlertKind
	switch {
	case cur.Signal != models.SignalNone && cur.Signal != prev.Signal:
		kind = models.AlertBreakout
	case cur.SqueezeState.InSqueeze() && !prev.SqueezeState.InSqueeze():
		kind = models.AlertSqueezeEntry
	case cur.SqueezeState == models.RegimeTightSqueeze && prev.SqueezeState == models.RegimeSqueeze:
		kind = models.AlertTightSqueeze
	default:
		return nil
	}

	ev := &models.AlertEvent{
		ID:          uuid.NewString(),
		Kind:        kind,
		Symbol:      cur.Symbol,
		Timeframe:   cur.Timeframe,
		Price:       cur.Price,
		Regime:      cur.SqueezeState,
		SqueezeBars: cur.SqueezeBars,
		Timestamp:   cur.Timestamp,
	}
	if kind == models.AlertBreakout {
		ev.Signal = cur.Signal
	}
	e.record(ev)
	return ev
}

// Recent returns up to limit alerts, newest first.
func (e *AlertEngine) Recent(limit int) []*models.AlertEvent {
	e.mu.Lock()
	defer e.mu.Unlock()
	if limit <= 0 || limit > len(e.recent) {
		limit = len(e.recent)
	}
	out := make([]*models.AlertEvent, limit)
	copy(out, e.recent[:limit])
	return out
}

func (e *AlertEngine) record(ev *models.AlertEvent) {
	e.mu.Lock()
	e.recent = append([]*models.AlertEvent{ev}, e.recent...)
	if len(e.recent) > e.capacity {
		e.recent = e.recent[:e.capacity]
	}
	callbacks := make([]func(*models.AlertEvent), len(e.callbacks))
	copy(callbacks, e.callbacks)
	e.mu.Unlock()

	for _, fn := range callbacks {
		fn(ev)
	}
}
