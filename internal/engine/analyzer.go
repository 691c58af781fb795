package engine

import (
	"math"
	"sync"
	"time"

	"VolWatch/internal/domain/models"
)

// Key identifies one analyzed (symbol, timeframe) pair.
type Key struct {
	Symbol    string
	Timeframe string
}

type phase int

const (
	phaseUninitialized phase = iota
	phaseBaseline
	phaseLive
)

// keyState is the single-writer state for one key. The mutex serializes the
// reconciliation path; callers never share windows across keys.
type keyState struct {
	mu     sync.Mutex
	window *CandleWindow
	phase  phase
	// prev is the last alert-eligible snapshot; forming-bar replacements
	// update last but never prev, so alert diffs only see closed bars.
	prev *models.VolatilityAnalysis
	last *models.VolatilityAnalysis
}

// Analyzer reconciles candle updates into VolatilityAnalysis snapshots and
// drives alert evaluation. It owns one candle window and one previous
// snapshot slot per key; there is no package-level state.
type Analyzer struct {
	cfg    Config
	alerts *AlertEngine

	mu     sync.RWMutex
	states map[Key]*keyState
}

// NewAnalyzer creates an analyzer with the given config and alert engine.
func NewAnalyzer(cfg Config, alerts *AlertEngine) *Analyzer {
	if alerts == nil {
		alerts = NewAlertEngine(DefaultAlertCapacity)
	}
	return &Analyzer{
		cfg:    cfg.Normalize(),
		alerts: alerts,
		states: make(map[Key]*keyState),
	}
}

// Alerts returns the alert engine backing this analyzer.
func (a *Analyzer) Alerts() *AlertEngine { return a.alerts }

// Config returns the normalized engine config.
func (a *Analyzer) Config() Config { return a.cfg }

// SeedHistory loads a freshly fetched historical batch for a key, running
// outlier rejection, rebuilding the window, and computing a snapshot. The
// first successful computation becomes the stored baseline and never emits
// an alert; later seedings (periodic refresh) diff like any other update.
func (a *Analyzer) SeedHistory(symbol, timeframe string, batch []models.Candle) (*models.VolatilityAnalysis, *models.AlertEvent) {
	st := a.state(Key{symbol, timeframe})
	st.mu.Lock()
	defer st.mu.Unlock()

	st.window.Reset(FilterOutliers(batch))
	snap := a.compute(symbol, timeframe, st.window.Candles())
	return snap, a.advance(st, snap)
}

// ApplyTick reconciles one streamed candle. Stale or out-of-order ticks are
// discarded without recomputation. A replaced forming bar refreshes the
// readable snapshot but is never alert-checked; only an appended (closed)
// bar advances the baseline/live state machine and may emit an alert.
func (a *Analyzer) ApplyTick(symbol, timeframe string, c models.Candle) (*models.VolatilityAnalysis, *models.AlertEvent, TickOutcome) {
	st := a.state(Key{symbol, timeframe})
	st.mu.Lock()
	defer st.mu.Unlock()

	outcome := st.window.Apply(c)
	switch outcome {
	case TickIgnored:
		return st.last, nil, outcome
	case TickReplaced:
		st.last = a.compute(symbol, timeframe, st.window.Candles())
		return st.last, nil, outcome
	}

	snap := a.compute(symbol, timeframe, st.window.Candles())
	return snap, a.advance(st, snap), outcome
}

// GetAnalysis returns the latest snapshot for a key, if one exists.
func (a *Analyzer) GetAnalysis(symbol, timeframe string) (*models.VolatilityAnalysis, bool) {
	a.mu.RLock()
	st, ok := a.states[Key{symbol, timeframe}]
	a.mu.RUnlock()
	if !ok {
		return nil, false
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.last == nil {
		return nil, false
	}
	return st.last, true
}

// Keys lists every key the analyzer currently tracks.
func (a *Analyzer) Keys() []Key {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]Key, 0, len(a.states))
	for k := range a.states {
		out = append(out, k)
	}
	return out
}

// advance runs the Uninitialized -> Baseline -> Live transitions for an
// alert-eligible snapshot and returns the emitted alert, if any. Callers
// hold st.mu.
func (a *Analyzer) advance(st *keyState, snap *models.VolatilityAnalysis) *models.AlertEvent {
	var ev *models.AlertEvent
	switch st.phase {
	case phaseUninitialized:
		if snap.Status == models.StatusOK {
			st.phase = phaseBaseline
		}
	default:
		ev = a.alerts.Evaluate(st.prev, snap)
		st.phase = phaseLive
	}
	st.prev = snap
	st.last = snap
	return ev
}

func (a *Analyzer) state(k Key) *keyState {
	a.mu.RLock()
	st, ok := a.states[k]
	a.mu.RUnlock()
	if ok {
		return st
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if st, ok = a.states[k]; ok {
		return st
	}
	st = &keyState{window: NewCandleWindow(a.cfg.MaxCandles)}
	a.states[k] = st
	return st
}

// compute produces a full snapshot from the current window content.
// Below the minimum history it short-circuits to an insufficient-data
// snapshot with every numeric field nil.
func (a *Analyzer) compute(symbol, timeframe string, candles []models.Candle) *models.VolatilityAnalysis {
	now := time.Now()
	n := len(candles)
	if n < a.cfg.MinHistory() {
		return &models.VolatilityAnalysis{
			Status:       models.StatusInsufficientData,
			Symbol:       symbol,
			Timeframe:    timeframe,
			SqueezeState: models.RegimeUnavailable,
			Signal:       models.SignalNone,
			Timestamp:    now,
		}
	}

	ind := ComputeIndicators(candles, a.cfg)
	widthPctile := PercentileRank(ind.WidthPct, a.cfg.PercentileLookback, a.cfg.PercentileDenominator)
	atrPctile := PercentileRank(ind.ATRPct, a.cfg.PercentileLookback, a.cfg.PercentileDenominator)
	history := RegimeHistory(widthPctile, a.cfg)

	bars := SqueezeBars(history)
	br := DetectBreakout(candles, ind, history, a.cfg)
	if br.Signal != models.SignalNone {
		// report the compression that preceded the break
		bars = br.SqueezeBars
	}

	last := n - 1
	return &models.VolatilityAnalysis{
		Status:            models.StatusOK,
		Symbol:            symbol,
		Timeframe:         timeframe,
		Price:             fptr(round(candles[last].Close, 2)),
		BBWidthPct:        roundPtr(ind.WidthPct[last], 2),
		BBWidthPercentile: roundPtr(widthPctile[last], 1),
		ATRPct:            roundPtr(ind.ATRPct[last], 2),
		ATRPercentile:     roundPtr(atrPctile[last], 1),
		SqueezeState:      history[last],
		SqueezeBars:       bars,
		Signal:            br.Signal,
		VolumeSurge:       br.VolumeSurge,
		UpperBand:         roundPtr(ind.Upper[last], 2),
		MiddleBand:        roundPtr(ind.Middle[last], 2),
		LowerBand:         roundPtr(ind.Lower[last], 2),
		PercentB:          roundPtr(ind.PercentB[last], 2),
		VolumeRatio:       roundPtr(ind.VolumeRatio[last], 2),
		Timestamp:         now,
	}
}

// Rounding happens only at the snapshot boundary; intermediate series stay
// unrounded so downstream math never compounds rounding error.
func round(v float64, places int) float64 {
	pow := math.Pow(10, float64(places))
	return math.Round(v*pow) / pow
}

func roundPtr(v *float64, places int) *float64 {
	if v == nil {
		return nil
	}
	return fptr(round(*v, places))
}
