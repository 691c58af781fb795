package engine

import (
	"math"
	"testing"

	"VolWatch/internal/domain/models"
)

// compressionSeries builds nHigh bars of wide oscillation around 100 followed
// by nDecay bars whose amplitude shrinks geometrically, so Bollinger width
// declines bar over bar through the decay phase.
func compressionSeries(nHigh, nDecay int) []models.Candle {
	out := make([]models.Candle, 0, nHigh+nDecay)
	ts := int64(0)
	sign := 1.0
	for i := 0; i < nHigh; i++ {
		ts += 60
		out = append(out, candleAt(ts, 100+3*sign))
		sign = -sign
	}
	amp := 3.0
	for i := 0; i < nDecay; i++ {
		ts += 60
		amp *= 0.8
		out = append(out, candleAt(ts, 100+amp*sign))
		sign = -sign
	}
	return out
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.PercentileLookback = 30
	return cfg
}

func TestAnalyzerInsufficientData(t *testing.T) {
	a := NewAnalyzer(testConfig(), nil)
	snap, ev := a.SeedHistory("BTCUSDT", "15m", compressionSeries(10, 0))
	if ev != nil {
		t.Fatalf("seeding must not alert")
	}
	if snap.Status != models.StatusInsufficientData {
		t.Fatalf("10 candles must be insufficient, got %s", snap.Status)
	}
	if snap.SqueezeState != models.RegimeUnavailable || snap.Signal != models.SignalNone {
		t.Fatalf("unexpected regime/signal on short window: %+v", snap)
	}
	for name, v := range map[string]*float64{
		"price":               snap.Price,
		"bb_width_pct":        snap.BBWidthPct,
		"bb_width_percentile": snap.BBWidthPercentile,
		"atr_pct":             snap.ATRPct,
		"atr_percentile":      snap.ATRPercentile,
		"upper_band":          snap.UpperBand,
		"middle_band":         snap.MiddleBand,
		"lower_band":          snap.LowerBand,
		"percent_b":           snap.PercentB,
		"volume_ratio":        snap.VolumeRatio,
	} {
		if v != nil {
			t.Fatalf("%s must be nil on insufficient data", name)
		}
	}
}

func TestAnalyzerBaselineNeverAlerts(t *testing.T) {
	a := NewAnalyzer(testConfig(), nil)
	// the full compressed series classifies as a squeeze, which would alert
	// on any live transition; the first-ever snapshot still stays silent
	snap, ev := a.SeedHistory("BTCUSDT", "15m", compressionSeries(30, 60))
	if ev != nil {
		t.Fatalf("baseline must not emit alerts, got %+v", ev)
	}
	if snap.Status != models.StatusOK {
		t.Fatalf("expected OK baseline, got %s", snap.Status)
	}
	if !snap.SqueezeState.InSqueeze() {
		t.Fatalf("expected compressed baseline, got %v", snap.SqueezeState)
	}

	// identical follow-up snapshot: still zero alerts
	if _, ev = a.SeedHistory("BTCUSDT", "15m", compressionSeries(30, 60)); ev != nil {
		t.Fatalf("identical snapshots must emit zero alerts, got %+v", ev)
	}
	if len(a.Alerts().Recent(0)) != 0 {
		t.Fatalf("alert log must be empty")
	}
}

func TestAnalyzerCompressionScenario(t *testing.T) {
	a := NewAnalyzer(testConfig(), nil)
	series := compressionSeries(30, 60)
	a.SeedHistory("ETHUSDT", "15m", series[:30])

	var last *models.VolatilityAnalysis
	for _, c := range series[30:] {
		last, _, _ = a.ApplyTick("ETHUSDT", "15m", c)
	}
	if last.SqueezeState != models.RegimeTightSqueeze {
		t.Fatalf("sustained compression must reach tight squeeze, got %v", last.SqueezeState)
	}
	if last.SqueezeBars <= 0 {
		t.Fatalf("expected positive squeeze bar count")
	}

	// squeeze bars count every additional compressed bar
	prevBars := last.SqueezeBars
	ts := series[len(series)-1].Time
	for i := 0; i < 3; i++ {
		ts += 60
		snap, _, outcome := a.ApplyTick("ETHUSDT", "15m", candleAt(ts, 100))
		if outcome != TickAppended {
			t.Fatalf("expected appended bar, got %v", outcome)
		}
		if snap.SqueezeBars != prevBars+1 {
			t.Fatalf("expected %d squeeze bars, got %d", prevBars+1, snap.SqueezeBars)
		}
		prevBars = snap.SqueezeBars
	}
}

func TestAnalyzerBreakoutScenario(t *testing.T) {
	a := NewAnalyzer(testConfig(), nil)
	series := compressionSeries(30, 60)
	a.SeedHistory("ETHUSDT", "1h", series[:30])
	var before *models.VolatilityAnalysis
	for _, c := range series[30:] {
		before, _, _ = a.ApplyTick("ETHUSDT", "1h", c)
	}
	if !before.SqueezeState.InSqueeze() {
		t.Fatalf("precondition: expected compression, got %v", before.SqueezeState)
	}
	if before.UpperBand == nil || *before.UpperBand >= 110 {
		t.Fatalf("precondition: breakout close must clear the upper band")
	}

	snap, ev, outcome := a.ApplyTick("ETHUSDT", "1h", candleAt(series[len(series)-1].Time+60, 110))
	if outcome != TickAppended {
		t.Fatalf("expected appended breakout bar")
	}
	if snap.Signal != models.SignalBullish {
		t.Fatalf("expected bullish breakout, got %q", snap.Signal)
	}
	if snap.SqueezeBars != before.SqueezeBars {
		t.Fatalf("breakout squeeze bars must reflect pre-break compression: %d vs %d",
			snap.SqueezeBars, before.SqueezeBars)
	}
	if ev == nil || ev.Kind != models.AlertBreakout || ev.Signal != models.SignalBullish {
		t.Fatalf("expected breakout alert, got %+v", ev)
	}
}

func TestAnalyzerFormingBarNeverAlerts(t *testing.T) {
	a := NewAnalyzer(testConfig(), nil)
	series := compressionSeries(30, 60)
	a.SeedHistory("SOLUSDT", "5m", series[:30])
	for _, c := range series[30:] {
		a.ApplyTick("SOLUSDT", "5m", c)
	}
	emitted := len(a.Alerts().Recent(0))

	// replaying the forming bar with a breakout-sized close refreshes the
	// snapshot but must not run an alert check
	lastTime := series[len(series)-1].Time
	snap, ev, outcome := a.ApplyTick("SOLUSDT", "5m", candleAt(lastTime, 110))
	if outcome != TickReplaced {
		t.Fatalf("expected in-place replacement, got %v", outcome)
	}
	if ev != nil || len(a.Alerts().Recent(0)) != emitted {
		t.Fatalf("forming bar must never trigger alerts")
	}
	if snap.Price == nil || *snap.Price != 110 {
		t.Fatalf("replacement must refresh the readable snapshot")
	}

	got, ok := a.GetAnalysis("SOLUSDT", "5m")
	if !ok || got != snap {
		t.Fatalf("GetAnalysis must serve the refreshed snapshot")
	}
}

func TestAnalyzerStaleTickIgnored(t *testing.T) {
	a := NewAnalyzer(testConfig(), nil)
	series := compressionSeries(30, 0)
	a.SeedHistory("BTCUSDT", "4h", series)
	before, _ := a.GetAnalysis("BTCUSDT", "4h")

	snap, ev, outcome := a.ApplyTick("BTCUSDT", "4h", candleAt(60, 42))
	if outcome != TickIgnored {
		t.Fatalf("stale tick must be discarded, got %v", outcome)
	}
	if ev != nil || snap != before {
		t.Fatalf("stale tick must not recompute or alert")
	}
}

func TestAnalyzerUnknownKey(t *testing.T) {
	a := NewAnalyzer(testConfig(), nil)
	if _, ok := a.GetAnalysis("NOPE", "15m"); ok {
		t.Fatalf("unknown key must report absence")
	}
}

func TestAnalyzerRoundingAtSnapshotBoundary(t *testing.T) {
	a := NewAnalyzer(testConfig(), nil)
	series := compressionSeries(30, 30)
	snap, _ := a.SeedHistory("BTCUSDT", "15m", series)
	for name, v := range map[string]*float64{
		"price":        snap.Price,
		"bb_width_pct": snap.BBWidthPct,
		"volume_ratio": snap.VolumeRatio,
	} {
		if v == nil {
			continue
		}
		if math.Abs(*v*100-math.Round(*v*100)) > 1e-9 {
			t.Fatalf("%s not rounded to 2 decimals: %v", name, *v)
		}
	}
	if p := snap.BBWidthPercentile; p != nil {
		if math.Abs(*p*10-math.Round(*p*10)) > 1e-9 {
			t.Fatalf("percentile not rounded to 1 decimal: %v", *p)
		}
	}
}
