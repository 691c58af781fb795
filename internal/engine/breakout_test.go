package engine

import (
	"testing"

	"VolWatch/internal/domain/models"
)

// bands builds a minimal two-bar indicator series with fixed band values.
func bands(prevUpper, curUpper, prevLower, curLower float64, volRatio *float64) *IndicatorSeries {
	return &IndicatorSeries{
		Upper:       []*float64{fptr(prevUpper), fptr(curUpper)},
		Lower:       []*float64{fptr(prevLower), fptr(curLower)},
		VolumeRatio: []*float64{nil, volRatio},
	}
}

func squeezeHistory(n int) []models.RegimeState {
	h := make([]models.RegimeState, n)
	for i := range h {
		h[i] = models.RegimeSqueeze
	}
	return h
}

func TestBreakoutBullish(t *testing.T) {
	candles := []models.Candle{candleAt(60, 101), candleAt(120, 110)}
	ind := bands(102, 103, 98, 99, fptr(1.0))
	res := DetectBreakout(candles, ind, squeezeHistory(2), DefaultConfig())
	if res.Signal != models.SignalBullish {
		t.Fatalf("expected bullish breakout, got %q", res.Signal)
	}
	if res.VolumeSurge {
		t.Fatalf("volume surge must not fire at ratio 1.0")
	}
	if res.SqueezeBars != 1 {
		t.Fatalf("squeeze bars must exclude the breakout bar, got %d", res.SqueezeBars)
	}
}

func TestBreakoutBearish(t *testing.T) {
	candles := []models.Candle{candleAt(60, 99), candleAt(120, 90)}
	ind := bands(102, 103, 98, 97, fptr(2.0))
	res := DetectBreakout(candles, ind, squeezeHistory(2), DefaultConfig())
	if res.Signal != models.SignalBearish {
		t.Fatalf("expected bearish breakout, got %q", res.Signal)
	}
	if !res.VolumeSurge {
		t.Fatalf("expected volume surge at ratio 2.0")
	}
}

func TestBreakoutRequiresRecentSqueeze(t *testing.T) {
	candles := []models.Candle{candleAt(60, 101), candleAt(120, 110)}
	ind := bands(102, 103, 98, 99, nil)
	history := []models.RegimeState{models.RegimeNormal, models.RegimeNormal}
	res := DetectBreakout(candles, ind, history, DefaultConfig())
	if res.Signal != models.SignalNone {
		t.Fatalf("breakout without preceding squeeze must not fire, got %q", res.Signal)
	}
}

func TestBreakoutRequiresPriorCloseInsideBand(t *testing.T) {
	// prev close already above prev upper: the cross happened earlier
	candles := []models.Candle{candleAt(60, 105), candleAt(120, 110)}
	ind := bands(102, 103, 98, 99, nil)
	res := DetectBreakout(candles, ind, squeezeHistory(2), DefaultConfig())
	if res.Signal != models.SignalNone {
		t.Fatalf("expected no signal on repeated cross, got %q", res.Signal)
	}
}

func TestBreakoutUndefinedBandsNoSignal(t *testing.T) {
	candles := []models.Candle{candleAt(60, 101), candleAt(120, 110)}
	ind := bands(102, 103, 98, 99, nil)
	ind.Upper[0] = nil
	res := DetectBreakout(candles, ind, squeezeHistory(2), DefaultConfig())
	if res.Signal != models.SignalNone {
		t.Fatalf("nil band must suppress signal, got %q", res.Signal)
	}
}

func TestBreakoutNeedsTwoCandles(t *testing.T) {
	candles := []models.Candle{candleAt(60, 110)}
	ind := &IndicatorSeries{
		Upper:       []*float64{fptr(103)},
		Lower:       []*float64{fptr(99)},
		VolumeRatio: []*float64{fptr(3.0)},
	}
	res := DetectBreakout(candles, ind, squeezeHistory(1), DefaultConfig())
	if res.Signal != models.SignalNone {
		t.Fatalf("single candle must not signal, got %q", res.Signal)
	}
	if !res.VolumeSurge {
		t.Fatalf("volume surge is independent of the signal")
	}
}
