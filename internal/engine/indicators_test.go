package engine

import (
	"math"
	"testing"

	"VolWatch/internal/domain/models"
)

func TestSMAWarmupAndValues(t *testing.T) {
	got := SMA([]float64{1, 2, 3, 4}, 3)
	if got[0] != nil || got[1] != nil {
		t.Fatalf("expected nil before period-1")
	}
	if *got[2] != 2 || *got[3] != 3 {
		t.Fatalf("unexpected sma values %v %v", *got[2], *got[3])
	}
}

func TestEMASeededVariant(t *testing.T) {
	// Growing simple average through the warmup, SMA at index period-1,
	// then standard smoothing with k = 2/(period+1).
	got := EMA([]float64{2, 4, 6, 8, 10}, 3)
	want := []float64{2, 3, 4, 6, 8}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-12 {
			t.Fatalf("ema[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestStdDevIsPopulation(t *testing.T) {
	got := StdDev([]float64{1, 3}, 2)
	if got[0] != nil {
		t.Fatalf("expected nil before period-1")
	}
	if math.Abs(*got[1]-1) > 1e-12 {
		t.Fatalf("population stddev of {1,3} must be 1, got %v", *got[1])
	}
}

func TestTrueRangeFirstBarUsesHighLow(t *testing.T) {
	candles := []models.Candle{
		{Time: 60, Open: 10, High: 12, Low: 9, Close: 11, Volume: 1},
		{Time: 120, Open: 11, High: 13, Low: 12.5, Close: 12.8, Volume: 1},
	}
	tr := TrueRange(candles)
	if tr[0] != 3 {
		t.Fatalf("first bar TR must be high-low, got %v", tr[0])
	}
	// max(0.5, |13-11|, |12.5-11|) = 2
	if tr[1] != 2 {
		t.Fatalf("unexpected TR %v", tr[1])
	}
}

func TestBollingerInvariants(t *testing.T) {
	closes := []float64{100, 102, 98, 103, 99, 101, 97, 104, 100, 102, 98, 105, 99, 101, 103, 97, 100, 102, 104, 98, 101, 99, 103}
	candles := closesBatch(closes...)
	cfg := DefaultConfig()
	ind := ComputeIndicators(candles, cfg)
	std := StdDev(closes, cfg.BBPeriod)

	for i := range candles {
		if ind.Middle[i] == nil {
			if ind.Upper[i] != nil || ind.Lower[i] != nil || ind.Width[i] != nil {
				t.Fatalf("bands defined without middle at %d", i)
			}
			continue
		}
		up, lo, mid := *ind.Upper[i], *ind.Lower[i], *ind.Middle[i]
		if lo > mid || mid > up {
			t.Fatalf("band ordering violated at %d: %v %v %v", i, lo, mid, up)
		}
		want := 2 * cfg.BBStdDev * *std[i]
		if math.Abs((up-lo)-want) > 1e-9 {
			t.Fatalf("width invariant violated at %d: %v vs %v", i, up-lo, want)
		}
	}
}

func TestVolumeRatioZeroDenominatorIsNil(t *testing.T) {
	candles := closesBatch(100, 101, 102)
	for i := range candles {
		candles[i].Volume = 0
	}
	cfg := DefaultConfig()
	cfg.VolumePeriod = 2
	ind := ComputeIndicators(candles, cfg)
	for i, v := range ind.VolumeRatio {
		if v != nil {
			t.Fatalf("zero volume SMA must yield nil ratio at %d", i)
		}
	}
}

func TestATRDefinedFromFirstBar(t *testing.T) {
	candles := closesBatch(100, 101, 99)
	ind := ComputeIndicators(candles, DefaultConfig())
	for i := range candles {
		if ind.ATR[i] == nil || ind.ATRPct[i] == nil {
			t.Fatalf("seeded ATR must be defined at %d", i)
		}
	}
}
