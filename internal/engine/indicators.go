package engine

import (
	"math"

	"VolWatch/internal/domain/models"
)

// IndicatorSeries holds parallel indicator arrays aligned by candle index.
// A nil entry means the series had insufficient history at that index or a
// denominator was zero; NaN and Inf never appear.
type IndicatorSeries struct {
	Middle      []*float64
	Upper       []*float64
	Lower       []*float64
	Width       []*float64
	WidthPct    []*float64
	PercentB    []*float64
	ATR         []*float64
	ATRPct      []*float64
	VolumeRatio []*float64
}

// ComputeIndicators recomputes every series over the full window content.
// No incremental state is kept across calls; with the 250-candle cap the
// O(n*period) recompute stays cheap.
func ComputeIndicators(candles []models.Candle, cfg Config) *IndicatorSeries {
	n := len(candles)
	closes := make([]float64, n)
	volumes := make([]float64, n)
	for i, c := range candles {
		closes[i] = c.Close
		volumes[i] = c.Volume
	}

	out := &IndicatorSeries{
		Middle:      SMA(closes, cfg.BBPeriod),
		Width:       make([]*float64, n),
		WidthPct:    make([]*float64, n),
		PercentB:    make([]*float64, n),
		Upper:       make([]*float64, n),
		Lower:       make([]*float64, n),
		ATR:         make([]*float64, n),
		ATRPct:      make([]*float64, n),
		VolumeRatio: make([]*float64, n),
	}

	std := StdDev(closes, cfg.BBPeriod)
	for i := 0; i < n; i++ {
		if out.Middle[i] == nil || std[i] == nil {
			continue
		}
		mid, sd := *out.Middle[i], *std[i]
		upper := mid + cfg.BBStdDev*sd
		lower := mid - cfg.BBStdDev*sd
		out.Upper[i] = fptr(upper)
		out.Lower[i] = fptr(lower)
		width := upper - lower
		out.Width[i] = fptr(width)
		if mid != 0 {
			out.WidthPct[i] = fptr(width / mid * 100)
		}
		if width != 0 {
			out.PercentB[i] = fptr((closes[i] - lower) / width)
		}
	}

	atr := EMA(TrueRange(candles), cfg.ATRPeriod)
	for i := 0; i < n; i++ {
		out.ATR[i] = fptr(atr[i])
		if closes[i] != 0 {
			out.ATRPct[i] = fptr(atr[i] / closes[i] * 100)
		}
	}

	volSMA := SMA(volumes, cfg.VolumePeriod)
	for i := 0; i < n; i++ {
		if volSMA[i] == nil || *volSMA[i] == 0 {
			continue
		}
		out.VolumeRatio[i] = fptr(volumes[i] / *volSMA[i])
	}

	return out
}

// SMA returns the arithmetic mean of the trailing period values,
// nil for indices before period-1.
func SMA(values []float64, period int) []*float64 {
	out := make([]*float64, len(values))
	if period <= 0 {
		return out
	}
	var sum float64
	for i, v := range values {
		sum += v
		if i >= period {
			sum -= values[i-period]
		}
		if i >= period-1 {
			out[i] = fptr(sum / float64(period))
		}
	}
	return out
}

// EMA returns a seeded exponential moving average: indices below period are a
// growing simple average of the history so far, and from index period on the
// standard smoothing prevEMA + (v-prevEMA)*2/(period+1) applies. Unlike the
// textbook EMA it is defined from index 0; downstream warmup masking happens
// at the Bollinger/SMA layer instead.
func EMA(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 || period <= 0 {
		return out
	}
	k := 2.0 / float64(period+1)
	var sum float64
	for i, v := range values {
		if i < period {
			sum += v
			out[i] = sum / float64(i+1)
			continue
		}
		out[i] = out[i-1] + (v-out[i-1])*k
	}
	return out
}

// StdDev returns the population standard deviation (divide by period) of the
// trailing period values, nil for indices before period-1.
func StdDev(values []float64, period int) []*float64 {
	out := make([]*float64, len(values))
	if period <= 0 {
		return out
	}
	for i := period - 1; i < len(values); i++ {
		window := values[i-period+1 : i+1]
		var sum float64
		for _, v := range window {
			sum += v
		}
		mean := sum / float64(period)
		var variance float64
		for _, v := range window {
			d := v - mean
			variance += d * d
		}
		out[i] = fptr(math.Sqrt(variance / float64(period)))
	}
	return out
}

// TrueRange returns max(high-low, |high-prevClose|, |low-prevClose|) per bar;
// the first bar has no previous close and uses high-low alone.
func TrueRange(candles []models.Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		hl := c.High - c.Low
		if i == 0 {
			out[i] = hl
			continue
		}
		prevClose := candles[i-1].Close
		hc := math.Abs(c.High - prevClose)
		lc := math.Abs(c.Low - prevClose)
		out[i] = math.Max(hl, math.Max(hc, lc))
	}
	return out
}

func fptr(v float64) *float64 { return &v }
