package engine

import "VolWatch/internal/domain/models"

// BreakoutResult is the transient breakout verdict for the latest bar.
// SqueezeBars counts the compression that preceded the break, excluding the
// already-broken-out bar itself.
type BreakoutResult struct {
	Signal      models.BreakoutSignal
	VolumeSurge bool
	SqueezeBars int
}

// DetectBreakout checks the two most recent candles for a band cross
// conditioned on recent compression. Bullish is checked before bearish and
// at most one signal fires per update. VolumeSurge is reported independently
// and never gates the signal.
func DetectBreakout(candles []models.Candle, ind *IndicatorSeries, history []models.RegimeState, cfg Config) BreakoutResult {
	var res BreakoutResult

	n := len(candles)
	if n >= 1 && ind.VolumeRatio[n-1] != nil {
		res.VolumeSurge = *ind.VolumeRatio[n-1] >= cfg.VolumeSurgeRatio
	}
	if n < 2 {
		return res
	}

	prior := history
	if len(prior) > 0 {
		prior = prior[:len(prior)-1]
	}
	res.SqueezeBars = SqueezeBars(prior)

	curUpper, prevUpper := ind.Upper[n-1], ind.Upper[n-2]
	curLower, prevLower := ind.Lower[n-1], ind.Lower[n-2]
	if curUpper == nil || prevUpper == nil || curLower == nil || prevLower == nil {
		return res
	}
	if !WasInSqueezeRecently(prior, cfg.SqueezeLookback) {
		return res
	}

	cur, prev := candles[n-1], candles[n-2]
	switch {
	case cur.Close > *curUpper && prev.Close <= *prevUpper:
		res.Signal = models.SignalBullish
	case cur.Close < *curLower && prev.Close >= *prevLower:
		res.Signal = models.SignalBearish
	}
	return res
}
