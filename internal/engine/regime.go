package engine

import "VolWatch/internal/domain/models"

// Classify maps a Bollinger-width percentile to a volatility regime.
// Only the width percentile feeds classification; the ATR percentile is
// computed by the pipeline but deliberately left out (see DESIGN.md).
func Classify(widthPercentile *float64, cfg Config) models.RegimeState {
	if widthPercentile == nil {
		return models.RegimeUnavailable
	}
	p := *widthPercentile
	switch {
	case p < cfg.TightSqueezePct:
		return models.RegimeTightSqueeze
	case p < cfg.SqueezePct:
		return models.RegimeSqueeze
	case p > cfg.ExpansionPct:
		return models.RegimeExpansion
	default:
		return models.RegimeNormal
	}
}

// RegimeHistory classifies every bar of a width-percentile series.
func RegimeHistory(widthPercentiles []*float64, cfg Config) []models.RegimeState {
	out := make([]models.RegimeState, len(widthPercentiles))
	for i, p := range widthPercentiles {
		out[i] = Classify(p, cfg)
	}
	return out
}

// SqueezeBars counts consecutive squeeze or tight-squeeze bars scanning
// backward from the most recent entry, stopping at the first bar in neither
// state.
func SqueezeBars(history []models.RegimeState) int {
	bars := 0
	for i := len(history) - 1; i >= 0; i-- {
		if !history[i].InSqueeze() {
			break
		}
		bars++
	}
	return bars
}

// WasInSqueezeRecently reports whether any of the trailing lookback entries
// was a squeeze or tight squeeze. Callers pass the history excluding the
// current bar when gating a breakout on preceding compression.
func WasInSqueezeRecently(history []models.RegimeState, lookback int) bool {
	start := len(history) - lookback
	if start < 0 {
		start = 0
	}
	for _, s := range history[start:] {
		if s.InSqueeze() {
			return true
		}
	}
	return false
}
