package models

import "time"

// AnalysisStatus indicates whether a snapshot carries computed values.
type AnalysisStatus string

const (
	StatusOK               AnalysisStatus = "ok"
	StatusInsufficientData AnalysisStatus = "insufficient_data"
)

// RegimeState is the volatility regime derived from the Bollinger width percentile.
type RegimeState string

const (
	RegimeTightSqueeze RegimeState = "tight_squeeze"
	RegimeSqueeze      RegimeState = "squeeze"
	RegimeNormal       RegimeState = "normal"
	RegimeExpansion    RegimeState = "expansion"
	RegimeUnavailable  RegimeState = "unavailable"
)

// InSqueeze reports whether the state counts as compression.
func (r RegimeState) InSqueeze() bool {
	return r == RegimeSqueeze || r == RegimeTightSqueeze
}

// BreakoutSignal classifies a band exit after compression.
type BreakoutSignal string

const (
	SignalNone    BreakoutSignal = ""
	SignalBullish BreakoutSignal = "bullish_breakout"
	SignalBearish BreakoutSignal = "bearish_breakout"
)

// VolatilityAnalysis is the public per-update snapshot for one (symbol, timeframe).
// Numeric fields are nil while the series lacks history or a denominator was zero.
// A snapshot is rebuilt in full on every update and never mutated in place.
type VolatilityAnalysis struct {
	Status            AnalysisStatus `json:"status"`
	Symbol            string         `json:"symbol"`
	Timeframe         string         `json:"timeframe"`
	Price             *float64       `json:"price"`
	BBWidthPct        *float64       `json:"bb_width_pct"`
	BBWidthPercentile *float64       `json:"bb_width_percentile"`
	ATRPct            *float64       `json:"atr_pct"`
	ATRPercentile     *float64       `json:"atr_percentile"`
	SqueezeState      RegimeState    `json:"squeeze_state"`
	SqueezeBars       int            `json:"squeeze_bars"`
	Signal            BreakoutSignal `json:"signal"`
	VolumeSurge       bool           `json:"volume_surge"`
	UpperBand         *float64       `json:"upper_band"`
	MiddleBand        *float64       `json:"middle_band"`
	LowerBand         *float64       `json:"lower_band"`
	PercentB          *float64       `json:"percent_b"`
	VolumeRatio       *float64       `json:"volume_ratio"`
	Timestamp         time.Time      `json:"timestamp"`
}
