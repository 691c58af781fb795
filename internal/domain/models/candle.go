package models

// Candle represents a single OHLCV bar. Time is unix seconds of the bar open.
type Candle struct {
	Time   int64   `json:"time"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

// Valid reports whether the candle carries plausible OHLCV values.
// Upstream data is trusted beyond this after outlier filtering.
func (c Candle) Valid() bool {
	return c.Time > 0 && c.Open > 0 && c.High > 0 && c.Low > 0 && c.Close > 0 && c.Volume >= 0
}

// CandleTick is one streamed candle update for a (symbol, timeframe) pair.
// The same bar may arrive repeatedly while it is still forming.
type CandleTick struct {
	Symbol    string `json:"symbol"`
	Timeframe string `json:"timeframe"`
	Candle    Candle `json:"candle"`
}
