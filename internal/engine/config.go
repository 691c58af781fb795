package engine

// Config holds the tunables of the volatility analytics engine.
// Zero values are replaced by defaults in Normalize.
type Config struct {
	// MaxCandles caps each candle window; oldest bars are evicted first.
	MaxCandles int

	// Bollinger Band parameters.
	BBPeriod int
	BBStdDev float64

	// ATRPeriod is the smoothing period for the True Range average.
	ATRPeriod int

	// VolumePeriod is the SMA period for the volume ratio denominator.
	VolumePeriod int

	// PercentileLookback bounds the rolling percentile-rank window.
	PercentileLookback int

	// PercentileDenominator selects the rank denominator; see percentile.go.
	PercentileDenominator DenominatorMode

	// Regime thresholds over the Bollinger width percentile.
	TightSqueezePct float64
	SqueezePct      float64
	ExpansionPct    float64

	// SqueezeLookback is how many prior bars a breakout scans for compression.
	SqueezeLookback int

	// VolumeSurgeRatio marks a volume surge when the volume ratio reaches it.
	VolumeSurgeRatio float64
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config {
	return Config{
		MaxCandles:            250,
		BBPeriod:              20,
		BBStdDev:              2.0,
		ATRPeriod:             14,
		VolumePeriod:          20,
		PercentileLookback:    100,
		PercentileDenominator: DenomWindow,
		TightSqueezePct:       10,
		SqueezePct:            20,
		ExpansionPct:          70,
		SqueezeLookback:       10,
		VolumeSurgeRatio:      1.5,
	}
}

// Normalize fills unset fields with defaults and returns the result.
func (c Config) Normalize() Config {
	def := DefaultConfig()
	if c.MaxCandles <= 0 {
		c.MaxCandles = def.MaxCandles
	}
	if c.BBPeriod <= 0 {
		c.BBPeriod = def.BBPeriod
	}
	if c.BBStdDev <= 0 {
		c.BBStdDev = def.BBStdDev
	}
	if c.ATRPeriod <= 0 {
		c.ATRPeriod = def.ATRPeriod
	}
	if c.VolumePeriod <= 0 {
		c.VolumePeriod = def.VolumePeriod
	}
	if c.PercentileLookback <= 0 {
		c.PercentileLookback = def.PercentileLookback
	}
	if c.PercentileDenominator == "" {
		c.PercentileDenominator = def.PercentileDenominator
	}
	if c.TightSqueezePct <= 0 {
		c.TightSqueezePct = def.TightSqueezePct
	}
	if c.SqueezePct <= 0 {
		c.SqueezePct = def.SqueezePct
	}
	if c.ExpansionPct <= 0 {
		c.ExpansionPct = def.ExpansionPct
	}
	if c.SqueezeLookback <= 0 {
		c.SqueezeLookback = def.SqueezeLookback
	}
	if c.VolumeSurgeRatio <= 0 {
		c.VolumeSurgeRatio = def.VolumeSurgeRatio
	}
	return c
}

// MinHistory is the fewest candles required before a full computation.
func (c Config) MinHistory() int {
	n := c.BBPeriod
	if c.ATRPeriod > n {
		n = c.ATRPeriod
	}
	if c.VolumePeriod > n {
		n = c.VolumePeriod
	}
	return n
}
