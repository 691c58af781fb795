package engine

// DenominatorMode picks the percentile-rank denominator. The reference
// behavior is ambiguous between the two forms, so it is an explicit
// configuration constant; see DESIGN.md for the default rationale.
type DenominatorMode string

const (
	// DenomWindow divides the strictly-less count by the window size.
	DenomWindow DenominatorMode = "window"
	// DenomWindowMinusOne divides by window size minus one.
	DenomWindowMinusOne DenominatorMode = "window_minus_one"
)

// PercentileRank ranks each defined series entry against the trailing
// lookback window ending at it, as a 0..100 percentage of window values
// strictly below the entry. Indices before lookback-1, nil entries, and
// windows with fewer than two defined values rank as nil.
func PercentileRank(series []*float64, lookback int, mode DenominatorMode) []*float64 {
	out := make([]*float64, len(series))
	if lookback <= 0 {
		return out
	}
	for i := range series {
		if i < lookback-1 || series[i] == nil {
			continue
		}
		out[i] = rankAt(series, i, lookback, mode)
	}
	return out
}

func rankAt(series []*float64, i, lookback int, mode DenominatorMode) *float64 {
	cur := *series[i]
	start := i - lookback + 1
	if start < 0 {
		start = 0
	}

	count := 0
	below := 0
	for _, v := range series[start : i+1] {
		if v == nil {
			continue
		}
		count++
		if *v < cur {
			below++
		}
	}
	if count < 2 {
		return nil
	}

	denom := float64(count)
	if mode == DenomWindowMinusOne {
		denom = float64(count - 1)
	}
	return fptr(float64(below) / denom * 100)
}
