package engine

import (
	"math"
	"sort"

	"VolWatch/internal/domain/models"
)

// outlierMinBatch is the smallest historical batch the filter runs on;
// smaller batches pass through unchanged.
const outlierMinBatch = 10

// outlierMADFactor is the rejection distance in MAD multiples.
const outlierMADFactor = 10.0

// FilterOutliers drops candles whose close sits more than ten median absolute
// deviations from the batch median close. It runs once per fresh historical
// batch, not per streaming tick, and guards against single corrupt prints
// from the upstream feed. A zero MAD (flat closes) disables rejection.
func FilterOutliers(batch []models.Candle) []models.Candle {
	if len(batch) <= outlierMinBatch {
		return batch
	}

	closes := make([]float64, len(batch))
	for i, c := range batch {
		closes[i] = c.Close
	}
	med := median(closes)

	devs := make([]float64, len(closes))
	for i, v := range closes {
		devs[i] = math.Abs(v - med)
	}
	mad := median(devs)
	if mad <= 0 {
		return batch
	}

	kept := make([]models.Candle, 0, len(batch))
	for _, c := range batch {
		if math.Abs(c.Close-med) > outlierMADFactor*mad {
			continue
		}
		kept = append(kept, c)
	}
	return kept
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}
