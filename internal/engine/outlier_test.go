package engine

import (
	"testing"

	"VolWatch/internal/domain/models"
)

func closesBatch(closes ...float64) []models.Candle {
	out := make([]models.Candle, len(closes))
	for i, c := range closes {
		out[i] = candleAt(int64(i+1)*60, c)
	}
	return out
}

func TestFilterOutliersSmallBatchPassesThrough(t *testing.T) {
	batch := closesBatch(100, 100, 100, 100, 100, 100, 100, 100, 100, 5000)
	got := FilterOutliers(batch)
	if len(got) != len(batch) {
		t.Fatalf("batches of %d or fewer must pass through, got %d", outlierMinBatch, len(got))
	}
}

func TestFilterOutliersDropsCorruptPrint(t *testing.T) {
	closes := []float64{100, 101, 99, 100.5, 100, 99.5, 101, 100, 100.2, 99.8, 5000, 100.1}
	got := FilterOutliers(closesBatch(closes...))
	if len(got) != len(closes)-1 {
		t.Fatalf("expected one candle dropped, got %d of %d", len(got), len(closes))
	}
	for _, c := range got {
		if c.Close == 5000 {
			t.Fatalf("corrupt print survived filtering")
		}
	}
}

func TestFilterOutliersZeroMADDisablesRejection(t *testing.T) {
	closes := make([]float64, 12)
	for i := range closes {
		closes[i] = 100
	}
	closes[5] = 9999 // single spike cannot move the MAD off zero
	got := FilterOutliers(closesBatch(closes...))
	if len(got) != len(closes) {
		t.Fatalf("zero MAD must disable rejection, got %d of %d", len(got), len(closes))
	}
}
