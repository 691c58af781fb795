package engine

import (
	"testing"

	"VolWatch/internal/domain/models"
)

func TestClassifyThresholds(t *testing.T) {
	cfg := DefaultConfig()
	cases := []struct {
		in   *float64
		want models.RegimeState
	}{
		{nil, models.RegimeUnavailable},
		{fptr(5), models.RegimeTightSqueeze},
		{fptr(9.9), models.RegimeTightSqueeze},
		{fptr(10), models.RegimeSqueeze},
		{fptr(19.9), models.RegimeSqueeze},
		{fptr(20), models.RegimeNormal},
		{fptr(70), models.RegimeNormal},
		{fptr(70.1), models.RegimeExpansion},
	}
	for _, c := range cases {
		if got := Classify(c.in, cfg); got != c.want {
			t.Fatalf("classify(%v) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestSqueezeBarsBackwardScan(t *testing.T) {
	h := []models.RegimeState{
		models.RegimeNormal,
		models.RegimeSqueeze,
		models.RegimeSqueeze,
		models.RegimeTightSqueeze,
	}
	if got := SqueezeBars(h); got != 3 {
		t.Fatalf("expected 3, got %d", got)
	}
}

func TestSqueezeBarsResetsOnRegimeExit(t *testing.T) {
	h := []models.RegimeState{models.RegimeSqueeze, models.RegimeSqueeze}
	for _, exit := range []models.RegimeState{models.RegimeNormal, models.RegimeExpansion, models.RegimeUnavailable} {
		if got := SqueezeBars(append(h, exit)); got != 0 {
			t.Fatalf("expected reset to 0 after %v, got %d", exit, got)
		}
	}
}

func TestSqueezeBarsMonotoneWhileCompressed(t *testing.T) {
	h := []models.RegimeState{models.RegimeNormal}
	prev := SqueezeBars(h)
	for i := 0; i < 5; i++ {
		h = append(h, models.RegimeTightSqueeze)
		cur := SqueezeBars(h)
		if cur != prev+1 {
			t.Fatalf("expected monotone increment, got %d after %d", cur, prev)
		}
		prev = cur
	}
}

func TestWasInSqueezeRecently(t *testing.T) {
	h := []models.RegimeState{
		models.RegimeSqueeze,
		models.RegimeNormal,
		models.RegimeNormal,
	}
	if !WasInSqueezeRecently(h, 3) {
		t.Fatalf("squeeze within lookback must be found")
	}
	if WasInSqueezeRecently(h, 2) {
		t.Fatalf("squeeze outside lookback must be ignored")
	}
	if WasInSqueezeRecently(nil, 10) {
		t.Fatalf("empty history has no squeeze")
	}
}
