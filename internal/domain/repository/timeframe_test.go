package repository

import (
	"testing"
	"time"
)

func TestNormalizeTimeframe(t *testing.T) {
	cases := []struct {
		in   string
		want Timeframe
	}{
		{"", TF15m},
		{"5m", TF5m},
		{"1h", TF1h},
		{"4h", TF4h},
		{"1d", TF15m},
		{"garbage", TF15m},
	}
	for _, tc := range cases {
		if got := NormalizeTimeframe(tc.in); got != tc.want {
			t.Fatalf("NormalizeTimeframe(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestTimeframeDuration(t *testing.T) {
	if d := TF4h.Duration(); d != 4*time.Hour {
		t.Fatalf("TF4h duration = %v", d)
	}
	if d := Timeframe("bogus").Duration(); d != 15*time.Minute {
		t.Fatalf("fallback duration = %v", d)
	}
}
