package repository

import (
	"context"
	"testing"
)

func TestMemoryWatchlist(t *testing.T) {
	ctx := context.Background()
	wl := NewMemoryWatchlist([]string{"ethusdt", "BTCUSDT"})

	got, err := wl.List(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0] != "BTCUSDT" || got[1] != "ETHUSDT" {
		t.Fatalf("seed not normalized: %v", got)
	}

	if err := wl.Add(ctx, "solusdt"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := wl.Remove(ctx, "btcusdt"); err != nil {
		t.Fatalf("remove: %v", err)
	}

	got, _ = wl.List(ctx)
	if len(got) != 2 || got[0] != "ETHUSDT" || got[1] != "SOLUSDT" {
		t.Fatalf("unexpected list after mutations: %v", got)
	}
}
