package bybit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	drepo "VolWatch/internal/domain/repository"
)

func klineServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v5/market/kline" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("interval"); got != "5" {
			t.Errorf("unexpected interval %s", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
}

func TestFetchCandlesOrdersOldestFirst(t *testing.T) {
	// Bybit returns rows newest first
	srv := klineServer(t, `{
		"retCode": 0,
		"retMsg": "OK",
		"result": {
			"category": "linear",
			"symbol": "BTCUSDT",
			"list": [
				["1700000600000", "101", "102", "100", "101.5", "10", "1015"],
				["1700000300000", "100", "101", "99", "101", "12", "1212"],
				["1700000000000", "99", "100.5", "98", "100", "11", "1100"]
			]
		}
	}`)
	defer srv.Close()

	c := NewRESTClient(srv.URL, "linear", 100, 5*time.Second, nil)
	candles, err := c.FetchCandles(context.Background(), "BTCUSDT", drepo.TF5m, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(candles) != 3 {
		t.Fatalf("expected 3 candles, got %d", len(candles))
	}
	for i := 1; i < len(candles); i++ {
		if candles[i].Time <= candles[i-1].Time {
			t.Fatalf("candles not ascending at %d", i)
		}
	}
	if candles[0].Time != 1700000000 || candles[2].Close != 101.5 {
		t.Fatalf("unexpected candles %+v", candles)
	}
}

func TestFetchCandlesRetCodeError(t *testing.T) {
	srv := klineServer(t, `{"retCode": 10001, "retMsg": "params error", "result": {}}`)
	defer srv.Close()

	c := NewRESTClient(srv.URL, "linear", 100, 5*time.Second, nil)
	if _, err := c.FetchCandles(context.Background(), "BTCUSDT", drepo.TF5m, 10); err == nil {
		t.Fatalf("expected retCode error")
	}
}

func TestFetchCandlesBreakerOpensAfterFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewRESTClient(srv.URL, "linear", 1000, time.Second, nil)
	for i := 0; i < 5; i++ {
		if _, err := c.FetchCandles(context.Background(), "BTCUSDT", drepo.TF5m, 10); err == nil {
			t.Fatalf("expected error on attempt %d", i)
		}
	}
	// breaker is open now; the request must fail without reaching the server
	if _, err := c.FetchCandles(context.Background(), "BTCUSDT", drepo.TF5m, 10); err == nil {
		t.Fatalf("expected breaker-open error")
	}
}
