package bybit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	drepo "VolWatch/internal/domain/repository"

	"github.com/gorilla/websocket"
)

func TestParseKlinePush(t *testing.T) {
	frame := []byte(`{
		"topic": "kline.15.BTCUSDT",
		"type": "snapshot",
		"ts": 1700000123456,
		"data": [{
			"start": 1700000100000,
			"end": 1700001000000,
			"interval": "15",
			"open": "50000.5",
			"high": "50100",
			"low": "49900",
			"close": "50050.25",
			"volume": "123.45",
			"turnover": "6180000",
			"confirm": false,
			"timestamp": 1700000123456
		}]
	}`)

	ticks := parseKlinePush(frame)
	if len(ticks) != 1 {
		t.Fatalf("expected 1 tick, got %d", len(ticks))
	}
	tk := ticks[0]
	if tk.Symbol != "BTCUSDT" || tk.Timeframe != "15m" {
		t.Fatalf("unexpected key %s %s", tk.Symbol, tk.Timeframe)
	}
	if tk.Candle.Time != 1700000100 {
		t.Fatalf("expected unix seconds, got %d", tk.Candle.Time)
	}
	if tk.Candle.Close != 50050.25 || tk.Candle.Volume != 123.45 {
		t.Fatalf("unexpected candle %+v", tk.Candle)
	}
}

func TestParseKlinePushIgnoresNonKlineFrames(t *testing.T) {
	frames := [][]byte{
		[]byte(`{"op":"pong","success":true}`),
		[]byte(`{"success":true,"op":"subscribe","conn_id":"abc"}`),
		[]byte(`{"topic":"tickers.BTCUSDT","data":{}}`),
		[]byte(`not json at all`),
	}
	for _, f := range frames {
		if ticks := parseKlinePush(f); len(ticks) != 0 {
			t.Fatalf("expected no ticks for %s, got %d", f, len(ticks))
		}
	}
}

func TestParseKlinePushSkipsInvalidCandles(t *testing.T) {
	frame := []byte(`{
		"topic": "kline.60.ETHUSDT",
		"data": [
			{"start": 1700000000000, "open": "0", "high": "10", "low": "9", "close": "9.5", "volume": "1"},
			{"start": 1700003600000, "open": "10", "high": "10.5", "low": "9.8", "close": "10.2", "volume": "2"}
		]
	}`)

	ticks := parseKlinePush(frame)
	if len(ticks) != 1 {
		t.Fatalf("expected invalid candle dropped, got %d ticks", len(ticks))
	}
	if ticks[0].Timeframe != string(drepo.TF1h) {
		t.Fatalf("unexpected timeframe %s", ticks[0].Timeframe)
	}
}

func TestIntervalCodeRoundTrip(t *testing.T) {
	for _, tf := range []drepo.Timeframe{drepo.TF5m, drepo.TF15m, drepo.TF1h, drepo.TF4h} {
		if got := timeframeFromCode(intervalCode(tf)); got != tf {
			t.Fatalf("round trip %s: got %s", tf, got)
		}
	}
	if timeframeFromCode("1") != "" {
		t.Fatalf("unknown code should map to empty timeframe")
	}
}

func wsEchoServer(t *testing.T) (*httptest.Server, string) {
	t.Helper()
	up := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	return srv, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestReconnectResetsRetryCounter(t *testing.T) {
	srv, url := wsEchoServer(t)
	defer srv.Close()

	s := NewStream(url, time.Millisecond, time.Minute, nil)

	var mu sync.Mutex
	var connectedRetries []int
	s.OnStateChange(func(st drepo.ConnState, retries int) {
		if st == drepo.StateConnected {
			mu.Lock()
			connectedRetries = append(connectedRetries, retries)
			mu.Unlock()
		}
	})

	ctx := context.Background()
	if err := s.Connect(ctx); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := s.Reconnect(ctx); err != nil {
		t.Fatalf("reconnect: %v", err)
	}
	defer s.Close()

	mu.Lock()
	defer mu.Unlock()
	if len(connectedRetries) != 2 {
		t.Fatalf("expected 2 connected transitions, got %d", len(connectedRetries))
	}
	for i, r := range connectedRetries {
		if r != 0 {
			t.Fatalf("connected transition %d reported retries=%d, want 0", i, r)
		}
	}
}

func TestReconnectHonorsContextDuringBackoff(t *testing.T) {
	s := NewStream("ws://127.0.0.1:1", time.Hour, time.Minute, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Reconnect(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context error, got %v", err)
	}
}

func TestBackoffDelayGrowsAndCaps(t *testing.T) {
	base := 5 * time.Second
	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 5 * time.Second},
		{2, 10 * time.Second},
		{4, 40 * time.Second},
		{10, time.Minute},
	}
	for _, c := range cases {
		if got := backoffDelay(base, c.attempt); got != c.want {
			t.Fatalf("attempt %d: got %v, want %v", c.attempt, got, c.want)
		}
	}
}

func TestReadLoopStopsPingLoop(t *testing.T) {
	s := NewStream("ws://127.0.0.1:1", time.Millisecond, time.Hour, nil)

	baseline := runtime.NumGoroutine()
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		// no connection: the read loop errors out immediately and must take
		// its ping loop down with it
		_, errs := s.Read(ctx)
		for range errs {
		}
	}

	deadline := time.Now().Add(2 * time.Second)
	for runtime.NumGoroutine() > baseline+1 {
		if time.Now().After(deadline) {
			t.Fatalf("ping goroutines leaked: baseline=%d now=%d", baseline, runtime.NumGoroutine())
		}
		time.Sleep(10 * time.Millisecond)
	}
}
