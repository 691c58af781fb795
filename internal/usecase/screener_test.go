package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"VolWatch/internal/domain/models"
	drepo "VolWatch/internal/domain/repository"
	mid "VolWatch/internal/middleware"
)

// scriptedStream hands out fresh channel pairs per Read and fails the first
// failFirst Reconnect calls, mimicking the ws client's channel lifecycle.
type scriptedStream struct {
	mu         sync.Mutex
	failFirst  int
	reconnects int
	tickChs    []chan *models.CandleTick
	errChs     []chan error
}

func (s *scriptedStream) Connect(context.Context) error { return nil }

func (s *scriptedStream) Subscribe(context.Context, []string, []drepo.Timeframe) error {
	return nil
}

func (s *scriptedStream) Read(context.Context) (<-chan *models.CandleTick, <-chan error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tc := make(chan *models.CandleTick, 8)
	ec := make(chan error, 1)
	s.tickChs = append(s.tickChs, tc)
	s.errChs = append(s.errChs, ec)
	return tc, ec
}

func (s *scriptedStream) Reconnect(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reconnects++
	if s.reconnects <= s.failFirst {
		return errors.New("dial failed")
	}
	return nil
}

func (s *scriptedStream) Close() error                             { return nil }
func (s *scriptedStream) State() drepo.ConnState                   { return drepo.StateConnected }
func (s *scriptedStream) OnStateChange(func(drepo.ConnState, int)) {}

func (s *scriptedStream) reconnectCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reconnects
}

func (s *scriptedStream) channels(i int) (chan *models.CandleTick, chan error, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i >= len(s.tickChs) {
		return nil, nil, false
	}
	return s.tickChs[i], s.errChs[i], true
}

type recordingProc struct {
	mu    sync.Mutex
	ticks []*models.CandleTick
}

func (p *recordingProc) Process(_ context.Context, t *models.CandleTick) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ticks = append(p.ticks, t)
	return nil
}

func (p *recordingProc) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.ticks)
}

func liveTick(symbol string) *models.CandleTick {
	return &models.CandleTick{
		Symbol:    symbol,
		Timeframe: string(drepo.TF15m),
		Candle:    models.Candle{Time: 900, Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 10},
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestScreenerRetriesReconnectUntilFeedRestored(t *testing.T) {
	stream := &scriptedStream{failFirst: 1}
	proc := &recordingProc{}
	pipe := mid.NewTickPipeline(proc, nopMetrics{})
	s := NewScreener(stream, nil, pipe, nopMetrics{}, testLogger(t), nil,
		[]string{"BTCUSDT"}, []drepo.Timeframe{drepo.TF15m})
	s.retryDelay = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := s.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer func() { _ = s.Shutdown(context.Background()) }()

	// kill the first feed the way the ws read loop does: one error, then
	// both channels close
	tc0, ec0, ok := stream.channels(0)
	if !ok {
		t.Fatalf("expected initial read channels")
	}
	ec0 <- errors.New("read: connection reset")
	close(ec0)
	close(tc0)

	// the first reconnect fails; the screener must keep retrying instead of
	// abandoning the feed
	waitFor(t, "second reconnect attempt", func() bool { return stream.reconnectCount() >= 2 })

	// after the successful attempt the screener reads fresh channels and the
	// feed is live again
	waitFor(t, "fresh read channels", func() bool {
		_, _, ok := stream.channels(1)
		return ok
	})
	tc1, _, _ := stream.channels(1)
	tc1 <- liveTick("BTCUSDT")
	waitFor(t, "tick processed after recovery", func() bool { return proc.count() == 1 })
}

func TestScreenerConsumeStopsWhenFeedClosedCleanly(t *testing.T) {
	stream := &scriptedStream{}
	proc := &recordingProc{}
	pipe := mid.NewTickPipeline(proc, nopMetrics{})
	s := NewScreener(stream, nil, pipe, nopMetrics{}, testLogger(t), nil,
		[]string{"BTCUSDT"}, []drepo.Timeframe{drepo.TF15m})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := s.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer func() { _ = s.Shutdown(context.Background()) }()

	// both channels closing without an error means shutdown, not a stream
	// failure: no reconnect may be attempted
	tc0, ec0, _ := stream.channels(0)
	close(ec0)
	close(tc0)

	time.Sleep(50 * time.Millisecond)
	if got := stream.reconnectCount(); got != 0 {
		t.Fatalf("expected no reconnects on clean close, got %d", got)
	}
	if _, _, ok := stream.channels(1); ok {
		t.Fatalf("expected no further reads on clean close")
	}
}
