package bybit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"VolWatch/internal/domain/models"
	drepo "VolWatch/internal/domain/repository"
	xlogger "VolWatch/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/tidwall/gjson"
)

// Stream implements a MarketStream backed by the Bybit v5 public WebSocket.
// Kline pushes arrive for both forming and confirmed bars; both are forwarded
// and the engine decides what each tick means for its window.
type Stream struct {
	url            string
	reconnectDelay time.Duration
	pingInterval   time.Duration
	logger         *xlogger.Logger

	mu         sync.Mutex
	conn       *websocket.Conn
	state      drepo.ConnState
	retries    int
	stateFns   []func(drepo.ConnState, int)
	subscribed []string // kline topics, resubscribed after reconnect
}

// NewStream creates a Bybit WebSocket market stream.
func NewStream(url string, reconnectDelay, pingInterval time.Duration, lgr *xlogger.Logger) *Stream {
	if reconnectDelay <= 0 {
		reconnectDelay = 5 * time.Second
	}
	if pingInterval <= 0 {
		pingInterval = 20 * time.Second
	}
	return &Stream{
		url:            url,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
		logger:         lgr,
		state:          drepo.StateDisconnected,
	}
}

// Connect establishes the WebSocket connection.
func (s *Stream) Connect(ctx context.Context) error {
	s.setState(drepo.StateConnecting)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.url, nil)
	if err != nil {
		s.setState(drepo.StateDisconnected)
		return fmt.Errorf("bybit connect: %w", err)
	}
	s.mu.Lock()
	s.conn = conn
	s.retries = 0
	s.mu.Unlock()
	s.setState(drepo.StateConnected)
	if s.logger != nil {
		s.logger.Info("bybit stream connected", xlogger.String("url", s.url))
	}
	return nil
}

// Subscribe subscribes to kline topics for every (symbol, timeframe) pair.
func (s *Stream) Subscribe(ctx context.Context, symbols []string, tfs []drepo.Timeframe) error {
	s.mu.Lock()
	conn := s.conn
	connected := s.state == drepo.StateConnected
	s.mu.Unlock()
	if conn == nil || !connected {
		return fmt.Errorf("bybit not connected")
	}

	topics := make([]string, 0, len(symbols)*len(tfs))
	for _, sym := range symbols {
		for _, tf := range tfs {
			topics = append(topics, fmt.Sprintf("kline.%s.%s", intervalCode(tf), sym))
		}
	}
	msg := map[string]interface{}{"op": "subscribe", "args": topics}
	if err := conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("bybit subscribe: %w", err)
	}

	s.mu.Lock()
	s.subscribed = topics
	s.mu.Unlock()
	if s.logger != nil {
		s.logger.Info("bybit subscribed", xlogger.Int("topics", len(topics)))
	}
	return nil
}

// Read streams CandleTick events and errors.
func (s *Stream) Read(ctx context.Context) (<-chan *models.CandleTick, <-chan error) {
	ticks := make(chan *models.CandleTick, 1024)
	errs := make(chan error, 1)
	done := make(chan struct{})

	// ping loop, bounded by this Read's read loop so reconnects don't
	// accumulate pingers
	go func() {
		ticker := time.NewTicker(s.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case <-ticker.C:
				s.mu.Lock()
				conn := s.conn
				s.mu.Unlock()
				if conn != nil {
					_ = conn.WriteJSON(map[string]string{"op": "ping"})
				}
			}
		}
	}()

	// read loop
	go func() {
		defer close(done)
		defer close(ticks)
		defer close(errs)
		for {
			select {
			case <-ctx.Done():
				return
			default:
				s.mu.Lock()
				conn := s.conn
				s.mu.Unlock()
				if conn == nil {
					errs <- fmt.Errorf("bybit conn nil")
					return
				}
				_, b, err := conn.ReadMessage()
				if err != nil {
					s.setState(drepo.StateDisconnected)
					errs <- fmt.Errorf("bybit read: %w", err)
					return
				}
				for _, tick := range parseKlinePush(b) {
					select {
					case ticks <- tick:
					default:
						// drop on backpressure
					}
				}
			}
		}
	}()

	return ticks, errs
}

// parseKlinePush extracts candle ticks from a kline topic push frame.
// Non-kline frames (pong, subscribe acks) yield nothing.
func parseKlinePush(b []byte) []*models.CandleTick {
	root := gjson.ParseBytes(b)
	topic := root.Get("topic").String()
	if len(topic) < 7 || topic[:6] != "kline." {
		return nil
	}
	// topic: kline.<interval>.<symbol>
	rest := topic[6:]
	dot := -1
	for i := 0; i < len(rest); i++ {
		if rest[i] == '.' {
			dot = i
			break
		}
	}
	if dot < 0 {
		return nil
	}
	symbol := rest[dot+1:]
	tf := timeframeFromCode(rest[:dot])
	if symbol == "" || tf == "" {
		return nil
	}

	var out []*models.CandleTick
	for _, d := range root.Get("data").Array() {
		c := models.Candle{
			Time:   d.Get("start").Int() / 1000,
			Open:   d.Get("open").Float(),
			High:   d.Get("high").Float(),
			Low:    d.Get("low").Float(),
			Close:  d.Get("close").Float(),
			Volume: d.Get("volume").Float(),
		}
		if !c.Valid() {
			continue
		}
		out = append(out, &models.CandleTick{
			Symbol:    symbol,
			Timeframe: string(tf),
			Candle:    c,
		})
	}
	return out
}

func timeframeFromCode(code string) drepo.Timeframe {
	switch code {
	case "5":
		return drepo.TF5m
	case "15":
		return drepo.TF15m
	case "60":
		return drepo.TF1h
	case "240":
		return drepo.TF4h
	default:
		return ""
	}
}

// Reconnect closes and re-establishes the connection, restoring subscriptions.
// The delay before redial grows exponentially with consecutive failures; the
// retry counter resets once a dial succeeds, as in Connect.
func (s *Stream) Reconnect(ctx context.Context) error {
	_ = s.Close()
	s.mu.Lock()
	s.retries++
	retries := s.retries
	topics := s.subscribed
	s.mu.Unlock()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(backoffDelay(s.reconnectDelay, retries)):
	}
	s.setState(drepo.StateConnecting)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.url, nil)
	if err != nil {
		s.setState(drepo.StateDisconnected)
		return fmt.Errorf("bybit reconnect #%d: %w", retries, err)
	}
	s.mu.Lock()
	s.conn = conn
	s.retries = 0
	s.mu.Unlock()
	s.setState(drepo.StateConnected)

	if len(topics) > 0 {
		msg := map[string]interface{}{"op": "subscribe", "args": topics}
		if err := conn.WriteJSON(msg); err != nil {
			return fmt.Errorf("bybit resubscribe: %w", err)
		}
	}
	if s.logger != nil {
		s.logger.Info("bybit stream reconnected", xlogger.Int("attempt", retries))
	}
	return nil
}

// backoffDelay doubles base per prior consecutive failure, capped at one
// minute.
func backoffDelay(base time.Duration, attempt int) time.Duration {
	const maxDelay = time.Minute
	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= maxDelay {
			return maxDelay
		}
	}
	return d
}

// Close closes the WS connection.
func (s *Stream) Close() error {
	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()
	s.setState(drepo.StateDisconnected)
	if conn != nil {
		return conn.Close()
	}
	return nil
}

// State returns the current connection state.
func (s *Stream) State() drepo.ConnState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// OnStateChange registers a callback fired on every state transition with the
// current retry count.
func (s *Stream) OnStateChange(fn func(drepo.ConnState, int)) {
	s.mu.Lock()
	s.stateFns = append(s.stateFns, fn)
	s.mu.Unlock()
}

func (s *Stream) setState(st drepo.ConnState) {
	s.mu.Lock()
	if s.state == st {
		s.mu.Unlock()
		return
	}
	s.state = st
	retries := s.retries
	fns := make([]func(drepo.ConnState, int), len(s.stateFns))
	copy(fns, s.stateFns)
	s.mu.Unlock()
	for _, fn := range fns {
		fn(st, retries)
	}
}

var _ drepo.MarketStream = (*Stream)(nil)
