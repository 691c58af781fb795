package usecase

import (
	"context"
	"time"

	"VolWatch/internal/domain/models"
	drepo "VolWatch/internal/domain/repository"
	mid "VolWatch/internal/middleware"
	xlogger "VolWatch/pkg/logger"
	"VolWatch/pkg/queue"
)

// ReseedMsgType tags gap-repair jobs on the queue.
const ReseedMsgType = "volwatch.reseed"

// ReseedPayload identifies the key to re-backfill after a stream gap.
type ReseedPayload struct {
	Symbol    string `json:"symbol"`
	Timeframe string `json:"timeframe"`
}

// Screener consumes live candle ticks from the market stream and drives the
// analysis pipeline. On reconnect it schedules reseed jobs so windows that
// missed bars are rebuilt from REST history instead of drifting.
type Screener struct {
	stream  drepo.MarketStream
	proc    *TickProcessor
	pipe    *mid.TickPipeline
	metrics drepo.Metrics
	logger  *xlogger.Logger
	jobs    queue.QueueService

	symbols []string
	tfs     []drepo.Timeframe

	// pause between failed reconnect attempts
	retryDelay time.Duration
}

// NewScreener creates a new Screener instance.
func NewScreener(
	stream drepo.MarketStream,
	proc *TickProcessor,
	pipe *mid.TickPipeline,
	metrics drepo.Metrics,
	lgr *xlogger.Logger,
	jobs queue.QueueService,
	symbols []string,
	tfs []drepo.Timeframe,
) *Screener {
	return &Screener{
		stream:  stream,
		proc:    proc,
		pipe:    pipe,
		metrics: metrics,
		logger:  lgr,
		jobs:    jobs,
		symbols: symbols,
		tfs:     tfs,

		retryDelay: 5 * time.Second,
	}
}

// State reports the market stream connection state.
func (s *Screener) State() drepo.ConnState { return s.stream.State() }

// Start connects, subscribes, and launches the consume loop.
func (s *Screener) Start(ctx context.Context) error {
	s.stream.OnStateChange(func(st drepo.ConnState, retries int) {
		s.logger.Info("stream state changed",
			xlogger.String("state", string(st)),
			xlogger.Int("retries", retries),
		)
		if st == drepo.StateDisconnected {
			s.metrics.RecordError("stream_disconnect")
		}
	})

	if err := s.stream.Connect(ctx); err != nil {
		return err
	}
	if err := s.stream.Subscribe(ctx, s.symbols, s.tfs); err != nil {
		return err
	}
	if s.pipe != nil {
		s.pipe.Start(ctx)
	}
	tickCh, errCh := s.stream.Read(ctx)
	go s.consume(ctx, tickCh, errCh)
	return nil
}

// consume drains the stream channels. The stream closes both channels after
// a read error, so a nil-ed channel marks an exhausted side; once the error
// is observed the feed is recovered with fresh channels.
func (s *Screener) consume(ctx context.Context, tickCh <-chan *models.CandleTick, errCh <-chan error) {
	for {
		if tickCh == nil && errCh == nil {
			// both sides closed without a stream error: shutdown
			return
		}
		select {
		case <-ctx.Done():
			return
		case err, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}
			if err == nil {
				continue
			}
			s.metrics.RecordError("stream")
			tickCh, errCh = s.recover(ctx)
			if tickCh == nil {
				return
			}
		case t, ok := <-tickCh:
			if !ok {
				tickCh = nil
				continue
			}
			if t == nil {
				continue
			}
			if s.pipe != nil {
				_ = s.pipe.Process(ctx, t)
			} else {
				_ = s.proc.Process(ctx, t)
			}
			s.metrics.RecordLastPrice(t.Symbol, t.Candle.Close)
		}
	}
}

// recover redials until the stream is back, then schedules reseeds and
// returns fresh read channels. Returns nil channels when ctx ends first.
func (s *Screener) recover(ctx context.Context) (<-chan *models.CandleTick, <-chan error) {
	for {
		if err := s.stream.Reconnect(ctx); err != nil {
			s.logger.Error("stream reconnect failed", xlogger.Error(err))
			s.metrics.RecordError("stream_reconnect")
			select {
			case <-ctx.Done():
				return nil, nil
			case <-time.After(s.retryDelay):
			}
			continue
		}
		s.scheduleReseed(ctx)
		return s.stream.Read(ctx)
	}
}

// scheduleReseed enqueues a gap-repair job per tracked key.
func (s *Screener) scheduleReseed(ctx context.Context) {
	if s.jobs == nil {
		return
	}
	for _, sym := range s.symbols {
		for _, tf := range s.tfs {
			p := ReseedPayload{Symbol: sym, Timeframe: string(tf)}
			if err := s.jobs.PublishMessage(ctx, ReseedMsgType, p); err != nil {
				s.metrics.RecordError("reseed_enqueue")
			}
		}
	}
}

// Processor returns the underlying TickProcessor for lifecycle management.
func (s *Screener) Processor() *TickProcessor { return s.proc }

// Shutdown stops the pipeline and closes the stream.
func (s *Screener) Shutdown(ctx context.Context) error {
	if s.pipe != nil {
		s.pipe.Stop()
	}
	return s.stream.Close()
}
