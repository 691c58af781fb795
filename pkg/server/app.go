package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"VolWatch/internal/domain/repository"
	"VolWatch/internal/usecase"
	pkgcache "VolWatch/pkg/cache"
	pkgch "VolWatch/pkg/clickhouse"
	"VolWatch/pkg/config"
	xhttp "VolWatch/pkg/http"
	pkgkafka "VolWatch/pkg/kafka"
	applogger "VolWatch/pkg/logger"
	pkgqueue "VolWatch/pkg/queue"
)

// App encapsulates the entire application lifecycle: backfill, live
// screening, alert archiving, and the HTTP API.
type App struct {
	cfg         *config.Config
	logger      *applogger.Logger
	backfiller  *usecase.Backfiller
	screener    *usecase.Screener
	tfs         []repository.Timeframe
	reseedQueue *pkgqueue.RedisQueue
	consumer    *pkgkafka.Consumer
	kh          pkgkafka.MessageHandler
	chClient    *pkgch.Client
	redisCache  *pkgcache.RedisCache
	producer    *pkgkafka.Producer
	httpServer  *xhttp.Server
	httpHandler xhttp.Handler
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	lgr *applogger.Logger,
	backfiller *usecase.Backfiller,
	screener *usecase.Screener,
	tfs []repository.Timeframe,
	reseedQueue *pkgqueue.RedisQueue,
	consumer *pkgkafka.Consumer,
	kh *usecase.KafkaAlertsHandler,
	chClient *pkgch.Client,
	redisCache *pkgcache.RedisCache,
	producer *pkgkafka.Producer,
	handler xhttp.Handler,
) *App {
	a := &App{
		cfg:         cfg,
		logger:      lgr,
		backfiller:  backfiller,
		screener:    screener,
		tfs:         tfs,
		reseedQueue: reseedQueue,
		consumer:    consumer,
		chClient:    chClient,
		redisCache:  redisCache,
		producer:    producer,
		httpHandler: handler,
	}
	if kh != nil {
		a.kh = kh
	}
	return a
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := a.logger

	// aggregate noisy error logs through kafka when available
	if a.producer != nil && a.cfg.Kafka.LogTopic != "" {
		l.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   30 * time.Second,
			CountThreshold: 100,
			Topic:          a.cfg.Kafka.LogTopic,
			Publisher:      a.producer,
		})
	}

	// seed every window from REST history before going live
	l.Info("backfill starting",
		applogger.Strings("symbols", a.cfg.Bybit.Symbols),
		applogger.Int("timeframes", len(a.tfs)),
	)
	a.backfiller.Run(ctx, a.cfg.Bybit.Symbols, a.tfs)

	// live stream
	if err := a.screener.Start(ctx); err != nil {
		l.Error("screener start error", applogger.Error(err))
		return err
	}
	l.Info("screener started", applogger.Strings("symbols", a.cfg.Bybit.Symbols))

	// gap-repair workers
	if a.reseedQueue != nil {
		if err := a.reseedQueue.Start(); err != nil {
			l.Warn("reseed queue start error", applogger.Error(err))
		} else {
			a.reseedQueue.StartRetryProcessor()
		}
	}

	// alert archiver
	if a.consumer != nil && a.kh != nil {
		a.consumer.RegisterHandler(a.kh)
		go func() {
			if err := a.consumer.Start(); err != nil {
				l.Error("kafka consumer error", applogger.Error(err))
			}
		}()
		l.Info("alert archiver started", applogger.String("topic", a.kh.Topic()))
	}

	// HTTP API
	a.httpServer = xhttp.NewServer(a.httpHandler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithRequestLogger(a.logger),
	)
	if err := a.httpServer.Start(); err != nil {
		l.Error("http server start error", applogger.Error(err))
		return err
	}

	// Wait for interrupt
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	l.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	l := a.logger

	// Stop the screener (pipeline + stream)
	if err := a.screener.Shutdown(ctx); err != nil {
		l.Warn("screener stop error", applogger.Error(err))
	}

	// Shutdown HTTP server
	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if a.httpServer != nil {
		if err := a.httpServer.Stop(shutdownCtx); err != nil {
			l.Error("http shutdown error", applogger.Error(err))
		}
	}

	// Stop gap-repair workers
	if a.reseedQueue != nil {
		if err := a.reseedQueue.Stop(shutdownCtx); err != nil {
			l.Warn("reseed queue stop error", applogger.Error(err))
		}
	}

	// Stop alert archiver
	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			l.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	// Close processor resources (alert publisher)
	if a.screener != nil {
		a.screener.Processor().Close()
	}

	// Close infrastructure clients
	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			l.Warn("clickhouse close error", applogger.Error(err))
		}
	}
	if a.redisCache != nil {
		if err := a.redisCache.Close(); err != nil {
			l.Warn("redis close error", applogger.Error(err))
		}
	}
	l.RemoveCollector()

	l.Info("shutdown complete")
	return nil
}
