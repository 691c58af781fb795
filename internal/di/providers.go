package di

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"VolWatch/internal/domain/repository"
	"VolWatch/internal/engine"
	"VolWatch/internal/handler/api"
	mid "VolWatch/internal/middleware"
	internalrepo "VolWatch/internal/repository"
	"VolWatch/internal/service/bybit"
	"VolWatch/internal/usecase"
	pkgcache "VolWatch/pkg/cache"
	pkgch "VolWatch/pkg/clickhouse"
	"VolWatch/pkg/config"
	pkgkafka "VolWatch/pkg/kafka"
	"VolWatch/pkg/logger"
	"VolWatch/pkg/metrics"
	pkgqueue "VolWatch/pkg/queue"
	"VolWatch/pkg/server"

	kafkago "github.com/segmentio/kafka-go"
)

// ProvideLogger creates the application logger from config.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	level := cfg.Log.Level
	if level == "" {
		level = "info"
	}
	format := cfg.Log.Format
	if format == "" {
		format = "console"
	}
	output := cfg.Log.Output
	if output == "" {
		output = "stdout"
	}
	return logger.New(&logger.Config{Level: level, Format: format, Output: output})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideEngineConfig maps YAML engine settings onto engine defaults.
func ProvideEngineConfig(cfg *config.Config) engine.Config {
	ec := engine.DefaultConfig()
	e := cfg.Engine
	if e.MaxCandles > 0 {
		ec.MaxCandles = e.MaxCandles
	}
	if e.BollingerPeriod > 0 {
		ec.BBPeriod = e.BollingerPeriod
	}
	if e.BollingerStdDev > 0 {
		ec.BBStdDev = e.BollingerStdDev
	}
	if e.ATRPeriod > 0 {
		ec.ATRPeriod = e.ATRPeriod
	}
	if e.VolumePeriod > 0 {
		ec.VolumePeriod = e.VolumePeriod
	}
	if e.PercentileLookback > 0 {
		ec.PercentileLookback = e.PercentileLookback
	}
	if e.PercentileDenom == "window_minus_one" {
		ec.PercentileDenominator = engine.DenomWindowMinusOne
	}
	if e.TightSqueezeMax > 0 {
		ec.TightSqueezePct = e.TightSqueezeMax
	}
	if e.SqueezeMax > 0 {
		ec.SqueezePct = e.SqueezeMax
	}
	if e.ExpansionMin > 0 {
		ec.ExpansionPct = e.ExpansionMin
	}
	if e.SqueezeLookback > 0 {
		ec.SqueezeLookback = e.SqueezeLookback
	}
	if e.VolumeSurgeRatio > 0 {
		ec.VolumeSurgeRatio = e.VolumeSurgeRatio
	}
	return ec
}

// ProvideAnalyzer creates the analysis engine with its alert ring.
func ProvideAnalyzer(cfg *config.Config, ec engine.Config) *engine.Analyzer {
	capacity := cfg.Engine.AlertHistoryCapacity
	if capacity <= 0 {
		capacity = engine.DefaultAlertCapacity
	}
	return engine.NewAnalyzer(ec, engine.NewAlertEngine(capacity))
}

// ProvideTimeframes parses configured timeframes, dropping unknown values.
func ProvideTimeframes(cfg *config.Config) []repository.Timeframe {
	out := make([]repository.Timeframe, 0, len(cfg.Bybit.Timeframes))
	for _, s := range cfg.Bybit.Timeframes {
		tf := repository.Timeframe(s)
		if repository.IsValidTimeframe(tf) {
			out = append(out, tf)
		}
	}
	if len(out) == 0 {
		out = append(out, repository.DefaultTimeframe())
	}
	return out
}

// ProvideRedisCache creates the Redis client, or nil when disabled.
func ProvideRedisCache(cfg *config.Config) (*pkgcache.RedisCache, error) {
	if !cfg.Redis.Enabled {
		return nil, nil
	}
	host, portStr, err := net.SplitHostPort(cfg.Redis.Addr)
	if err != nil {
		return nil, fmt.Errorf("redis addr: %w", err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("redis port: %w", err)
	}
	return pkgcache.NewRedisCache(
		pkgcache.WithRedisHost(host),
		pkgcache.WithRedisPort(port),
		pkgcache.WithRedisPassword(cfg.Redis.Password),
		pkgcache.WithRedisDB(cfg.Redis.DB),
		pkgcache.WithRedisPrefix("volwatch"),
	)
}

// ProvideSnapshotCache builds a layered snapshot cache when Redis is present,
// falling back to in-process memory otherwise.
func ProvideSnapshotCache(rc *pkgcache.RedisCache, cfg *config.Config) repository.SnapshotCache {
	ttl := cfg.Redis.SnapshotTTL
	if rc != nil {
		layered := pkgcache.NewLayeredCache(rc, pkgcache.WithLayeredMemorySize(4096))
		return internalrepo.NewCachedSnapshots(layered, ttl)
	}
	return internalrepo.NewCachedSnapshots(pkgcache.NewMemoryCache(), ttl)
}

// ProvideWatchlist builds the watchlist store.
func ProvideWatchlist(rc *pkgcache.RedisCache, cfg *config.Config) repository.Watchlist {
	if rc != nil {
		return internalrepo.NewRedisWatchlist(rc.Client())
	}
	return internalrepo.NewMemoryWatchlist(cfg.Bybit.Symbols)
}

// ProvideKafkaProducer creates a Kafka producer, or nil when disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideAlertPublisher wraps the producer, or nil when Kafka is disabled.
func ProvideAlertPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.AlertPublisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaAlertPublisher(producer, cfg.Kafka.AlertTopic)
}

// ProvideClickHouseClient creates a ClickHouse client with the alert schema,
// or nil when disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db := cfg.ClickHouse.Database
	if err := client.InitSchema(ctx, []string{
		"CREATE DATABASE IF NOT EXISTS " + db,
		"CREATE TABLE IF NOT EXISTS " + db + ".alerts (" +
			"id String, kind String, symbol String, timeframe String, " +
			"price Float64, signal String, regime String, squeeze_bars UInt32, ts DateTime" +
			") ENGINE=MergeTree ORDER BY (symbol, ts)",
	}); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	return client, nil
}

// ProvideAlertArchive wraps the ClickHouse client, or nil when disabled.
func ProvideAlertArchive(chClient *pkgch.Client, cfg *config.Config) repository.AlertArchive {
	if chClient == nil {
		return nil
	}
	return internalrepo.NewClickHouseAlertArchive(chClient.DB(), cfg.ClickHouse.Database+".alerts")
}

// ProvideKafkaConsumer creates the alert archiver's consumer, or nil when
// either Kafka or ClickHouse is disabled.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled || !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideKafkaAlertsHandler registers the archive handler for the alert topic.
func ProvideKafkaAlertsHandler(archive repository.AlertArchive, m repository.Metrics, cfg *config.Config) *usecase.KafkaAlertsHandler {
	if archive == nil {
		return nil
	}
	return usecase.NewKafkaAlertsHandler(cfg.Kafka.AlertTopic, archive, m)
}

// ProvideCandleSource creates the Bybit REST candle source.
func ProvideCandleSource(cfg *config.Config, lgr *logger.Logger) repository.CandleSource {
	return bybit.NewRESTClient(
		cfg.Bybit.RESTURL,
		cfg.Bybit.Category,
		cfg.Bybit.RateLimitRPS,
		cfg.Bybit.RequestTimeout,
		lgr,
	)
}

// ProvideMarketStream creates the Bybit WebSocket stream.
func ProvideMarketStream(cfg *config.Config, lgr *logger.Logger) repository.MarketStream {
	return bybit.NewStream(
		cfg.Bybit.WebSocketURL,
		cfg.Bybit.ReconnectDelay,
		cfg.Bybit.PingInterval,
		lgr,
	)
}

// ProvideBackfiller creates the backfill use case.
func ProvideBackfiller(
	source repository.CandleSource,
	analyzer *engine.Analyzer,
	m repository.Metrics,
	lgr *logger.Logger,
	cfg *config.Config,
) *usecase.Backfiller {
	return usecase.NewBackfiller(source, analyzer, m, lgr, cfg.Bybit.BackfillLimit, cfg.Bybit.BackfillBatch)
}

// ProvideReseedQueue creates the Redis-backed gap-repair queue, or nil when
// Redis is disabled. The same instance both publishes and consumes.
func ProvideReseedQueue(
	lgr *logger.Logger,
	rc *pkgcache.RedisCache,
	backfiller *usecase.Backfiller,
) *pkgqueue.RedisQueue {
	if rc == nil {
		return nil
	}
	qcfg := &pkgqueue.QueueConfig{
		Workers:    2,
		QueueSize:  1024,
		RetryLimit: 3,
		RetryDelay: 5 * time.Second,
	}
	return pkgqueue.NewRedisConsumer(lgr, qcfg, rc.Client(),
		[]pkgqueue.Job{usecase.NewReseedJob(backfiller)},
		pkgqueue.WithKeyPrefix("volwatch"),
	)
}

// ProvideTickProcessor creates the engine-facing tick processor.
func ProvideTickProcessor(
	analyzer *engine.Analyzer,
	pub repository.AlertPublisher,
	cache repository.SnapshotCache,
	m repository.Metrics,
) *usecase.TickProcessor {
	return usecase.NewTickProcessor(analyzer, pub, cache, m)
}

// ProvideScreener creates the screener with its pipeline.
func ProvideScreener(
	stream repository.MarketStream,
	proc *usecase.TickProcessor,
	m repository.Metrics,
	lgr *logger.Logger,
	rq *pkgqueue.RedisQueue,
	cfg *config.Config,
	tfs []repository.Timeframe,
) *usecase.Screener {
	pipe := mid.NewTickPipeline(proc, m,
		mid.WithMaxRPS(50),
		mid.WithBufferSize(2000),
	)
	var jobs pkgqueue.QueueService
	if rq != nil {
		jobs = rq
	}
	return usecase.NewScreener(stream, proc, pipe, m, lgr, jobs, cfg.Bybit.Symbols, tfs)
}

// ProvideAnalysisReader creates the API read use case.
func ProvideAnalysisReader(
	analyzer *engine.Analyzer,
	cache repository.SnapshotCache,
	archive repository.AlertArchive,
) *usecase.AnalysisReader {
	return usecase.NewAnalysisReader(analyzer, cache, archive)
}

// ProvideHTTPHandler creates the Echo API handler.
func ProvideHTTPHandler(
	lgr *logger.Logger,
	reader *usecase.AnalysisReader,
	watchlist repository.Watchlist,
	screener *usecase.Screener,
) *api.VolatilityHandler {
	return api.NewVolatilityHandler(lgr, reader, watchlist, screener)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	lgr *logger.Logger,
	m repository.Metrics,
	backfiller *usecase.Backfiller,
	screener *usecase.Screener,
	tfs []repository.Timeframe,
	reseedQueue *pkgqueue.RedisQueue,
	consumer *pkgkafka.Consumer,
	kh *usecase.KafkaAlertsHandler,
	chClient *pkgch.Client,
	rc *pkgcache.RedisCache,
	producer *pkgkafka.Producer,
	handler *api.VolatilityHandler,
) *server.App {
	if consumer != nil {
		consumer.WithConsumerHook(pkgkafka.HookFuncs{
			Err: func(_ context.Context, topic string, _ kafkago.Message, _ []byte, _ error) {
				m.RecordError("consume_" + topic)
			},
		})
	}
	return server.New(cfg, lgr, backfiller, screener, tfs, reseedQueue, consumer, kh, chClient, rc, producer, handler)
}
