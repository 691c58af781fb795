//go:build wireinject
// +build wireinject

package di

import (
	"VolWatch/pkg/config"
	"VolWatch/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,

		// Engine
		ProvideEngineConfig,
		ProvideAnalyzer,
		ProvideTimeframes,

		// Infrastructure clients
		ProvideRedisCache,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,
		ProvideClickHouseClient,

		// Repositories
		ProvideSnapshotCache,
		ProvideWatchlist,
		ProvideAlertPublisher,
		ProvideAlertArchive,

		// Exchange
		ProvideCandleSource,
		ProvideMarketStream,

		// Use cases
		ProvideBackfiller,
		ProvideReseedQueue,
		ProvideTickProcessor,
		ProvideScreener,
		ProvideAnalysisReader,
		ProvideKafkaAlertsHandler,

		// HTTP
		ProvideHTTPHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
