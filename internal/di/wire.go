//go:build wireinject
// +build wireinject

package di

import (
	"PriceCast/internal/domain/service"
	"PriceCast/internal/services/provider"
	"PriceCast/pkg/config"
	"PriceCast/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideRedisCache,
		ProvideCache,
		ProvideClickHouseClient,
		ProvideKafkaProducer,

		// Repositories
		ProvideSeriesArchive,
		ProvideModelRegistry,
		ProvideEventPublisher,
		ProvideJobStore,
		ProvideQueue,

		// Data sources and engine clients
		ProvideRouter,
		wire.Bind(new(service.MarketData), new(*provider.Router)),
		ProvideTrainer,
		ProvideForecaster,

		// Use cases
		ProvideTrainingUseCase,
		ProvideForecastUseCase,
		ProvideMarketDataUseCase,
		ProvideModelRunsUseCase,
		ProvideScheduler,

		// HTTP
		ProvideRateLimiter,
		ProvideHTTPServer,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
