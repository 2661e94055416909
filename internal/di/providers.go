package di

import (
	"context"
	"fmt"
	"time"

	"PriceCast/internal/domain/repository"
	"PriceCast/internal/domain/service"
	"PriceCast/internal/handler/api"
	internalrepo "PriceCast/internal/repository"
	"PriceCast/internal/service/ratelimit"
	"PriceCast/internal/services/engine"
	"PriceCast/internal/services/provider"
	"PriceCast/internal/usecase"
	"PriceCast/pkg/cache"
	pkgch "PriceCast/pkg/clickhouse"
	"PriceCast/pkg/config"
	xhttp "PriceCast/pkg/http"
	pkgkafka "PriceCast/pkg/kafka"
	applogger "PriceCast/pkg/logger"
	"PriceCast/pkg/metrics"
	"PriceCast/pkg/queue"
	"PriceCast/pkg/server"
)

// ProvideLogger builds the application logger from the logging section.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(applogger.String("service", "pricecast")), nil
}

// ProvideMetrics creates a Prometheus metrics recorder on the default registry.
func ProvideMetrics() repository.Metrics {
	return metrics.New(nil)
}

// ProvideRedisCache connects to Redis when it is enabled; nil otherwise.
func ProvideRedisCache(cfg *config.Config) (*cache.RedisCache, error) {
	if !cfg.Redis.Enabled {
		return nil, nil
	}
	rc, err := cache.NewRedisCache(
		cache.WithRedisAddr(cfg.Redis.Addr),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return rc, nil
}

// ProvideCache picks the history cache named by data.cache.
func ProvideCache(cfg *config.Config, rc *cache.RedisCache) cache.Service {
	switch cfg.Data.Cache {
	case "redis":
		return rc
	case "layered":
		return cache.NewLayeredCache(rc, cache.WithLayeredMemoryTTL(time.Minute))
	default:
		return cache.NewMemoryCache(cache.WithMemoryMaxSize(500))
	}
}

// ProvideClickHouseClient connects to ClickHouse when it is enabled; nil otherwise.
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
	return client, nil
}

// ProvideSeriesArchive prepares the ClickHouse price archive. It returns a
// nil interface when ClickHouse is disabled so the router skips archiving.
func ProvideSeriesArchive(ch *pkgch.Client, l *applogger.Logger) (repository.SeriesArchive, error) {
	if ch == nil {
		return nil, nil
	}
	archive := internalrepo.NewCHPriceArchive(ch)
	archive.SetLogger(l)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := archive.Init(ctx); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return archive, nil
}

// ProvideRouter assembles the local and Yahoo providers behind the source router.
func ProvideRouter(
	cfg *config.Config,
	c cache.Service,
	archive repository.SeriesArchive,
	m repository.Metrics,
	l *applogger.Logger,
) *provider.Router {
	local := provider.NewLocalProvider(cfg.Data.LocalDir, l)
	yahoo := provider.NewYahooProvider(provider.YahooConfig{
		BaseURL:   cfg.Data.Yahoo.BaseURL,
		Suffix:    cfg.Data.Yahoo.Suffix,
		Timeout:   cfg.Data.Yahoo.Timeout,
		UserAgent: cfg.Data.Yahoo.UserAgent,
		Watchlist: cfg.Data.Watchlist,
	}, l)

	opts := []provider.RouterOption{
		provider.WithCache(c, cfg.Data.CacheTTL),
		provider.WithMetrics(m),
		provider.WithLogger(l),
	}
	if archive != nil {
		opts = append(opts, provider.WithArchive(archive))
	}
	return provider.NewRouter(local, yahoo, opts...)
}

// ProvideTrainer creates the engine training client.
func ProvideTrainer(cfg *config.Config) service.Trainer {
	return engine.NewHTTPTrainer(cfg)
}

// ProvideForecaster creates the engine prediction client.
func ProvideForecaster(cfg *config.Config) service.Forecaster {
	return engine.NewHTTPForecaster(cfg)
}

// ProvideModelRegistry opens the SQLite model registry.
func ProvideModelRegistry(cfg *config.Config, l *applogger.Logger) (repository.ModelRegistry, error) {
	reg, err := internalrepo.NewSQLiteModelRegistry(cfg.Registry.Path)
	if err != nil {
		return nil, fmt.Errorf("model registry: %w", err)
	}
	reg.SetLogger(l)
	return reg, nil
}

// ProvideKafkaProducer creates a Kafka producer when Kafka is enabled; nil otherwise.
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

// ProvideEventPublisher publishes model events to Kafka, or drops them when
// Kafka is disabled.
func ProvideEventPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.EventPublisher {
	if producer == nil {
		return internalrepo.NoopPublisher{}
	}
	return internalrepo.NewKafkaPublisher(producer, cfg.Kafka.Topic)
}

// ProvideJobStore keeps job state in Redis when available so every replica
// sees it, and in the history cache otherwise.
func ProvideJobStore(cfg *config.Config, rc *cache.RedisCache, c cache.Service) repository.JobStore {
	if rc != nil {
		return internalrepo.NewCacheJobStore(rc, cfg.Queue.JobTTL)
	}
	return internalrepo.NewCacheJobStore(c, cfg.Queue.JobTTL)
}

// ProvideQueue returns the Redis job queue when enabled, the in-process
// worker pool otherwise.
func ProvideQueue(cfg *config.Config, rc *cache.RedisCache, l *applogger.Logger) queue.Queue {
	qc := &queue.QueueConfig{
		Workers:    cfg.Queue.Workers,
		RetryLimit: cfg.Queue.MaxRetries,
	}
	if cfg.Queue.Enabled && rc != nil {
		return queue.NewRedisQueue(l, qc, rc.Client(), queue.WithKeyPrefix("pricecast:queue:"+cfg.Queue.Name))
	}
	return queue.NewMemoryQueue(l, qc)
}

// ProvideTrainingUseCase builds the training use case and registers it as
// the handler of queued training jobs.
func ProvideTrainingUseCase(
	router service.MarketData,
	trainer service.Trainer,
	registry repository.ModelRegistry,
	events repository.EventPublisher,
	jobs repository.JobStore,
	q queue.Queue,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.TrainingUseCase {
	uc := usecase.NewTrainingUseCase(router, trainer, registry, events, jobs, q, m, l)
	q.RegisterJob(uc.Job())
	return uc
}

func ProvideForecastUseCase(
	cfg *config.Config,
	router service.MarketData,
	forecaster service.Forecaster,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.ForecastUseCase {
	return usecase.NewForecastUseCase(router, forecaster, cfg.Forecast.LookbackPeriod, m, l)
}

func ProvideMarketDataUseCase(router service.MarketData) *usecase.MarketDataUseCase {
	return usecase.NewMarketDataUseCase(router)
}

func ProvideModelRunsUseCase(registry repository.ModelRegistry) *usecase.ModelRunsUseCase {
	return usecase.NewModelRunsUseCase(registry)
}

// ProvideScheduler builds the retrain schedule when enabled; nil otherwise.
func ProvideScheduler(cfg *config.Config, training *usecase.TrainingUseCase, l *applogger.Logger) (*usecase.RetrainScheduler, error) {
	if !cfg.Scheduler.Enabled {
		return nil, nil
	}
	s, err := usecase.NewRetrainScheduler(cfg.Scheduler.Cron, cfg.Data.Watchlist, training, cfg.Engine.Timeout, l)
	if err != nil {
		return nil, fmt.Errorf("scheduler: %w", err)
	}
	return s, nil
}

// ProvideRateLimiter returns the training rate limiter, nil when disabled.
func ProvideRateLimiter(cfg *config.Config) *ratelimit.Limiter {
	if !cfg.RateLimit.Enabled {
		return nil
	}
	return ratelimit.New(cfg.RateLimit.Capacity, cfg.RateLimit.RefillRate, cfg.RateLimit.Interval)
}

// ProvideHTTPServer registers every API handler on the Echo server.
func ProvideHTTPServer(
	cfg *config.Config,
	l *applogger.Logger,
	rl *ratelimit.Limiter,
	training *usecase.TrainingUseCase,
	forecast *usecase.ForecastUseCase,
	market *usecase.MarketDataUseCase,
	runs *usecase.ModelRunsUseCase,
) *xhttp.Server {
	handlers := []xhttp.Handler{
		api.NewTrainingHandler(l, training, rl),
		api.NewForecastHandler(l, forecast),
		api.NewMarketHandler(l, market, runs),
	}
	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	return xhttp.NewServer(handlers,
		xhttp.WithHost(cfg.Server.Host),
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithCORS(true, cfg.Server.CORSOrigins...),
		xhttp.WithMetrics(metricsPath, cfg.Metrics.SlowThreshold),
		xhttp.WithLogger(l),
	)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	httpServer *xhttp.Server,
	q queue.Queue,
	scheduler *usecase.RetrainScheduler,
	events repository.EventPublisher,
	ch *pkgch.Client,
	registry repository.ModelRegistry,
	c cache.Service,
	rc *cache.RedisCache,
) *server.App {
	return server.New(cfg, l, httpServer, q, scheduler, events, ch, registry, c, rc)
}
