package server

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"PriceCast/internal/domain/repository"
	"PriceCast/internal/usecase"
	"PriceCast/pkg/cache"
	pkgch "PriceCast/pkg/clickhouse"
	"PriceCast/pkg/config"
	xhttp "PriceCast/pkg/http"
	applogger "PriceCast/pkg/logger"
	"PriceCast/pkg/queue"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	logger     *applogger.Logger
	httpServer *xhttp.Server
	queue      queue.Queue
	scheduler  *usecase.RetrainScheduler
	events     repository.EventPublisher
	chClient   *pkgch.Client
	registry   repository.ModelRegistry
	cache      cache.Service
	redis      *cache.RedisCache
}

// New creates a new App. scheduler, chClient and redis may be nil when disabled.
func New(
	cfg *config.Config,
	logger *applogger.Logger,
	httpServer *xhttp.Server,
	q queue.Queue,
	scheduler *usecase.RetrainScheduler,
	events repository.EventPublisher,
	chClient *pkgch.Client,
	registry repository.ModelRegistry,
	c cache.Service,
	redis *cache.RedisCache,
) *App {
	return &App{
		cfg:        cfg,
		logger:     logger,
		httpServer: httpServer,
		queue:      q,
		scheduler:  scheduler,
		events:     events,
		chClient:   chClient,
		registry:   registry,
		cache:      c,
		redis:      redis,
	}
}

// Run starts the workers and the HTTP server and blocks until SIGINT or SIGTERM.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Start(); err != nil {
		_ = a.Shutdown(context.Background())
		return err
	}

	<-ctx.Done()
	a.logger.Info("shutdown signal received")
	return a.Shutdown(context.Background())
}

// Start launches the queue workers, the retrain schedule and the HTTP server.
func (a *App) Start() error {
	if err := a.queue.Start(); err != nil && !errors.Is(err, queue.ErrAlreadyStart) {
		a.logger.Error("queue start error", applogger.Error(err))
		return err
	}
	if a.scheduler != nil {
		a.scheduler.Start()
	}
	if err := a.httpServer.Start(); err != nil {
		a.logger.Error("http server start error", applogger.Error(err))
		return err
	}
	a.logger.Info("pricecast started",
		applogger.String("env", a.cfg.Environment),
		applogger.Int("port", a.cfg.Server.Port),
		applogger.String("engine", a.cfg.Engine.URL),
	)
	return nil
}

// Shutdown stops intake first and releases storage last: HTTP, scheduler,
// queue, event producer, ClickHouse, registry, cache.
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("shutting down...")
	timeout := a.cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := a.httpServer.Stop(ctx); err != nil {
		a.logger.Error("http shutdown error", applogger.Error(err))
	}
	if a.scheduler != nil {
		if err := a.scheduler.Stop(ctx); err != nil {
			a.logger.Warn("scheduler stop error", applogger.Error(err))
		}
	}
	if err := a.queue.Stop(ctx); err != nil {
		a.logger.Warn("queue stop error", applogger.Error(err))
	}
	if err := a.events.Close(); err != nil {
		a.logger.Warn("event publisher close error", applogger.Error(err))
	}
	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.logger.Warn("clickhouse close error", applogger.Error(err))
		}
	}
	if err := a.registry.Close(); err != nil {
		a.logger.Warn("registry close error", applogger.Error(err))
	}
	if err := a.cache.Close(); err != nil {
		a.logger.Warn("cache close error", applogger.Error(err))
	}
	// A layered or redis cache already closed the client.
	if a.redis != nil && a.cfg.Data.Cache == "memory" {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("redis close error", applogger.Error(err))
		}
	}

	a.logger.Info("shutdown complete")
	return nil
}
