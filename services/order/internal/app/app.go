package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/vladyslavplus/KosherClouds-sub002/platform/eventbus"
	"github.com/vladyslavplus/KosherClouds-sub002/platform/eventbus/outbox"
	"github.com/vladyslavplus/KosherClouds-sub002/platform/eventbus/transport"
	platformhealth "github.com/vladyslavplus/KosherClouds-sub002/platform/health/http"
	platformlogging "github.com/vladyslavplus/KosherClouds-sub002/platform/logging"
	"github.com/vladyslavplus/KosherClouds-sub002/platform/migrate"
	platformobservability "github.com/vladyslavplus/KosherClouds-sub002/platform/observability"
	platformshutdown "github.com/vladyslavplus/KosherClouds-sub002/platform/shutdown"
	httpapi "github.com/vladyslavplus/KosherClouds-sub002/services/order/internal/api/http"
	"github.com/vladyslavplus/KosherClouds-sub002/services/order/internal/config"
	"github.com/vladyslavplus/KosherClouds-sub002/services/order/internal/event"
	"github.com/vladyslavplus/KosherClouds-sub002/services/order/internal/repository"
	"github.com/vladyslavplus/KosherClouds-sub002/services/order/internal/repository/memory"
	"github.com/vladyslavplus/KosherClouds-sub002/services/order/internal/repository/postgres"
	"github.com/vladyslavplus/KosherClouds-sub002/services/order/internal/service"
	"github.com/vladyslavplus/KosherClouds-sub002/services/order/migrations"
)

// App содержит все зависимости для запуска и корректного shutdown Order Service
type App struct {
	logger      *zap.Logger
	httpServer  *http.Server
	consumers   *eventbus.Runner
	dispatcher  *outbox.Dispatcher
	stopOutbox  context.CancelFunc
	outboxDone  chan struct{}
	shutdownMgr *platformshutdown.Manager
}

// Build создаёт и настраивает все зависимости Order Service
func Build(cfg config.Config) (*App, error) {
	const op = "app.Build"
	ctx := context.Background()

	logger, err := platformlogging.New(platformlogging.Config{
		ServiceName: event.ServiceName,
		Env:         string(cfg.AppEnv),
		Level:       os.Getenv("LOG_LEVEL"),
		Format:      os.Getenv("LOG_FORMAT"),
	})
	if err != nil {
		return nil, err
	}
	logger.Info("Building Order service", zap.String("op", op), zap.String("http_addr", cfg.HTTPAddr))

	otelShutdown, err := platformobservability.Init(ctx, cfg.Observability(event.ServiceName))
	if err != nil {
		return nil, err
	}

	// Регистрируем shutdown функции в обратном порядке выполнения
	shutdownMgr := platformshutdown.New(cfg.ShutdownTimeout, logger)
	shutdownMgr.Add("otel", otelShutdown)

	checks := map[string]platformhealth.Check{}

	var orderRepo repository.OrderRepository
	switch cfg.Storage {
	case config.StorageMemory:
		orderRepo = memory.NewRepository()
	default:
		logger.Info("Applying migrations")
		if err := migrate.Up(ctx, cfg.PostgresDSN, migrations.FS); err != nil {
			return nil, err
		}
		logger.Info("Connecting to PostgreSQL")
		pool, err := pgxpool.New(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("create pgx pool: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("ping postgres: %w", err)
		}
		logger.Info("PostgreSQL connection established")
		shutdownMgr.Add("postgres_pool", platformshutdown.ClosePool(pool))
		checks["postgres"] = pool.Ping
		orderRepo = postgres.NewRepository(pool)
	}

	bus, err := transport.Open(ctx, logger, event.ServiceName, cfg.EventBus)
	if err != nil {
		return nil, fmt.Errorf("open event bus: %w", err)
	}
	shutdownMgr.Add("event_bus", platformshutdown.Close(bus))

	dispatcher := outbox.NewDispatcher(logger, orderRepo, bus, outbox.Config{
		BatchSize: cfg.OutboxBatchSize,
		Interval:  cfg.OutboxPollInterval,
	})
	orderService := service.NewOrderService(logger, orderRepo, dispatcher)
	if err := event.Register(bus, orderService); err != nil {
		return nil, err
	}

	router := httpapi.NewRouter(httpapi.NewHandler(orderService, logger), checks, logger)
	httpServer := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	a := &App{
		logger:      logger,
		httpServer:  httpServer,
		consumers:   eventbus.NewRunner(bus, logger),
		dispatcher:  dispatcher,
		outboxDone:  make(chan struct{}),
		shutdownMgr: shutdownMgr,
	}

	// dispatcher останавливается после consumers: их последние записи outbox ещё успеют уйти
	shutdownMgr.Add("outbox_dispatcher", a.stopDispatcher)
	shutdownMgr.Add("event_consumers", a.consumers.Stop)
	shutdownMgr.Add("http_server", platformshutdown.ShutdownHTTPServer(httpServer))

	return a, nil
}

func (a *App) stopDispatcher(ctx context.Context) error {
	if a.stopOutbox == nil {
		return nil
	}
	// финальный проход по outbox перед остановкой
	if _, err := a.dispatcher.DispatchOnce(ctx); err != nil {
		a.logger.Warn("final outbox dispatch failed", zap.Error(err))
	}
	a.stopOutbox()
	select {
	case <-a.outboxDone:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run запускает сервис и блокируется до получения сигнала shutdown
func (a *App) Run() error {
	defer platformlogging.Sync(a.logger)

	a.logger.Info("Starting Order service", zap.String("addr", a.httpServer.Addr))
	a.logger.Info("Health check available", zap.String("url", "http://"+a.httpServer.Addr+"/health"))

	var outboxCtx context.Context
	outboxCtx, a.stopOutbox = context.WithCancel(context.Background())
	go func() {
		defer close(a.outboxDone)
		_ = a.dispatcher.Run(outboxCtx)
	}()

	a.consumers.Start()

	go func() {
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("HTTP server error", zap.Error(err))
		}
	}()

	a.shutdownMgr.WaitContext(a.consumers.Failed())
	a.logger.Info("Order service stopped")
	return nil
}
