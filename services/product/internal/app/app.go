package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/vladyslavplus/KosherClouds-sub002/platform/eventbus"
	"github.com/vladyslavplus/KosherClouds-sub002/platform/eventbus/transport"
	platformhealth "github.com/vladyslavplus/KosherClouds-sub002/platform/health/http"
	platformlogging "github.com/vladyslavplus/KosherClouds-sub002/platform/logging"
	"github.com/vladyslavplus/KosherClouds-sub002/platform/migrate"
	platformobservability "github.com/vladyslavplus/KosherClouds-sub002/platform/observability"
	platformshutdown "github.com/vladyslavplus/KosherClouds-sub002/platform/shutdown"
	httpapi "github.com/vladyslavplus/KosherClouds-sub002/services/product/internal/api/http"
	"github.com/vladyslavplus/KosherClouds-sub002/services/product/internal/config"
	"github.com/vladyslavplus/KosherClouds-sub002/services/product/internal/event"
	"github.com/vladyslavplus/KosherClouds-sub002/services/product/internal/repository"
	"github.com/vladyslavplus/KosherClouds-sub002/services/product/internal/repository/memory"
	"github.com/vladyslavplus/KosherClouds-sub002/services/product/internal/repository/postgres"
	"github.com/vladyslavplus/KosherClouds-sub002/services/product/internal/service"
	"github.com/vladyslavplus/KosherClouds-sub002/services/product/migrations"
)

// App содержит все зависимости для запуска и корректного shutdown Product Service
type App struct {
	logger      *zap.Logger
	httpServer  *http.Server
	consumers   *eventbus.Runner
	scheduler   gocron.Scheduler
	shutdownMgr *platformshutdown.Manager
}

// Build создаёт и настраивает все зависимости Product Service
func Build(cfg config.Config) (*App, error) {
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
	logger.Info("Building Product service", zap.String("http_addr", cfg.HTTPAddr), zap.String("storage", cfg.Storage))

	otelShutdown, err := platformobservability.Init(ctx, cfg.Observability(event.ServiceName))
	if err != nil {
		return nil, err
	}

	shutdownMgr := platformshutdown.New(cfg.ShutdownTimeout, logger)
	// регистрируется первым, выполняется последним
	shutdownMgr.Add("otel", otelShutdown)

	checks := map[string]platformhealth.Check{}

	var repo repository.ProductRepository
	switch cfg.Storage {
	case config.StorageMemory:
		repo = memory.NewRepository()
	default:
		logger.Info("Applying migrations")
		if err := migrate.Up(ctx, cfg.PostgresDSN, migrations.FS); err != nil {
			return nil, err
		}
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
		repo = postgres.NewRepository(pool)
	}

	bus, err := transport.Open(ctx, logger, event.ServiceName, cfg.EventBus)
	if err != nil {
		return nil, fmt.Errorf("open event bus: %w", err)
	}
	shutdownMgr.Add("event_bus", platformshutdown.Close(bus))

	productService := service.NewProductService(logger, repo, bus)
	if err := event.Register(bus, productService); err != nil {
		return nil, err
	}

	scheduler, err := gocron.NewScheduler(gocron.WithLogger(gocronLogger{logger: logger}))
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	_, err = scheduler.NewJob(
		gocron.DurationJob(cfg.RatingReconcileInterval),
		gocron.NewTask(func(ctx context.Context) {
			fixed, err := productService.ReconcileRatings(ctx)
			if err != nil {
				logger.Error("rating reconciliation failed", zap.Error(err))
				return
			}
			logger.Info("rating reconciliation completed", zap.Int("fixed", fixed))
		}),
		gocron.WithName("rating-reconcile"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return nil, fmt.Errorf("schedule rating reconciliation: %w", err)
	}

	handler := httpapi.NewHandler(productService, logger)
	router := httpapi.NewRouter(handler, checks, logger)
	httpServer := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	consumers := eventbus.NewRunner(bus, logger)

	shutdownMgr.Add("scheduler", func(ctx context.Context) error { return scheduler.Shutdown() })
	shutdownMgr.Add("event_consumers", consumers.Stop)
	shutdownMgr.Add("http_server", platformshutdown.ShutdownHTTPServer(httpServer))

	return &App{
		logger:      logger,
		httpServer:  httpServer,
		consumers:   consumers,
		scheduler:   scheduler,
		shutdownMgr: shutdownMgr,
	}, nil
}

// Run запускает сервис и блокируется до получения сигнала shutdown
func (a *App) Run() error {
	defer platformlogging.Sync(a.logger)

	a.logger.Info("Starting Product service", zap.String("addr", a.httpServer.Addr))

	a.consumers.Start()
	a.scheduler.Start()

	go func() {
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("HTTP server error", zap.Error(err))
		}
	}()

	// аварийная остановка шины тоже завершает сервис
	a.shutdownMgr.WaitContext(a.consumers.Failed())
	a.logger.Info("Product service stopped")
	return nil
}
