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
	"github.com/vladyslavplus/KosherClouds-sub002/platform/eventbus/transport"
	platformhealth "github.com/vladyslavplus/KosherClouds-sub002/platform/health/http"
	platformlogging "github.com/vladyslavplus/KosherClouds-sub002/platform/logging"
	"github.com/vladyslavplus/KosherClouds-sub002/platform/migrate"
	platformobservability "github.com/vladyslavplus/KosherClouds-sub002/platform/observability"
	platformshutdown "github.com/vladyslavplus/KosherClouds-sub002/platform/shutdown"
	httpapi "github.com/vladyslavplus/KosherClouds-sub002/services/booking/internal/api/http"
	"github.com/vladyslavplus/KosherClouds-sub002/services/booking/internal/config"
	"github.com/vladyslavplus/KosherClouds-sub002/services/booking/internal/event"
	"github.com/vladyslavplus/KosherClouds-sub002/services/booking/internal/repository"
	"github.com/vladyslavplus/KosherClouds-sub002/services/booking/internal/repository/memory"
	"github.com/vladyslavplus/KosherClouds-sub002/services/booking/internal/repository/postgres"
	"github.com/vladyslavplus/KosherClouds-sub002/services/booking/internal/service"
	"github.com/vladyslavplus/KosherClouds-sub002/services/booking/migrations"
)

// App содержит все зависимости для запуска и корректного shutdown Booking Service
type App struct {
	logger      *zap.Logger
	httpServer  *http.Server
	consumers   *eventbus.Runner
	shutdownMgr *platformshutdown.Manager
}

// Build создаёт и настраивает все зависимости Booking Service
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
	logger.Info("Building Booking service", zap.String("op", op), zap.String("http_addr", cfg.HTTPAddr))

	otelShutdown, err := platformobservability.Init(ctx, cfg.Observability(event.ServiceName))
	if err != nil {
		return nil, err
	}

	shutdownMgr := platformshutdown.New(cfg.ShutdownTimeout, logger)
	shutdownMgr.Add("otel", otelShutdown)

	checks := map[string]platformhealth.Check{}

	var bookingRepo repository.BookingRepository
	switch cfg.Storage {
	case config.StorageMemory:
		bookingRepo = memory.NewMemoryRepository()
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
		bookingRepo = postgres.NewRepository(pool)
	}

	bus, err := transport.Open(ctx, logger, event.ServiceName, cfg.EventBus)
	if err != nil {
		return nil, fmt.Errorf("open event bus: %w", err)
	}
	shutdownMgr.Add("event_bus", platformshutdown.Close(bus))

	bookingService := service.NewBookingService(logger, bookingRepo, bus)

	router := httpapi.NewRouter(httpapi.NewHandler(bookingService, logger), checks, logger)
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
		shutdownMgr: shutdownMgr,
	}
	shutdownMgr.Add("event_consumers", a.consumers.Stop)
	shutdownMgr.Add("http_server", platformshutdown.ShutdownHTTPServer(httpServer))

	return a, nil
}

// Run запускает сервис и блокируется до получения сигнала shutdown
func (a *App) Run() error {
	defer platformlogging.Sync(a.logger)

	a.logger.Info("Starting Booking service", zap.String("addr", a.httpServer.Addr))
	a.logger.Info("Health check available", zap.String("url", "http://"+a.httpServer.Addr+"/health"))

	a.consumers.Start()

	go func() {
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("HTTP server error", zap.Error(err))
		}
	}()

	a.shutdownMgr.WaitContext(a.consumers.Failed())
	a.logger.Info("Booking service stopped")
	return nil
}
