package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/vladyslavplus/KosherClouds-sub002/platform/eventbus"
	"github.com/vladyslavplus/KosherClouds-sub002/platform/eventbus/transport"
	platformhealth "github.com/vladyslavplus/KosherClouds-sub002/platform/health/http"
	platformlogging "github.com/vladyslavplus/KosherClouds-sub002/platform/logging"
	"github.com/vladyslavplus/KosherClouds-sub002/platform/migrate"
	platformobservability "github.com/vladyslavplus/KosherClouds-sub002/platform/observability"
	platformshutdown "github.com/vladyslavplus/KosherClouds-sub002/platform/shutdown"
	httpapi "github.com/vladyslavplus/KosherClouds-sub002/services/user/internal/api/http"
	"github.com/vladyslavplus/KosherClouds-sub002/services/user/internal/config"
	"github.com/vladyslavplus/KosherClouds-sub002/services/user/internal/event"
	"github.com/vladyslavplus/KosherClouds-sub002/services/user/internal/repository"
	"github.com/vladyslavplus/KosherClouds-sub002/services/user/internal/repository/memory"
	"github.com/vladyslavplus/KosherClouds-sub002/services/user/internal/repository/postgres"
	redisrepo "github.com/vladyslavplus/KosherClouds-sub002/services/user/internal/repository/redis"
	"github.com/vladyslavplus/KosherClouds-sub002/services/user/internal/service"
	"github.com/vladyslavplus/KosherClouds-sub002/services/user/migrations"
)

// App содержит все зависимости для запуска и корректного shutdown User Service
type App struct {
	logger      *zap.Logger
	httpServer  *http.Server
	consumers   *eventbus.Runner
	shutdownMgr *platformshutdown.Manager
}

// Build создаёт и настраивает все зависимости User Service
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
	logger.Info("Building User service", zap.String("op", op), zap.String("http_addr", cfg.HTTPAddr))

	otelShutdown, err := platformobservability.Init(ctx, cfg.Observability(event.ServiceName))
	if err != nil {
		return nil, err
	}

	shutdownMgr := platformshutdown.New(cfg.ShutdownTimeout, logger)
	shutdownMgr.Add("otel", otelShutdown)

	checks := map[string]platformhealth.Check{}

	var (
		userRepo  repository.UserRepository
		tokenRepo repository.ResetTokenRepository
	)
	switch cfg.Storage {
	case config.StorageMemory:
		userRepo = memory.NewUserRepository()
		tokenRepo = memory.NewResetTokenRepository()
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
		userRepo = postgres.NewRepository(pool)

		logger.Info("Connecting to Redis", zap.String("addr", cfg.RedisAddr))
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			_ = redisClient.Close()
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		logger.Info("Redis connection established")
		shutdownMgr.Add("redis", platformshutdown.Close(redisClient))
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
		tokenRepo = redisrepo.NewResetTokenRepository(redisClient, logger)
	}

	bus, err := transport.Open(ctx, logger, event.ServiceName, cfg.EventBus)
	if err != nil {
		return nil, fmt.Errorf("open event bus: %w", err)
	}
	shutdownMgr.Add("event_bus", platformshutdown.Close(bus))

	userService := service.NewService(logger, userRepo, tokenRepo, bus, cfg.PasswordResetTTL)

	router := httpapi.NewRouter(httpapi.NewHandler(userService, logger), checks, logger)
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

	a.logger.Info("Starting User service", zap.String("addr", a.httpServer.Addr))
	a.logger.Info("Health check available", zap.String("url", "http://"+a.httpServer.Addr+"/health"))

	a.consumers.Start()

	go func() {
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("HTTP server error", zap.Error(err))
		}
	}()

	a.shutdownMgr.WaitContext(a.consumers.Failed())
	a.logger.Info("User service stopped")
	return nil
}
