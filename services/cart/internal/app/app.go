package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/vladyslavplus/KosherClouds-sub002/platform/eventbus"
	"github.com/vladyslavplus/KosherClouds-sub002/platform/eventbus/transport"
	platformhealth "github.com/vladyslavplus/KosherClouds-sub002/platform/health/http"
	platformlogging "github.com/vladyslavplus/KosherClouds-sub002/platform/logging"
	platformobservability "github.com/vladyslavplus/KosherClouds-sub002/platform/observability"
	platformshutdown "github.com/vladyslavplus/KosherClouds-sub002/platform/shutdown"
	httpapi "github.com/vladyslavplus/KosherClouds-sub002/services/cart/internal/api/http"
	httpclient "github.com/vladyslavplus/KosherClouds-sub002/services/cart/internal/client/http"
	"github.com/vladyslavplus/KosherClouds-sub002/services/cart/internal/config"
	"github.com/vladyslavplus/KosherClouds-sub002/services/cart/internal/event"
	"github.com/vladyslavplus/KosherClouds-sub002/services/cart/internal/repository"
	"github.com/vladyslavplus/KosherClouds-sub002/services/cart/internal/repository/memory"
	redisrepo "github.com/vladyslavplus/KosherClouds-sub002/services/cart/internal/repository/redis"
	"github.com/vladyslavplus/KosherClouds-sub002/services/cart/internal/service"
)

// App содержит все зависимости Cart Service
type App struct {
	logger      *zap.Logger
	httpServer  *http.Server
	consumers   *eventbus.Runner
	shutdownMgr *platformshutdown.Manager
}

// Build создаёт и настраивает все зависимости Cart Service
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
	logger.Info("Building Cart service", zap.String("http_addr", cfg.HTTPAddr), zap.String("storage", cfg.Storage))

	otelShutdown, err := platformobservability.Init(ctx, cfg.Observability(event.ServiceName))
	if err != nil {
		return nil, err
	}

	shutdownMgr := platformshutdown.New(cfg.ShutdownTimeout, logger)
	shutdownMgr.Add("otel", otelShutdown)

	checks := map[string]platformhealth.Check{}

	var repo repository.CartRepository
	switch cfg.Storage {
	case config.StorageMemory:
		repo = memory.NewRepository()
	default:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		logger.Info("Redis connection established", zap.String("addr", cfg.RedisAddr))
		shutdownMgr.Add("redis_client", platformshutdown.Close(client))
		checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
		repo = redisrepo.NewCartRepository(client, logger)
	}

	bus, err := transport.Open(ctx, logger, event.ServiceName, cfg.EventBus)
	if err != nil {
		return nil, fmt.Errorf("open event bus: %w", err)
	}
	shutdownMgr.Add("event_bus", platformshutdown.Close(bus))

	catalog := httpclient.NewProductClient(cfg.ProductServiceURL, cfg.ProductLookupTimeout)
	cartService := service.NewCartService(logger, repo, catalog, bus)
	if err := event.Register(bus, cartService); err != nil {
		return nil, err
	}

	router := httpapi.NewRouter(httpapi.NewHandler(cartService, logger), checks, logger)
	httpServer := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	consumers := eventbus.NewRunner(bus, logger)
	shutdownMgr.Add("event_consumers", consumers.Stop)
	shutdownMgr.Add("http_server", platformshutdown.ShutdownHTTPServer(httpServer))

	return &App{
		logger:      logger,
		httpServer:  httpServer,
		consumers:   consumers,
		shutdownMgr: shutdownMgr,
	}, nil
}

// Run запускает сервис и блокируется до получения сигнала shutdown
func (a *App) Run() error {
	defer platformlogging.Sync(a.logger)

	a.logger.Info("Starting Cart service", zap.String("addr", a.httpServer.Addr))
	a.consumers.Start()

	go func() {
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("HTTP server error", zap.Error(err))
		}
	}()

	a.shutdownMgr.WaitContext(a.consumers.Failed())
	a.logger.Info("Cart service stopped")
	return nil
}
