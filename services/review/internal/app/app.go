package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"

	"github.com/vladyslavplus/KosherClouds-sub002/platform/eventbus"
	"github.com/vladyslavplus/KosherClouds-sub002/platform/eventbus/outbox"
	"github.com/vladyslavplus/KosherClouds-sub002/platform/eventbus/transport"
	platformhealth "github.com/vladyslavplus/KosherClouds-sub002/platform/health/http"
	platformlogging "github.com/vladyslavplus/KosherClouds-sub002/platform/logging"
	platformobservability "github.com/vladyslavplus/KosherClouds-sub002/platform/observability"
	platformshutdown "github.com/vladyslavplus/KosherClouds-sub002/platform/shutdown"
	httpapi "github.com/vladyslavplus/KosherClouds-sub002/services/review/internal/api/http"
	"github.com/vladyslavplus/KosherClouds-sub002/services/review/internal/config"
	"github.com/vladyslavplus/KosherClouds-sub002/services/review/internal/event"
	"github.com/vladyslavplus/KosherClouds-sub002/services/review/internal/repository"
	"github.com/vladyslavplus/KosherClouds-sub002/services/review/internal/repository/memory"
	mongorepo "github.com/vladyslavplus/KosherClouds-sub002/services/review/internal/repository/mongo"
	"github.com/vladyslavplus/KosherClouds-sub002/services/review/internal/service"
)

// App содержит все зависимости Review Service
type App struct {
	logger      *zap.Logger
	httpServer  *http.Server
	consumers   *eventbus.Runner
	dispatcher  *outbox.Dispatcher
	stopOutbox  context.CancelFunc
	outboxDone  chan struct{}
	shutdownMgr *platformshutdown.Manager
}

// Build создаёт и настраивает все зависимости Review Service
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
	logger.Info("Building Review service", zap.String("http_addr", cfg.HTTPAddr), zap.String("storage", cfg.Storage))

	otelShutdown, err := platformobservability.Init(ctx, cfg.Observability(event.ServiceName))
	if err != nil {
		return nil, err
	}

	shutdownMgr := platformshutdown.New(cfg.ShutdownTimeout, logger)
	shutdownMgr.Add("otel", otelShutdown)

	checks := map[string]platformhealth.Check{}

	var repo repository.ReviewRepository
	switch cfg.Storage {
	case config.StorageMemory:
		repo = memory.NewMemoryRepository()
	default:
		logger.Info("Connecting to MongoDB")
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			return nil, fmt.Errorf("connect mongo: %w", err)
		}
		if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
			_ = client.Disconnect(ctx)
			return nil, fmt.Errorf("ping mongo: %w", err)
		}
		logger.Info("MongoDB connection established")
		shutdownMgr.Add("mongodb", platformshutdown.DisconnectMongo(client))
		checks["mongodb"] = func(ctx context.Context) error { return client.Ping(ctx, readpref.Primary()) }

		mongoRepo, err := mongorepo.NewRepository(connectCtx, client, cfg.MongoDBName)
		if err != nil {
			return nil, err
		}
		repo = mongoRepo
	}

	bus, err := transport.Open(ctx, logger, event.ServiceName, cfg.EventBus)
	if err != nil {
		return nil, fmt.Errorf("open event bus: %w", err)
	}
	shutdownMgr.Add("event_bus", platformshutdown.Close(bus))

	dispatcher := outbox.NewDispatcher(logger, repo, bus, outbox.Config{
		BatchSize: cfg.OutboxBatchSize,
		Interval:  cfg.OutboxPollInterval,
	})
	reviewService := service.NewReviewService(logger, repo, dispatcher)
	if err := event.Register(bus, reviewService); err != nil {
		return nil, err
	}

	router := httpapi.NewRouter(httpapi.NewHandler(reviewService, logger), checks, logger)
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

	// dispatcher останавливается после consumers и HTTP: их последние записи outbox ещё успеют уйти
	shutdownMgr.Add("outbox_dispatcher", a.stopDispatcher)
	shutdownMgr.Add("event_consumers", a.consumers.Stop)
	shutdownMgr.Add("http_server", platformshutdown.ShutdownHTTPServer(httpServer))

	return a, nil
}

func (a *App) stopDispatcher(ctx context.Context) error {
	if a.stopOutbox == nil {
		return nil
	}
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

	a.logger.Info("Starting Review service", zap.String("addr", a.httpServer.Addr))

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
	a.logger.Info("Review service stopped")
	return nil
}
