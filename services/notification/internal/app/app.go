package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/vladyslavplus/KosherClouds-sub002/platform/eventbus"
	"github.com/vladyslavplus/KosherClouds-sub002/platform/eventbus/transport"
	platformgrpchealth "github.com/vladyslavplus/KosherClouds-sub002/platform/health/grpc"
	platformhealth "github.com/vladyslavplus/KosherClouds-sub002/platform/health/http"
	platformlogging "github.com/vladyslavplus/KosherClouds-sub002/platform/logging"
	"github.com/vladyslavplus/KosherClouds-sub002/platform/migrate"
	platformobservability "github.com/vladyslavplus/KosherClouds-sub002/platform/observability"
	platformshutdown "github.com/vladyslavplus/KosherClouds-sub002/platform/shutdown"
	httpapi "github.com/vladyslavplus/KosherClouds-sub002/services/notification/internal/api/http"
	httpclient "github.com/vladyslavplus/KosherClouds-sub002/services/notification/internal/client/http"
	"github.com/vladyslavplus/KosherClouds-sub002/services/notification/internal/config"
	"github.com/vladyslavplus/KosherClouds-sub002/services/notification/internal/event"
	"github.com/vladyslavplus/KosherClouds-sub002/services/notification/internal/repository"
	"github.com/vladyslavplus/KosherClouds-sub002/services/notification/internal/repository/memory"
	"github.com/vladyslavplus/KosherClouds-sub002/services/notification/internal/repository/postgres"
	"github.com/vladyslavplus/KosherClouds-sub002/services/notification/internal/sender"
	"github.com/vladyslavplus/KosherClouds-sub002/services/notification/internal/service"
	"github.com/vladyslavplus/KosherClouds-sub002/services/notification/internal/templates"
	"github.com/vladyslavplus/KosherClouds-sub002/services/notification/migrations"
)

// App содержит все зависимости для запуска и корректного shutdown Notification Dispatcher
type App struct {
	logger      *zap.Logger
	httpServer  *http.Server
	grpcServer  *grpc.Server
	listener    net.Listener
	consumers   *eventbus.Runner
	shutdownMgr *platformshutdown.Manager
	wg          sync.WaitGroup
}

// Build создаёт и настраивает все зависимости Notification Dispatcher
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
	logger.Info("Building Notification dispatcher",
		zap.String("op", op),
		zap.String("http_addr", cfg.HTTPAddr),
		zap.String("grpc_addr", cfg.GRPCAddr),
		zap.String("email_queue", cfg.EmailQueue),
	)

	otelShutdown, err := platformobservability.Init(ctx, cfg.Observability(event.ServiceName))
	if err != nil {
		return nil, err
	}

	shutdownMgr := platformshutdown.New(cfg.ShutdownTimeout, logger)
	shutdownMgr.Add("otel", otelShutdown)

	checks := map[string]platformhealth.Check{}

	var inbox repository.InboxRepository
	switch cfg.Storage {
	case config.StorageMemory:
		logger.Warn("Inbox kept in memory, duplicates are not suppressed across restarts")
		inbox = memory.NewInboxRepository()
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
		inbox = postgres.NewRepository(pool)
	}

	renderer, err := templates.NewRenderer()
	if err != nil {
		return nil, fmt.Errorf("load email templates: %w", err)
	}

	bus, err := transport.Open(ctx, logger, event.ServiceName, cfg.EventBus)
	if err != nil {
		return nil, fmt.Errorf("open event bus: %w", err)
	}
	shutdownMgr.Add("event_bus", platformshutdown.Close(bus))

	var emailSender service.Sender
	if cfg.EmailQueue == config.EmailQueueLog {
		logger.Warn("EMAIL_QUEUE=log, emails are only logged")
		emailSender = sender.NewLogSender(logger)
	} else {
		emailSender = sender.NewBusSender(logger, bus)
	}

	users := httpclient.NewUserClient(cfg.UserServiceURL, cfg.UserLookupTimeout)
	notificationService := service.NewNotificationService(logger, inbox, users, renderer, emailSender)
	if err := event.Register(bus, notificationService); err != nil {
		return nil, err
	}

	httpServer := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      httpapi.NewRouter(checks, logger),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	listener, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return nil, err
	}
	grpcServer := grpc.NewServer(
		grpc.UnaryInterceptor(platformobservability.GRPCUnaryServerInterceptor(event.ServiceName)),
	)
	if cfg.EnableGRPCReflection {
		reflection.Register(grpcServer)
		logger.Info("gRPC reflection enabled")
	}
	health := platformgrpchealth.New(grpc_health_v1.HealthCheckResponse_SERVING)
	health.Register(grpcServer)

	a := &App{
		logger:      logger,
		httpServer:  httpServer,
		grpcServer:  grpcServer,
		listener:    listener,
		consumers:   eventbus.NewRunner(bus, logger),
		shutdownMgr: shutdownMgr,
	}
	shutdownMgr.Add("event_consumers", a.consumers.Stop)
	shutdownMgr.Add("grpc_server", platformshutdown.ShutdownGRPCServer(grpcServer))
	shutdownMgr.Add("http_server", platformshutdown.ShutdownHTTPServer(httpServer))
	shutdownMgr.Add("health_readiness", platformshutdown.SetHealthNotServing(health))

	return a, nil
}

// Run запускает сервис и блокируется до получения сигнала shutdown
func (a *App) Run() error {
	defer platformlogging.Sync(a.logger)

	a.logger.Info("Starting Notification dispatcher",
		zap.String("http_addr", a.httpServer.Addr),
		zap.String("grpc_addr", a.listener.Addr().String()),
	)

	a.consumers.Start()

	a.wg.Add(2)
	go func() {
		defer a.wg.Done()
		if err := a.grpcServer.Serve(a.listener); err != nil {
			a.logger.Error("gRPC server error", zap.Error(err))
		}
	}()
	go func() {
		defer a.wg.Done()
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("HTTP server error", zap.Error(err))
		}
	}()

	a.shutdownMgr.WaitContext(a.consumers.Failed())

	a.wg.Wait()
	a.logger.Info("Notification dispatcher stopped")
	return nil
}
