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

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/vladyslavplus/KosherClouds-sub002/platform/eventbus/transport"
	platformgrpchealth "github.com/vladyslavplus/KosherClouds-sub002/platform/health/grpc"
	platformhealth "github.com/vladyslavplus/KosherClouds-sub002/platform/health/http"
	platformlogging "github.com/vladyslavplus/KosherClouds-sub002/platform/logging"
	platformobservability "github.com/vladyslavplus/KosherClouds-sub002/platform/observability"
	platformshutdown "github.com/vladyslavplus/KosherClouds-sub002/platform/shutdown"
	httpapi "github.com/vladyslavplus/KosherClouds-sub002/services/payment/internal/api/http"
	"github.com/vladyslavplus/KosherClouds-sub002/services/payment/internal/config"
	"github.com/vladyslavplus/KosherClouds-sub002/services/payment/internal/event"
	"github.com/vladyslavplus/KosherClouds-sub002/services/payment/internal/repository/memory"
	"github.com/vladyslavplus/KosherClouds-sub002/services/payment/internal/service"
)

// App содержит все зависимости для запуска и корректного shutdown Payment Service
type App struct {
	logger      *zap.Logger
	httpServer  *http.Server
	grpcServer  *grpc.Server
	listener    net.Listener
	health      *platformgrpchealth.Health
	shutdownMgr *platformshutdown.Manager
	wg          sync.WaitGroup
}

// Build создаёт и настраивает все зависимости Payment Service
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
	logger.Info("Building Payment service", zap.String("http_addr", cfg.HTTPAddr), zap.String("grpc_addr", cfg.GRPCAddr))

	otelShutdown, err := platformobservability.Init(ctx, cfg.Observability(event.ServiceName))
	if err != nil {
		return nil, err
	}

	shutdownMgr := platformshutdown.New(cfg.ShutdownTimeout, logger)
	shutdownMgr.Add("otel", otelShutdown)

	bus, err := transport.Open(ctx, logger, event.ServiceName, cfg.EventBus)
	if err != nil {
		return nil, fmt.Errorf("open event bus: %w", err)
	}
	shutdownMgr.Add("event_bus", platformshutdown.Close(bus))

	paymentService := service.NewPaymentService(logger, memory.NewMemoryRepository(), bus)

	router := httpapi.NewRouter(httpapi.NewHandler(paymentService, logger), map[string]platformhealth.Check{}, logger)
	httpServer := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	listener, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return nil, err
	}

	// gRPC сервер с tracing interceptor: health и reflection для операторов
	grpcServer := grpc.NewServer(
		grpc.UnaryInterceptor(platformobservability.GRPCUnaryServerInterceptor(event.ServiceName)),
	)
	if cfg.EnableGRPCReflection {
		reflection.Register(grpcServer)
		logger.Info("gRPC reflection enabled")
	}
	health := platformgrpchealth.New(grpc_health_v1.HealthCheckResponse_SERVING)
	health.Register(grpcServer)

	shutdownMgr.Add("grpc_server", platformshutdown.ShutdownGRPCServer(grpcServer))
	shutdownMgr.Add("http_server", platformshutdown.ShutdownHTTPServer(httpServer))
	shutdownMgr.Add("health_readiness", platformshutdown.SetHealthNotServing(health))

	return &App{
		logger:      logger,
		httpServer:  httpServer,
		grpcServer:  grpcServer,
		listener:    listener,
		health:      health,
		shutdownMgr: shutdownMgr,
	}, nil
}

// Run запускает сервис и блокируется до получения сигнала shutdown
func (a *App) Run() error {
	defer platformlogging.Sync(a.logger)

	a.logger.Info("Starting Payment service",
		zap.String("http_addr", a.httpServer.Addr),
		zap.String("grpc_addr", a.listener.Addr().String()),
	)

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

	a.shutdownMgr.Wait()

	a.wg.Wait()
	a.logger.Info("Payment service stopped")
	return nil
}
