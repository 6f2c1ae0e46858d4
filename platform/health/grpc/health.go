package grpc

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
)

// Health обёртка над стандартным gRPC health service
type Health struct {
	srv *health.Server
}

// New создаёт Health с начальным статусом.
// Для readiness стоит начинать с NOT_SERVING и переключать после проверки зависимостей.
func New(initialStatus grpc_health_v1.HealthCheckResponse_ServingStatus) *Health {
	srv := health.NewServer()
	srv.SetServingStatus("", initialStatus)
	return &Health{srv: srv}
}

// Register регистрирует health service; вызывать до grpcSrv.Serve
func (h *Health) Register(grpcSrv *grpc.Server) {
	grpc_health_v1.RegisterHealthServer(grpcSrv, h.srv)
}

// SetServing переводит сервис (пустое имя = весь сервер) в SERVING
func (h *Health) SetServing(serviceName string) {
	h.srv.SetServingStatus(serviceName, grpc_health_v1.HealthCheckResponse_SERVING)
}

// SetNotServing переводит сервис (пустое имя = весь сервер) в NOT_SERVING
func (h *Health) SetNotServing(serviceName string) {
	h.srv.SetServingStatus(serviceName, grpc_health_v1.HealthCheckResponse_NOT_SERVING)
}

// Watch периодически выполняет check и синхронизирует общий статус, пока ctx не отменён
func (h *Health) Watch(ctx context.Context, interval time.Duration, check func(context.Context) error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		checkCtx, cancel := context.WithTimeout(ctx, interval)
		err := check(checkCtx)
		cancel()
		if err != nil {
			h.SetNotServing("")
		} else {
			h.SetServing("")
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
