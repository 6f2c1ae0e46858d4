package shutdown

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// Manager управляет graceful shutdown сервиса.
// Функции выполняются в обратном порядке регистрации (LIFO), каждая под своим таймаутом.
type Manager struct {
	timeout time.Duration
	logger  *zap.Logger

	mu    sync.Mutex
	funcs []shutdownFunc
	once  sync.Once
}

type shutdownFunc struct {
	name string
	fn   func(context.Context) error
}

// New создаёт Manager с таймаутом на каждую shutdown функцию
func New(timeout time.Duration, logger *zap.Logger) *Manager {
	return &Manager{
		timeout: timeout,
		logger:  logger,
	}
}

// Add регистрирует shutdown функцию
func (m *Manager) Add(name string, fn func(context.Context) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.funcs = append(m.funcs, shutdownFunc{name: name, fn: fn})
}

// Wait блокируется до SIGINT/SIGTERM и выполняет shutdown
func (m *Manager) Wait() {
	m.WaitContext(context.Background())
}

// WaitContext блокируется до сигнала или отмены ctx и выполняет shutdown
func (m *Manager) WaitContext(ctx context.Context) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		m.logger.Info("Received shutdown signal, starting graceful shutdown", zap.String("signal", sig.String()))
	case <-ctx.Done():
		m.logger.Info("Shutdown requested, starting graceful shutdown")
	}

	m.Shutdown()
}

// Shutdown выполняет зарегистрированные функции один раз
func (m *Manager) Shutdown() {
	m.once.Do(func() {
		m.mu.Lock()
		funcs := make([]shutdownFunc, len(m.funcs))
		copy(funcs, m.funcs)
		m.mu.Unlock()

		for i := len(funcs) - 1; i >= 0; i-- {
			f := funcs[i]
			ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
			start := time.Now()
			err := f.fn(ctx)
			cancel()

			if err != nil {
				m.logger.Error("Shutdown function failed",
					zap.String("name", f.name),
					zap.Error(err),
					zap.Duration("duration", time.Since(start)))
				continue
			}
			m.logger.Info("Shutdown function completed",
				zap.String("name", f.name),
				zap.Duration("duration", time.Since(start)))
		}

		m.logger.Info("Graceful shutdown completed")
	})
}

// ShutdownHTTPServer возвращает shutdown функцию для http.Server
func ShutdownHTTPServer(srv interface {
	Shutdown(context.Context) error
}) func(context.Context) error {
	return func(ctx context.Context) error {
		return srv.Shutdown(ctx)
	}
}

// ShutdownGRPCServer выполняет GracefulStop, по таймауту делает Stop()
func ShutdownGRPCServer(srv interface {
	GracefulStop()
	Stop()
}) func(context.Context) error {
	return func(ctx context.Context) error {
		done := make(chan struct{})
		go func() {
			srv.GracefulStop()
			close(done)
		}()

		select {
		case <-done:
			return nil
		case <-ctx.Done():
			srv.Stop()
			return fmt.Errorf("graceful stop timeout exceeded, forced stop")
		}
	}
}

// DisconnectMongo возвращает shutdown функцию для MongoDB клиента
func DisconnectMongo(client interface {
	Disconnect(context.Context) error
}) func(context.Context) error {
	return func(ctx context.Context) error {
		return client.Disconnect(ctx)
	}
}

// ClosePool возвращает shutdown функцию для pgxpool
func ClosePool(pool interface {
	Close()
}) func(context.Context) error {
	return func(ctx context.Context) error {
		pool.Close()
		return nil
	}
}

// Close возвращает shutdown функцию для io.Closer (redis client, event bus)
func Close(c io.Closer) func(context.Context) error {
	return func(ctx context.Context) error {
		return c.Close()
	}
}

// SetHealthNotServing переводит readiness в NOT_SERVING перед остановкой серверов
func SetHealthNotServing(health interface {
	SetNotServing(string)
}) func(context.Context) error {
	return func(ctx context.Context) error {
		health.SetNotServing("")
		return nil
	}
}
