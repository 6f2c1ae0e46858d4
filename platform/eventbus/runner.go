package eventbus

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Runner запускает подписки шины в фоне сервиса и останавливает их при shutdown
type Runner struct {
	bus    Bus
	logger *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	failedCtx context.Context
	fail      context.CancelFunc

	once sync.Once
	done chan struct{}
}

// NewRunner создаёт Runner; подписки должны быть зарегистрированы до Start
func NewRunner(bus Bus, logger *zap.Logger) *Runner {
	ctx, cancel := context.WithCancel(context.Background())
	failedCtx, fail := context.WithCancel(context.Background())
	return &Runner{
		bus:       bus,
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
		failedCtx: failedCtx,
		fail:      fail,
		done:      make(chan struct{}),
	}
}

// Start запускает bus.Run в отдельной горутине (повторный вызов ничего не делает)
func (r *Runner) Start() {
	r.once.Do(func() {
		go func() {
			defer close(r.done)
			err := r.bus.Run(r.ctx)
			if r.ctx.Err() != nil {
				return
			}
			if err == nil {
				err = errors.New("event bus stopped unexpectedly")
			}
			r.logger.Error("event consumers failed", zap.Error(err))
			r.fail()
		}()
	})
}

// Failed контекст, отменяемый при аварийной остановке шины (для shutdown.Manager.WaitContext)
func (r *Runner) Failed() context.Context {
	return r.failedCtx
}

// Stop отменяет контекст воркеров и ждёт их завершения: обрабатываемые сообщения
// либо подтверждаются, либо остаются неподтверждёнными
func (r *Runner) Stop(ctx context.Context) error {
	r.cancel()
	// не запущенный Runner считается остановленным
	r.once.Do(func() { close(r.done) })
	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("event consumers did not stop: %w", ctx.Err())
	}
}
