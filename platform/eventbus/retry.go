package eventbus

import (
	"context"
	"time"
)

// RetryPolicy экспоненциальный backoff: base, 2*base, 4*base... не больше Max
type RetryPolicy struct {
	MaxAttempts int
	BackoffBase time.Duration
	BackoffMax  time.Duration
}

// DefaultRetryPolicy 5 попыток, 1s..30s
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 5, BackoffBase: time.Second, BackoffMax: 30 * time.Second}
}

// Backoff задержка перед попыткой attempt (1-based); перед первой попыткой 0
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	if attempt <= 1 || p.BackoffBase <= 0 {
		return 0
	}
	shift := attempt - 2
	if shift > 30 {
		shift = 30
	}
	d := p.BackoffBase * time.Duration(1<<uint(shift))
	if p.BackoffMax > 0 && (d > p.BackoffMax || d <= 0) {
		d = p.BackoffMax
	}
	return d
}

// Sleeper абстракция задержки (в тестах подменяется на no-op)
type Sleeper interface {
	// Sleep ждёт d или отмены ctx
	Sleep(ctx context.Context, d time.Duration) error
}

// DefaultSleeper реализует Sleeper через time.Timer
type DefaultSleeper struct{}

// Sleep ждёт d или отмены ctx
func (DefaultSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
