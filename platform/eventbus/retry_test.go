package eventbus

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryPolicy_Backoff(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 10, BackoffBase: time.Second, BackoffMax: 30 * time.Second}

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{attempt: 1, want: 0},
		{attempt: 2, want: time.Second},
		{attempt: 3, want: 2 * time.Second},
		{attempt: 4, want: 4 * time.Second},
		{attempt: 6, want: 16 * time.Second},
		{attempt: 7, want: 30 * time.Second},
		{attempt: 100, want: 30 * time.Second},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, p.Backoff(tt.attempt), "attempt %d", tt.attempt)
	}
}

func TestRetryPolicy_BackoffWithoutMax(t *testing.T) {
	p := RetryPolicy{BackoffBase: 100 * time.Millisecond}
	assert.Equal(t, 800*time.Millisecond, p.Backoff(5))
}

func TestDefaultSleeper_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := DefaultSleeper{}.Sleep(ctx, time.Minute)
	require.ErrorIs(t, err, context.Canceled)
	require.Less(t, time.Since(start), time.Second)
}
