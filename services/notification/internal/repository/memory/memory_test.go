package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInboxRepository_Lifecycle(t *testing.T) {
	ctx := context.Background()
	repo := NewInboxRepository()

	res, err := repo.UpsertPending(ctx, "evt-1", "user_registered", "user.registered")
	require.NoError(t, err)
	assert.True(t, res.CanProcess)

	require.NoError(t, repo.MarkFailed(ctx, "evt-1", "user_registered", "smtp down"))
	assert.Equal(t, "smtp down", repo.LastError("evt-1", "user_registered"))

	res, err = repo.UpsertPending(ctx, "evt-1", "user_registered", "user.registered")
	require.NoError(t, err)
	assert.True(t, res.CanProcess)
	assert.Equal(t, 1, res.Attempts)

	require.NoError(t, repo.MarkSent(ctx, "evt-1", "user_registered"))
	res, err = repo.UpsertPending(ctx, "evt-1", "user_registered", "user.registered")
	require.NoError(t, err)
	assert.True(t, res.AlreadyProcessed)
	assert.Empty(t, repo.LastError("evt-1", "user_registered"))
}

func TestInboxRepository_ConcurrentUpsert(t *testing.T) {
	ctx := context.Background()
	repo := NewInboxRepository()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.UpsertPending(ctx, "evt-1", "order_created", "order.created")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Len(t, repo.entries, 1)
}
