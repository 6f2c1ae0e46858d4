package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vladyslavplus/KosherClouds-sub002/services/payment/internal/repository"
)

func TestMemoryRepository_CreateIsExclusivePerOrder(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	var wg sync.WaitGroup
	results := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- repo.Create(ctx, repository.Transaction{OrderID: "order-1", Amount: 10})
		}()
	}
	wg.Wait()
	close(results)

	created := 0
	for err := range results {
		if err == nil {
			created++
			continue
		}
		require.ErrorIs(t, err, repository.ErrAlreadyExists)
	}
	require.Equal(t, 1, created)
}

func TestMemoryRepository_MarkPublished(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	require.ErrorIs(t, repo.MarkPublished(ctx, "missing"), repository.ErrNotFound)

	require.NoError(t, repo.Create(ctx, repository.Transaction{OrderID: "order-1"}))
	require.NoError(t, repo.MarkPublished(ctx, "order-1"))

	tx, err := repo.GetByOrderID(ctx, "order-1")
	require.NoError(t, err)
	require.True(t, tx.Published)
}
