//go:build integration

package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladyslavplus/KosherClouds-sub002/platform/pgtest"
	"github.com/vladyslavplus/KosherClouds-sub002/services/notification/migrations"
)

func TestRepository_Integration(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(pgtest.Start(t, "notifications", migrations.FS))

	res, err := repo.UpsertPending(ctx, "evt-1", "order_created", "order.created")
	require.NoError(t, err)
	assert.True(t, res.CanProcess)
	assert.Zero(t, res.Attempts)

	require.NoError(t, repo.MarkFailed(ctx, "evt-1", "order_created", "user service unavailable"))

	res, err = repo.UpsertPending(ctx, "evt-1", "order_created", "order.created")
	require.NoError(t, err)
	assert.True(t, res.CanProcess)
	assert.Equal(t, 1, res.Attempts)

	// другой вид уведомления того же события независим
	res, err = repo.UpsertPending(ctx, "evt-1", "order_receipt", "order.created")
	require.NoError(t, err)
	assert.True(t, res.CanProcess)

	require.NoError(t, repo.MarkSent(ctx, "evt-1", "order_created"))
	res, err = repo.UpsertPending(ctx, "evt-1", "order_created", "order.created")
	require.NoError(t, err)
	assert.True(t, res.AlreadyProcessed)
	assert.False(t, res.CanProcess)

	// ошибка после sent не возвращает запись в pending
	require.NoError(t, repo.MarkFailed(ctx, "evt-1", "order_created", "late failure"))
	res, err = repo.UpsertPending(ctx, "evt-1", "order_created", "order.created")
	require.NoError(t, err)
	assert.True(t, res.AlreadyProcessed)
}
