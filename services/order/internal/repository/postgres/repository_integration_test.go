//go:build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladyslavplus/KosherClouds-sub002/platform/contracts"
	"github.com/vladyslavplus/KosherClouds-sub002/platform/eventbus"
	"github.com/vladyslavplus/KosherClouds-sub002/platform/pgtest"
	"github.com/vladyslavplus/KosherClouds-sub002/services/order/internal/domain"
	"github.com/vladyslavplus/KosherClouds-sub002/services/order/internal/repository"
	"github.com/vladyslavplus/KosherClouds-sub002/services/order/migrations"
)

func TestRepository_Integration(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(pgtest.Start(t, "orders", migrations.FS))

	now := time.Now().UTC().Truncate(time.Microsecond)
	order := domain.Order{
		ID:          "o-1",
		UserID:      "u-1",
		Status:      domain.StatusPending,
		Items:       []domain.Item{{ProductID: "p-1", ProductName: "Wine", UnitPrice: 10, Quantity: 2}},
		TotalAmount: 20,
		CreatedAt:   now,
	}
	created, err := eventbus.NewEnvelope("order", contracts.OrderCreated{OrderID: "o-1", UserID: "u-1", TotalAmount: 20})
	require.NoError(t, err)

	t.Run("create writes outbox in same transaction", func(t *testing.T) {
		require.NoError(t, repo.Create(ctx, order, created))
		require.ErrorIs(t, repo.Create(ctx, order, created), repository.ErrAlreadyExists)

		got, err := repo.GetByID(ctx, "o-1")
		require.NoError(t, err)
		assert.Equal(t, domain.StatusPending, got.Status)
		require.Len(t, got.Items, 1)
		assert.Equal(t, "Wine", got.Items[0].ProductName)

		pending, err := repo.PendingOutbox(ctx, 10)
		require.NoError(t, err)
		require.Len(t, pending, 1)
		assert.Equal(t, created.EventID, pending[0].Envelope.EventID)
	})

	t.Run("apply payment once", func(t *testing.T) {
		p := repository.Payment{OrderID: "o-1", PaymentID: "pay-1", TransactionID: "tx-1", Amount: 20, PaidAt: now}
		require.NoError(t, repo.ApplyPayment(ctx, p))
		require.ErrorIs(t, repo.ApplyPayment(ctx, p), repository.ErrPaymentAlreadyApplied)

		p.TransactionID = "tx-2"
		require.ErrorIs(t, repo.ApplyPayment(ctx, p), repository.ErrStatusConflict)

		got, err := repo.GetByID(ctx, "o-1")
		require.NoError(t, err)
		assert.Equal(t, domain.StatusPaid, got.Status)
		assert.Equal(t, "tx-1", got.PaymentTransactionID)
	})

	t.Run("update compare-and-set", func(t *testing.T) {
		order.Status = domain.StatusCompleted
		order.UpdatedAt = now
		require.ErrorIs(t, repo.Update(ctx, order, domain.StatusPending), repository.ErrStatusConflict)
		require.NoError(t, repo.Update(ctx, order, domain.StatusPaid))

		order.ID = "missing"
		require.ErrorIs(t, repo.Update(ctx, order, domain.StatusPaid), repository.ErrNotFound)
	})

	t.Run("outbox status", func(t *testing.T) {
		require.NoError(t, repo.MarkOutboxFailed(ctx, created.EventID, "broker down"))
		pending, err := repo.PendingOutbox(ctx, 10)
		require.NoError(t, err)
		require.Len(t, pending, 1)
		assert.Equal(t, 1, pending[0].Attempts)

		require.NoError(t, repo.MarkOutboxSent(ctx, created.EventID))
		pending, err = repo.PendingOutbox(ctx, 10)
		require.NoError(t, err)
		assert.Empty(t, pending)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, "o-1"))
		require.ErrorIs(t, repo.Delete(ctx, "o-1"), repository.ErrNotFound)
	})
}
