package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladyslavplus/KosherClouds-sub002/platform/contracts"
	"github.com/vladyslavplus/KosherClouds-sub002/platform/eventbus"
	"github.com/vladyslavplus/KosherClouds-sub002/services/order/internal/domain"
)

func paymentCompleted(orderID, txID string) contracts.PaymentCompleted {
	return contracts.PaymentCompleted{
		PaymentID:     "pay-" + txID,
		OrderID:       orderID,
		UserID:        "u-1",
		Amount:        24.5,
		TransactionID: txID,
		CompletedAt:   time.Date(2026, 3, 1, 12, 5, 0, 0, time.UTC),
	}
}

func TestHandlePaymentCompleted_Idempotent(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()
	order := createTestOrder(t, svc)

	meta := eventbus.Metadata{EventID: "evt-1", EventType: contracts.TypePaymentCompleted}
	require.NoError(t, svc.HandlePaymentCompleted(ctx, meta, paymentCompleted(order.ID, "tx-1")))

	got, err := svc.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPaid, got.Status)
	assert.Equal(t, "tx-1", got.PaymentTransactionID)

	// повторная доставка того же события
	require.NoError(t, svc.HandlePaymentCompleted(ctx, meta, paymentCompleted(order.ID, "tx-1")))
	got, err = svc.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPaid, got.Status)

	events := pendingEvents(t, repo)
	require.Len(t, events, 2, "order.created + one order.updated")
	updated, err := eventbus.Decode[contracts.OrderUpdated](events[1])
	require.NoError(t, err)
	assert.Equal(t, "Paid", *updated.Status)
}

func TestHandlePaymentCompleted_NoRegression(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	order := createTestOrder(t, svc)
	meta := eventbus.Metadata{EventID: "evt-1"}

	require.NoError(t, svc.HandlePaymentCompleted(ctx, meta, paymentCompleted(order.ID, "tx-1")))
	completed := "Completed"
	_, err := svc.UpdateOrder(ctx, order.ID, UpdateOrderInput{Status: &completed})
	require.NoError(t, err)

	// другая транзакция по уже оплаченному заказу не откатывает статус
	require.NoError(t, svc.HandlePaymentCompleted(ctx, meta, paymentCompleted(order.ID, "tx-2")))
	got, err := svc.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, got.Status)
	assert.Equal(t, "tx-1", got.PaymentTransactionID)
}

func TestHandlePaymentCompleted_OrderNotFoundIsPermanent(t *testing.T) {
	svc, _, _ := newTestService(t)

	err := svc.HandlePaymentCompleted(context.Background(), eventbus.Metadata{EventID: "evt-1"}, paymentCompleted("missing", "tx-1"))
	require.Error(t, err)
	assert.True(t, eventbus.IsPermanent(err))
}

func TestHandleCartCheckedOut_CreatesOrderOnce(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	e := contracts.CartCheckedOut{
		UserID:       "u-7",
		CheckedOutAt: time.Now(),
		Items:        []contracts.CartItem{{ProductID: "p-1", ProductName: "Wine", UnitPrice: 12.5, Quantity: 2}},
	}
	meta := eventbus.Metadata{EventID: "checkout-1", EventType: contracts.TypeCartCheckedOut}

	require.NoError(t, svc.HandleCartCheckedOut(ctx, meta, e))
	require.NoError(t, svc.HandleCartCheckedOut(ctx, meta, e))

	order, err := svc.GetOrder(ctx, OrderIDForCheckout("checkout-1"))
	require.NoError(t, err)
	assert.Equal(t, "u-7", order.UserID)
	assert.Equal(t, 25.0, order.TotalAmount)
	assert.Len(t, pendingEvents(t, repo), 1)

	// другой checkout создаёт другой заказ
	require.NoError(t, svc.HandleCartCheckedOut(ctx, eventbus.Metadata{EventID: "checkout-2"}, e))
	assert.Len(t, pendingEvents(t, repo), 2)
}
