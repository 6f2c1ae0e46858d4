package event_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vladyslavplus/KosherClouds-sub002/platform/contracts"
	"github.com/vladyslavplus/KosherClouds-sub002/platform/eventbus"
	"github.com/vladyslavplus/KosherClouds-sub002/platform/eventbus/memory"
	"github.com/vladyslavplus/KosherClouds-sub002/platform/eventbus/outbox"
	"github.com/vladyslavplus/KosherClouds-sub002/services/order/internal/domain"
	"github.com/vladyslavplus/KosherClouds-sub002/services/order/internal/event"
	ordermemory "github.com/vladyslavplus/KosherClouds-sub002/services/order/internal/repository/memory"
	"github.com/vladyslavplus/KosherClouds-sub002/services/order/internal/service"
)

type noSleep struct{}

func (noSleep) Sleep(ctx context.Context, d time.Duration) error { return ctx.Err() }

// Полный путь: cart.checked_out -> заказ -> outbox -> order.created; payment.completed дважды -> один order.updated
func TestOrderChoreography_OverMemoryBus(t *testing.T) {
	bus := memory.New(zap.NewNop(), event.ServiceName, eventbus.Config{Workers: 2, MaxAttempts: 3}, eventbus.WithSleeper(noSleep{}))
	repo := ordermemory.NewRepository()
	dispatcher := outbox.NewDispatcher(zap.NewNop(), repo, bus, outbox.Config{BatchSize: 10, Interval: time.Hour})
	svc := service.NewOrderService(zap.NewNop(), repo, dispatcher)
	require.NoError(t, event.Register(bus, svc))

	var mu sync.Mutex
	var published []eventbus.Envelope
	for _, eventType := range []string{contracts.TypeOrderCreated, contracts.TypeOrderUpdated} {
		require.NoError(t, bus.Subscribe(eventbus.Subscription{
			Service:   "audit",
			EventType: eventType,
			Handler: func(ctx context.Context, env eventbus.Envelope) error {
				mu.Lock()
				defer mu.Unlock()
				published = append(published, env)
				return nil
			},
		}))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = bus.Run(ctx) }()

	flush := func() {
		t.Helper()
		fctx, fcancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer fcancel()
		_, err := dispatcher.DispatchOnce(fctx)
		require.NoError(t, err)
		require.NoError(t, bus.Flush(fctx))
	}

	require.NoError(t, bus.Publish(ctx, contracts.CartCheckedOut{
		UserID:       "u-1",
		CheckedOutAt: time.Now(),
		Items:        []contracts.CartItem{{ProductID: "p-1", ProductName: "Wine", UnitPrice: 10, Quantity: 2}},
	}))
	require.NoError(t, bus.Flush(ctx))
	flush()

	mu.Lock()
	require.Len(t, published, 1)
	created, err := eventbus.Decode[contracts.OrderCreated](published[0])
	mu.Unlock()
	require.NoError(t, err)

	payment := contracts.PaymentCompleted{
		PaymentID: "pay-1", OrderID: created.OrderID, UserID: "u-1", Amount: 20, TransactionID: "tx-1", CompletedAt: time.Now(),
	}
	env, err := eventbus.NewEnvelope("payment", payment)
	require.NoError(t, err)
	require.NoError(t, bus.PublishEnvelope(ctx, env, env))
	require.NoError(t, bus.Flush(ctx))
	flush()

	order, err := svc.GetOrder(ctx, created.OrderID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPaid, order.Status)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, published, 2)
	assert.Equal(t, contracts.TypeOrderUpdated, published[1].EventType)
	assert.Empty(t, bus.DeadLetters(eventbus.QueueName(event.ServiceName, contracts.TypePaymentCompleted)))
}
