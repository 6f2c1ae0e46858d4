// Package event подписки Order Service на события оплаты и оформления корзины.
package event

import (
	"context"
	"fmt"

	"github.com/vladyslavplus/KosherClouds-sub002/platform/contracts"
	"github.com/vladyslavplus/KosherClouds-sub002/platform/eventbus"
)

// ServiceName имя сервиса в именах очередей и поле producer конверта
const ServiceName = "order"

// Reconciler обработчики входящих событий заказа
type Reconciler interface {
	HandlePaymentCompleted(ctx context.Context, meta eventbus.Metadata, e contracts.PaymentCompleted) error
	HandleCartCheckedOut(ctx context.Context, meta eventbus.Metadata, e contracts.CartCheckedOut) error
}

// Register подписывает reconciler на order-payment-completed-queue и order-cart-checked-out-queue
func Register(bus eventbus.Bus, r Reconciler) error {
	subs := []eventbus.Subscription{
		{Service: ServiceName, EventType: contracts.TypePaymentCompleted, Handler: eventbus.Typed(r.HandlePaymentCompleted)},
		{Service: ServiceName, EventType: contracts.TypeCartCheckedOut, Handler: eventbus.Typed(r.HandleCartCheckedOut)},
	}
	for _, sub := range subs {
		if err := bus.Subscribe(sub); err != nil {
			return fmt.Errorf("subscribe %s: %w", sub.Queue(), err)
		}
	}
	return nil
}
