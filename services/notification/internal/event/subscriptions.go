// Package event подписки Notification Dispatcher: по очереди на каждый тип события,
// чтобы сбой доставки писем одного вида не задерживал остальные.
package event

import (
	"context"
	"fmt"

	"github.com/vladyslavplus/KosherClouds-sub002/platform/contracts"
	"github.com/vladyslavplus/KosherClouds-sub002/platform/eventbus"
)

// ServiceName имя сервиса в именах очередей и поле producer конверта
const ServiceName = "notification"

// Dispatcher обработчики событий, порождающих уведомления
type Dispatcher interface {
	HandleOrderCreated(ctx context.Context, meta eventbus.Metadata, e contracts.OrderCreated) error
	HandlePaymentCompleted(ctx context.Context, meta eventbus.Metadata, e contracts.PaymentCompleted) error
	HandleUserRegistered(ctx context.Context, meta eventbus.Metadata, e contracts.UserRegistered) error
	HandlePasswordResetRequested(ctx context.Context, meta eventbus.Metadata, e contracts.PasswordResetRequested) error
	HandleBookingCreated(ctx context.Context, meta eventbus.Metadata, e contracts.BookingCreated) error
	HandleBookingUpdated(ctx context.Context, meta eventbus.Metadata, e contracts.BookingUpdated) error
	HandleBookingCancelled(ctx context.Context, meta eventbus.Metadata, e contracts.BookingCancelled) error
	HandleBookingDeleted(ctx context.Context, meta eventbus.Metadata, e contracts.BookingDeleted) error
}

// Subscriptions подписки сервиса; workers = 0 берёт значение из конфигурации шины
func Subscriptions(d Dispatcher) []eventbus.Subscription {
	sub := func(eventType string, h eventbus.Handler) eventbus.Subscription {
		return eventbus.Subscription{Service: ServiceName, EventType: eventType, Handler: h}
	}
	return []eventbus.Subscription{
		sub(contracts.TypeOrderCreated, eventbus.Typed(d.HandleOrderCreated)),
		sub(contracts.TypePaymentCompleted, eventbus.Typed(d.HandlePaymentCompleted)),
		sub(contracts.TypeUserRegistered, eventbus.Typed(d.HandleUserRegistered)),
		sub(contracts.TypePasswordResetRequested, eventbus.Typed(d.HandlePasswordResetRequested)),
		sub(contracts.TypeBookingCreated, eventbus.Typed(d.HandleBookingCreated)),
		sub(contracts.TypeBookingUpdated, eventbus.Typed(d.HandleBookingUpdated)),
		sub(contracts.TypeBookingCancelled, eventbus.Typed(d.HandleBookingCancelled)),
		sub(contracts.TypeBookingDeleted, eventbus.Typed(d.HandleBookingDeleted)),
	}
}

// Register подписывает dispatcher на все очереди уведомлений
func Register(bus eventbus.Bus, d Dispatcher) error {
	for _, sub := range Subscriptions(d) {
		if err := bus.Subscribe(sub); err != nil {
			return fmt.Errorf("subscribe %s: %w", sub.Queue(), err)
		}
	}
	return nil
}
