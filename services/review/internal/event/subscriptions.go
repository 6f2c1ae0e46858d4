// Package event подписка сервиса отзывов на удаление заказов.
package event

import (
	"context"
	"fmt"

	"github.com/vladyslavplus/KosherClouds-sub002/platform/contracts"
	"github.com/vladyslavplus/KosherClouds-sub002/platform/eventbus"
)

// ServiceName имя сервиса в именах очередей и поле producer конверта
const ServiceName = "review"

// OrderCancellation обработчик удаления заказа
type OrderCancellation interface {
	HandleOrderDeleted(ctx context.Context, meta eventbus.Metadata, e contracts.OrderDeleted) error
}

// Register подписывает сервис на review-order-deleted-queue
func Register(bus eventbus.Bus, c OrderCancellation) error {
	sub := eventbus.Subscription{
		Service:   ServiceName,
		EventType: contracts.TypeOrderDeleted,
		Handler:   eventbus.Typed(c.HandleOrderDeleted),
	}
	if err := bus.Subscribe(sub); err != nil {
		return fmt.Errorf("subscribe %s: %w", sub.Queue(), err)
	}
	return nil
}
