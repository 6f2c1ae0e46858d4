// Package event подписки синхронизатора корзин на события каталога.
package event

import (
	"context"
	"fmt"

	"github.com/vladyslavplus/KosherClouds-sub002/platform/contracts"
	"github.com/vladyslavplus/KosherClouds-sub002/platform/eventbus"
)

// ServiceName имя сервиса в именах очередей и поле producer конверта
const ServiceName = "cart"

// ProductSynchronizer обработчики событий продукта
type ProductSynchronizer interface {
	HandleProductUpdated(ctx context.Context, meta eventbus.Metadata, e contracts.ProductUpdated) error
	HandleProductDeleted(ctx context.Context, meta eventbus.Metadata, e contracts.ProductDeleted) error
}

// Register подписывает синхронизатор на cart-product-updated-queue и cart-product-deleted-queue
func Register(bus eventbus.Bus, s ProductSynchronizer) error {
	subs := []eventbus.Subscription{
		{Service: ServiceName, EventType: contracts.TypeProductUpdated, Handler: eventbus.Typed(s.HandleProductUpdated)},
		{Service: ServiceName, EventType: contracts.TypeProductDeleted, Handler: eventbus.Typed(s.HandleProductDeleted)},
	}
	for _, sub := range subs {
		if err := bus.Subscribe(sub); err != nil {
			return fmt.Errorf("subscribe %s: %w", sub.Queue(), err)
		}
	}
	return nil
}
