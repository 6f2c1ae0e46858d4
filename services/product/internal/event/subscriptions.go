// Package event связывает проектор рейтинга с очередями шины событий.
package event

import (
	"context"
	"fmt"

	"github.com/vladyslavplus/KosherClouds-sub002/platform/contracts"
	"github.com/vladyslavplus/KosherClouds-sub002/platform/eventbus"
)

// ServiceName имя сервиса в именах очередей и поле producer конверта
const ServiceName = "product"

// RatingProjector обработчики событий отзывов
type RatingProjector interface {
	HandleReviewCreated(ctx context.Context, meta eventbus.Metadata, e contracts.ReviewCreated) error
	HandleReviewUpdated(ctx context.Context, meta eventbus.Metadata, e contracts.ReviewUpdated) error
	HandleReviewStatusChanged(ctx context.Context, meta eventbus.Metadata, e contracts.ReviewStatusChanged) error
	HandleReviewDeleted(ctx context.Context, meta eventbus.Metadata, e contracts.ReviewDeleted) error
}

// Subscriptions очереди product-review-*-queue
func Subscriptions(p RatingProjector) []eventbus.Subscription {
	return []eventbus.Subscription{
		{Service: ServiceName, EventType: contracts.TypeReviewCreated, Handler: eventbus.Typed(p.HandleReviewCreated)},
		{Service: ServiceName, EventType: contracts.TypeReviewUpdated, Handler: eventbus.Typed(p.HandleReviewUpdated)},
		{Service: ServiceName, EventType: contracts.TypeReviewStatusChanged, Handler: eventbus.Typed(p.HandleReviewStatusChanged)},
		{Service: ServiceName, EventType: contracts.TypeReviewDeleted, Handler: eventbus.Typed(p.HandleReviewDeleted)},
	}
}

// Register подписывает проектор на шину
func Register(bus eventbus.Bus, p RatingProjector) error {
	for _, sub := range Subscriptions(p) {
		if err := bus.Subscribe(sub); err != nil {
			return fmt.Errorf("subscribe %s: %w", sub.Queue(), err)
		}
	}
	return nil
}
