package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/vladyslavplus/KosherClouds-sub002/platform/contracts"
	"github.com/vladyslavplus/KosherClouds-sub002/platform/eventbus"
	"github.com/vladyslavplus/KosherClouds-sub002/platform/observability"
	"github.com/vladyslavplus/KosherClouds-sub002/services/cart/internal/domain"
)

// HandleProductUpdated перезаписывает цену и доступность во всех корзинах с продуктом
func (s *CartService) HandleProductUpdated(ctx context.Context, meta eventbus.Metadata, e contracts.ProductUpdated) error {
	snapshot := domain.ProductSnapshot{
		ProductID:   e.ProductID,
		Name:        e.Name,
		Price:       e.Price,
		IsAvailable: e.IsAvailable,
		Version:     e.Version,
	}
	return s.syncProduct(ctx, meta, e.ProductID, e.Version, func(li domain.LineItem) (domain.LineItem, bool) {
		return li.ApplySnapshot(snapshot, s.now())
	})
}

// HandleProductDeleted помечает позиции снятого с продажи продукта недоступными
func (s *CartService) HandleProductDeleted(ctx context.Context, meta eventbus.Metadata, e contracts.ProductDeleted) error {
	return s.syncProduct(ctx, meta, e.ProductID, e.Version, func(li domain.LineItem) (domain.LineItem, bool) {
		return li.ApplyRemoval(e.Version, s.now())
	})
}

// syncProduct применяет apply к позиции продукта в каждой корзине из индекса.
// Каждая корзина меняется своей транзакцией; повторная доставка даёт то же состояние.
func (s *CartService) syncProduct(ctx context.Context, meta eventbus.Metadata, productID string, version int64, apply func(domain.LineItem) (domain.LineItem, bool)) error {
	log := observability.L(ctx, s.logger,
		zap.String("event_id", meta.EventID),
		zap.String("event_type", meta.EventType),
		zap.String("product_id", productID),
		zap.Int64("version", version),
	)

	users, err := s.repo.CartsWithProduct(ctx, productID)
	if err != nil {
		return fmt.Errorf("list carts: %w", err)
	}

	updated, stale := 0, 0
	for _, userID := range users {
		// mutate может вызываться повторно при конфликте WATCH: итог берём из последнего вызова
		var changed, skipped bool
		err := s.repo.UpdateItem(ctx, userID, productID, func(current *domain.LineItem) (*domain.LineItem, bool, error) {
			changed, skipped = false, false
			if current == nil {
				// позицию удалили после чтения индекса
				return nil, false, nil
			}
			next, ok := apply(*current)
			if !ok {
				skipped = version < current.ProductVersion
				return nil, false, nil
			}
			changed = true
			return &next, true, nil
		})
		if err != nil {
			return fmt.Errorf("update cart %s: %w", userID, err)
		}
		if changed {
			updated++
		}
		if skipped {
			stale++
		}
	}

	if updated == 0 {
		log.Info("product signal did not change any cart", zap.Int("carts", len(users)), zap.Int("stale", stale))
		return nil
	}
	log.Info("cart line items synchronized", zap.Int("carts", len(users)), zap.Int("updated", updated), zap.Int("stale", stale))
	return nil
}
