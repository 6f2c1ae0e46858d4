package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/vladyslavplus/KosherClouds-sub002/platform/contracts"
	"github.com/vladyslavplus/KosherClouds-sub002/platform/eventbus"
	"github.com/vladyslavplus/KosherClouds-sub002/platform/observability"
	"github.com/vladyslavplus/KosherClouds-sub002/services/review/internal/domain"
	"github.com/vladyslavplus/KosherClouds-sub002/services/review/internal/repository"
)

// HandleOrderDeleted мягко удаляет все отзывы удалённого заказа и пишет review.deleted по каждому в outbox.
// Удалённые ранее отзывы пропускаются; ошибка по любому отзыву возвращается для повтора всего события.
func (s *ReviewService) HandleOrderDeleted(ctx context.Context, meta eventbus.Metadata, e contracts.OrderDeleted) error {
	log := observability.L(ctx, s.logger,
		zap.String("event_id", meta.EventID),
		zap.String("order_id", e.OrderID),
	)

	reviews, err := s.repo.ListByOrder(ctx, e.OrderID)
	if err != nil {
		return fmt.Errorf("list reviews of order: %w", err)
	}

	var errs []error
	deleted := 0
	for _, r := range reviews {
		if r.Status == domain.StatusDeleted || r.Purged {
			continue
		}
		err := s.softDelete(ctx, r.ID)
		switch {
		case err == nil:
			deleted++
		case errors.Is(err, repository.ErrNotFound):
			// удалён физически между чтением и записью
		default:
			log.Warn("failed to cancel review", zap.Error(err), zap.String("review_id", r.ID))
			errs = append(errs, fmt.Errorf("review %s: %w", r.ID, err))
		}
	}

	log.Info("order reviews cancelled", zap.Int("reviews", len(reviews)), zap.Int("deleted", deleted))
	return errors.Join(errs...)
}
