package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/vladyslavplus/KosherClouds-sub002/platform/contracts"
	"github.com/vladyslavplus/KosherClouds-sub002/platform/eventbus"
	"github.com/vladyslavplus/KosherClouds-sub002/platform/observability"
	"github.com/vladyslavplus/KosherClouds-sub002/services/product/internal/domain"
	"github.com/vladyslavplus/KosherClouds-sub002/services/product/internal/repository"
)

// decideFunc вычисляет новое состояние агрегата по текущему и сохранённому вкладу отзыва
type decideFunc func(r domain.Rating, existing *domain.Contribution) (domain.Decision, error)

// HandleReviewCreated учитывает новый отзыв в рейтинге
func (s *ProductService) HandleReviewCreated(ctx context.Context, meta eventbus.Metadata, e contracts.ReviewCreated) error {
	return s.applyReviewEvent(ctx, meta, e.ProductID, e.ReviewID, func(r domain.Rating, c *domain.Contribution) (domain.Decision, error) {
		return domain.ApplyCreated(r, c, e.ReviewID, e.ProductID, e.Rating, e.Status), nil
	})
}

// HandleReviewUpdated заменяет оценку отзыва
func (s *ProductService) HandleReviewUpdated(ctx context.Context, meta eventbus.Metadata, e contracts.ReviewUpdated) error {
	return s.applyReviewEvent(ctx, meta, e.ProductID, e.ReviewID, func(r domain.Rating, c *domain.Contribution) (domain.Decision, error) {
		return domain.ApplyUpdated(r, c, e.ReviewID, e.ProductID, e.NewRating)
	})
}

// HandleReviewStatusChanged учитывает/исключает отзыв по результату модерации
func (s *ProductService) HandleReviewStatusChanged(ctx context.Context, meta eventbus.Metadata, e contracts.ReviewStatusChanged) error {
	return s.applyReviewEvent(ctx, meta, e.ProductID, e.ReviewID, func(r domain.Rating, c *domain.Contribution) (domain.Decision, error) {
		return domain.ApplyStatusChanged(r, c, e.ReviewID, e.ProductID, e.Rating, e.NewStatus), nil
	})
}

// HandleReviewDeleted исключает удалённый отзыв из рейтинга
func (s *ProductService) HandleReviewDeleted(ctx context.Context, meta eventbus.Metadata, e contracts.ReviewDeleted) error {
	return s.applyReviewEvent(ctx, meta, e.ProductID, e.ReviewID, func(r domain.Rating, c *domain.Contribution) (domain.Decision, error) {
		return domain.ApplyDeleted(r, c, e.ReviewID, e.ProductID, e.Rating), nil
	})
}

// applyReviewEvent атомарный read-modify-write агрегата и вклада отзыва.
// Конфликт версии (конкурентная запись мимо шины) = перечитать и повторить.
func (s *ProductService) applyReviewEvent(ctx context.Context, meta eventbus.Metadata, productID, reviewID string, decide decideFunc) error {
	log := observability.L(ctx, s.logger,
		zap.String("event_id", meta.EventID),
		zap.String("event_type", meta.EventType),
		zap.String("product_id", productID),
		zap.String("review_id", reviewID),
	)

	if productID == "" {
		log.Debug("review without product, rating not affected")
		return nil
	}

	for attempt := 1; attempt <= maxVersionRetries; attempt++ {
		p, err := s.repo.GetByID(ctx, productID)
		if errors.Is(err, repository.ErrNotFound) {
			log.Warn("product not found, skipping rating update")
			return nil
		}
		if err != nil {
			return fmt.Errorf("get product: %w", err)
		}
		if p.Deleted() {
			log.Warn("product deleted, skipping rating update")
			return nil
		}

		var existing *domain.Contribution
		c, err := s.repo.GetContribution(ctx, reviewID)
		switch {
		case err == nil:
			existing = &c
		case !errors.Is(err, repository.ErrNotFound):
			return fmt.Errorf("get contribution: %w", err)
		}

		decision, err := decide(p.Rating, existing)
		if err != nil {
			return eventbus.Permanent(fmt.Errorf("apply %s: %w", meta.EventType, err))
		}
		if !decision.Changed {
			log.Info("duplicate review event, rating unchanged")
			return nil
		}

		err = s.repo.ApplyRating(ctx, repository.RatingUpdate{
			ProductID:       productID,
			ExpectedVersion: p.Version,
			Rating:          decision.Rating,
			Contribution:    &decision.Contribution,
		})
		if errors.Is(err, repository.ErrVersionConflict) {
			log.Info("rating version conflict, retrying", zap.Int("attempt", attempt))
			continue
		}
		if errors.Is(err, repository.ErrNotFound) {
			log.Warn("product removed during rating update, skipping")
			return nil
		}
		if err != nil {
			return fmt.Errorf("apply rating: %w", err)
		}

		log.Info("rating updated",
			zap.Float64("rating", decision.Rating.Rounded()),
			zap.Int("rating_count", decision.Rating.Count),
			zap.Int64("version", p.Version+1),
		)
		return nil
	}
	return fmt.Errorf("apply rating for product %s: %w", productID, repository.ErrVersionConflict)
}

// ReconcileRatings пересчитывает агрегаты по учтённым вкладам и исправляет расхождения
// (накопленная погрешность float или записи мимо проектора). Возвращает число исправленных продуктов.
func (s *ProductService) ReconcileRatings(ctx context.Context) (int, error) {
	totals, err := s.repo.ListRatingTotals(ctx)
	if err != nil {
		return 0, fmt.Errorf("list rating totals: %w", err)
	}

	fixed := 0
	for _, t := range totals {
		expected := domain.FromTotals(t.Sum, t.Count)
		if !t.Stored.Drifted(expected) {
			continue
		}
		err := s.repo.ApplyRating(ctx, repository.RatingUpdate{
			ProductID:       t.ProductID,
			ExpectedVersion: t.Version,
			Rating:          expected,
		})
		if errors.Is(err, repository.ErrVersionConflict) {
			// продукт изменился во время сверки, проверим в следующий запуск
			continue
		}
		if err != nil {
			return fixed, fmt.Errorf("correct rating of %s: %w", t.ProductID, err)
		}
		s.logger.Warn("rating drift corrected",
			zap.String("product_id", t.ProductID),
			zap.Float64("stored_mean", t.Stored.Mean),
			zap.Int("stored_count", t.Stored.Count),
			zap.Float64("expected_mean", expected.Mean),
			zap.Int("expected_count", expected.Count),
		)
		fixed++
	}
	return fixed, nil
}
