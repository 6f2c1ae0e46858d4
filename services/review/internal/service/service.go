package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vladyslavplus/KosherClouds-sub002/platform/contracts"
	"github.com/vladyslavplus/KosherClouds-sub002/platform/eventbus"
	"github.com/vladyslavplus/KosherClouds-sub002/platform/observability"
	"github.com/vladyslavplus/KosherClouds-sub002/services/review/internal/domain"
	"github.com/vladyslavplus/KosherClouds-sub002/services/review/internal/event"
	"github.com/vladyslavplus/KosherClouds-sub002/services/review/internal/repository"
)

const maxConflictRetries = 5

// ErrInvalidInput некорректные входные данные
var ErrInvalidInput = errors.New("invalid input")

// OutboxNotifier будит outbox dispatcher после коммита
type OutboxNotifier interface {
	Notify()
}

type noopNotifier struct{}

func (noopNotifier) Notify() {}

// CreateReviewInput параметры нового отзыва; пустой ProductID = отзыв на заказ целиком
type CreateReviewInput struct {
	OrderID   string
	ProductID string
	UserID    string
	Rating    int
	Comment   string
}

// UpdateReviewInput изменяемые автором поля; nil = не менять
type UpdateReviewInput struct {
	Rating  *int
	Comment *string
}

// ModerateInput решение модератора
type ModerateInput struct {
	Action      string
	Notes       string
	ModeratedBy string
}

// ReviewService жизненный цикл отзывов и модерация.
// Событие пишется в outbox отзыва той же записью, что и изменение; публикует его dispatcher.
type ReviewService struct {
	logger   *zap.Logger
	repo     repository.ReviewRepository
	notifier OutboxNotifier
	now      func() time.Time
}

// NewReviewService создаёт ReviewService; notifier может быть nil
func NewReviewService(logger *zap.Logger, repo repository.ReviewRepository, notifier OutboxNotifier) *ReviewService {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	return &ReviewService{
		logger:   logger,
		repo:     repo,
		notifier: notifier,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func pendingEvent(e eventbus.Event) (domain.PendingEvent, error) {
	env, err := eventbus.NewEnvelope(event.ServiceName, e)
	if err != nil {
		return domain.PendingEvent{}, fmt.Errorf("build %s envelope: %w", e.EventType(), err)
	}
	return domain.PendingEvent{Envelope: env}, nil
}

// CreateReview создаёт опубликованный отзыв вместе с review.created в outbox
func (s *ReviewService) CreateReview(ctx context.Context, in CreateReviewInput) (domain.Review, error) {
	if in.OrderID == "" || in.UserID == "" {
		return domain.Review{}, fmt.Errorf("%w: order and user are required", ErrInvalidInput)
	}
	if err := domain.ValidateRating(in.Rating); err != nil {
		return domain.Review{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	now := s.now()
	review := domain.Review{
		ID:        uuid.NewString(),
		OrderID:   in.OrderID,
		ProductID: in.ProductID,
		UserID:    in.UserID,
		Rating:    in.Rating,
		Comment:   in.Comment,
		Status:    domain.StatusPublished,
		CreatedAt: now,
		UpdatedAt: now,
	}
	created, err := pendingEvent(contracts.ReviewCreated{
		ReviewID:  review.ID,
		ProductID: review.ProductID,
		OrderID:   review.OrderID,
		UserID:    review.UserID,
		Rating:    review.Rating,
		Status:    string(review.Status),
		CreatedAt: review.CreatedAt,
	})
	if err != nil {
		return domain.Review{}, err
	}
	review.Outbox = []domain.PendingEvent{created}

	if err := s.repo.Create(ctx, review); err != nil {
		return domain.Review{}, err
	}
	s.notifier.Notify()
	return review, nil
}

// GetReview возвращает отзыв; физически удалённый, но ещё не вычищенный отзыв не виден
func (s *ReviewService) GetReview(ctx context.Context, id string) (domain.Review, error) {
	r, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return domain.Review{}, err
	}
	if r.Purged {
		return domain.Review{}, repository.ErrNotFound
	}
	return r, nil
}

// UpdateReview меняет оценку и/или комментарий; review.updated только при смене оценки
func (s *ReviewService) UpdateReview(ctx context.Context, id string, in UpdateReviewInput) (domain.Review, error) {
	if in.Rating != nil {
		if err := domain.ValidateRating(*in.Rating); err != nil {
			return domain.Review{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
	}

	_, after, err := s.mutate(ctx, id, func(r *domain.Review) (bool, eventbus.Event, error) {
		if r.Status == domain.StatusDeleted {
			return false, nil, domain.ErrReviewDeleted
		}
		changed := false
		var evt eventbus.Event
		if in.Rating != nil && *in.Rating != r.Rating {
			evt = contracts.ReviewUpdated{
				ReviewID:  r.ID,
				ProductID: r.ProductID,
				OldRating: r.Rating,
				NewRating: *in.Rating,
				UpdatedAt: r.UpdatedAt,
			}
			r.Rating = *in.Rating
			changed = true
		}
		if in.Comment != nil && *in.Comment != r.Comment {
			r.Comment = *in.Comment
			changed = true
		}
		return changed, evt, nil
	})
	return after, err
}

// ModerateReview применяет действие модератора и пишет review.status_changed в outbox.
// Повтор того же действия после коммита отклоняется машиной состояний, событие не дублируется.
func (s *ReviewService) ModerateReview(ctx context.Context, id string, in ModerateInput) (domain.Review, error) {
	action, err := domain.ParseAction(in.Action)
	if err != nil {
		return domain.Review{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if in.ModeratedBy == "" {
		return domain.Review{}, fmt.Errorf("%w: moderator is required", ErrInvalidInput)
	}

	before, after, err := s.mutate(ctx, id, func(r *domain.Review) (bool, eventbus.Event, error) {
		next, err := domain.Moderate(r.Status, action)
		if err != nil {
			return false, nil, err
		}
		at := r.UpdatedAt
		evt := contracts.ReviewStatusChanged{
			ReviewID:  r.ID,
			ProductID: r.ProductID,
			OrderID:   r.OrderID,
			Rating:    r.Rating,
			OldStatus: string(r.Status),
			NewStatus: string(next),
			ChangedAt: at,
		}
		r.Status = next
		r.ModerationNotes = in.Notes
		r.ModeratedBy = in.ModeratedBy
		r.ModeratedAt = &at
		return true, evt, nil
	})
	if err != nil {
		return domain.Review{}, err
	}

	observability.L(ctx, s.logger).Info("review moderated",
		zap.String("review_id", id),
		zap.String("old_status", string(before.Status)),
		zap.String("new_status", string(after.Status)),
		zap.String("moderated_by", in.ModeratedBy),
	)
	return after, nil
}

// DeleteReview удаляет отзыв: hard=true физически, иначе Status=Deleted.
// Оба варианта пишут review.deleted в outbox.
func (s *ReviewService) DeleteReview(ctx context.Context, id string, hard bool) error {
	if hard {
		return s.hardDelete(ctx, id)
	}
	return s.softDelete(ctx, id)
}

// hardDelete помечает отзыв Purged; документ удаляется после доставки review.deleted
func (s *ReviewService) hardDelete(ctx context.Context, id string) error {
	_, _, err := s.mutate(ctx, id, func(r *domain.Review) (bool, eventbus.Event, error) {
		r.Purged = true
		return true, deletedEvent(*r, r.UpdatedAt), nil
	})
	return err
}

// softDelete помечает отзыв удалённым; повтор над удалённым отзывом ничего не пишет
func (s *ReviewService) softDelete(ctx context.Context, id string) error {
	_, _, err := s.mutate(ctx, id, func(r *domain.Review) (bool, eventbus.Event, error) {
		if r.Status == domain.StatusDeleted {
			return false, nil, nil
		}
		r.Status = domain.StatusDeleted
		return true, deletedEvent(*r, r.UpdatedAt), nil
	})
	return err
}

func deletedEvent(r domain.Review, at time.Time) contracts.ReviewDeleted {
	return contracts.ReviewDeleted{
		ReviewID:  r.ID,
		ProductID: r.ProductID,
		OrderID:   r.OrderID,
		Rating:    r.Rating,
		DeletedAt: at,
	}
}

// mutate read-modify-write с повтором при конфликте версии.
// fn видит UpdatedAt будущей записи и возвращает false, если отзыв не изменился: запись пропускается.
// Событие fn, если есть, добавляется в outbox той же записью.
func (s *ReviewService) mutate(ctx context.Context, id string, fn func(r *domain.Review) (bool, eventbus.Event, error)) (before, after domain.Review, err error) {
	for attempt := 1; attempt <= maxConflictRetries; attempt++ {
		before, err = s.repo.GetByID(ctx, id)
		if err != nil {
			return domain.Review{}, domain.Review{}, err
		}
		if before.Purged {
			return domain.Review{}, domain.Review{}, repository.ErrNotFound
		}

		next := before
		next.UpdatedAt = s.now()
		var (
			changed bool
			evt     eventbus.Event
		)
		changed, evt, err = fn(&next)
		if err != nil {
			return before, before, err
		}
		if !changed {
			return before, before, nil
		}
		if evt != nil {
			pending, err := pendingEvent(evt)
			if err != nil {
				return before, before, err
			}
			next.Outbox = append(slices.Clone(before.Outbox), pending)
		}

		after, err = s.repo.Update(ctx, next)
		if errors.Is(err, repository.ErrConflict) {
			observability.L(ctx, s.logger).Debug("review version conflict, retrying", zap.String("review_id", id), zap.Int("attempt", attempt))
			continue
		}
		if err != nil {
			return before, before, err
		}
		if evt != nil {
			s.notifier.Notify()
		}
		return before, after, nil
	}
	return domain.Review{}, domain.Review{}, repository.ErrConflict
}
