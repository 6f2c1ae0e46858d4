package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vladyslavplus/KosherClouds-sub002/platform/contracts"
	"github.com/vladyslavplus/KosherClouds-sub002/platform/eventbus"
	"github.com/vladyslavplus/KosherClouds-sub002/platform/observability"
	"github.com/vladyslavplus/KosherClouds-sub002/services/booking/internal/domain"
	"github.com/vladyslavplus/KosherClouds-sub002/services/booking/internal/repository"
)

const maxConflictRetries = 5

var (
	// ErrInvalidInput некорректные входные данные
	ErrInvalidInput = errors.New("invalid input")
	// ErrEventNotPublished изменение сохранено, но событие не опубликовано
	ErrEventNotPublished = errors.New("event not published")
)

// CreateBookingInput параметры нового бронирования
type CreateBookingInput struct {
	UserID          string
	BookingDateTime time.Time
	NumberOfGuests  int
	Comment         string
}

// UpdateBookingInput изменяемые поля; nil = не менять
type UpdateBookingInput struct {
	BookingDateTime *time.Time
	NumberOfGuests  *int
	Comment         *string
}

// BookingService жизненный цикл бронирований.
// События публикуются после коммита каждого перехода.
type BookingService struct {
	logger    *zap.Logger
	repo      repository.BookingRepository
	publisher eventbus.Publisher
	now       func() time.Time
}

// NewBookingService создаёт BookingService
func NewBookingService(logger *zap.Logger, repo repository.BookingRepository, publisher eventbus.Publisher) *BookingService {
	return &BookingService{
		logger:    logger,
		repo:      repo,
		publisher: publisher,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// CreateBooking создаёт бронирование в статусе Pending и публикует booking.created
func (s *BookingService) CreateBooking(ctx context.Context, in CreateBookingInput) (domain.Booking, error) {
	if strings.TrimSpace(in.UserID) == "" {
		return domain.Booking{}, fmt.Errorf("%w: user_id is required", ErrInvalidInput)
	}
	now := s.now()
	if err := domain.ValidateDateTime(in.BookingDateTime, now); err != nil {
		return domain.Booking{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if err := domain.ValidateGuests(in.NumberOfGuests); err != nil {
		return domain.Booking{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	booking := domain.Booking{
		ID:              uuid.NewString(),
		UserID:          in.UserID,
		BookingDateTime: in.BookingDateTime.UTC(),
		NumberOfGuests:  in.NumberOfGuests,
		Comment:         in.Comment,
		Status:          domain.StatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
		Version:         1,
	}
	if err := s.repo.Create(ctx, booking); err != nil {
		return domain.Booking{}, err
	}
	observability.L(ctx, s.logger).Info("booking created",
		zap.String("booking_id", booking.ID),
		zap.String("user_id", booking.UserID),
		zap.Time("booking_date_time", booking.BookingDateTime),
	)

	return booking, s.publish(ctx, contracts.BookingCreated{
		BookingID:       booking.ID,
		UserID:          booking.UserID,
		BookingDateTime: booking.BookingDateTime,
		NumberOfGuests:  booking.NumberOfGuests,
		CreatedAt:       booking.CreatedAt,
	})
}

// GetBooking возвращает бронирование
func (s *BookingService) GetBooking(ctx context.Context, id string) (domain.Booking, error) {
	return s.repo.GetByID(ctx, id)
}

// ListUserBookings бронирования пользователя
func (s *BookingService) ListUserBookings(ctx context.Context, userID string) ([]domain.Booking, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: user_id is required", ErrInvalidInput)
	}
	return s.repo.ListByUser(ctx, userID)
}

// UpdateBooking меняет время, число гостей или комментарий и публикует booking.updated.
// Новое время тоже должно быть в будущем; отменённое бронирование не меняется.
func (s *BookingService) UpdateBooking(ctx context.Context, id string, in UpdateBookingInput) (domain.Booking, error) {
	if in.BookingDateTime != nil {
		if err := domain.ValidateDateTime(*in.BookingDateTime, s.now()); err != nil {
			return domain.Booking{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
	}
	if in.NumberOfGuests != nil {
		if err := domain.ValidateGuests(*in.NumberOfGuests); err != nil {
			return domain.Booking{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
	}

	var evt contracts.BookingUpdated
	_, after, changed, err := s.mutate(ctx, id, func(b *domain.Booking) (bool, error) {
		if b.Status == domain.StatusCancelled {
			return false, domain.ErrBookingCancelled
		}
		evt = contracts.BookingUpdated{BookingID: b.ID, UserID: b.UserID}
		changed := false
		if in.BookingDateTime != nil && !in.BookingDateTime.Equal(b.BookingDateTime) {
			at := in.BookingDateTime.UTC()
			b.BookingDateTime = at
			evt.BookingDateTime = &at
			changed = true
		}
		if in.NumberOfGuests != nil && *in.NumberOfGuests != b.NumberOfGuests {
			b.NumberOfGuests = *in.NumberOfGuests
			changed = true
		}
		if in.Comment != nil && *in.Comment != b.Comment {
			comment := *in.Comment
			b.Comment = comment
			evt.Comment = &comment
			changed = true
		}
		return changed, nil
	})
	if err != nil || !changed {
		return after, err
	}

	evt.UpdatedAt = after.UpdatedAt
	return after, s.publish(ctx, evt)
}

// ConfirmBooking Pending -> Confirmed, публикует booking.updated со статусом
func (s *BookingService) ConfirmBooking(ctx context.Context, id string) (domain.Booking, error) {
	_, after, _, err := s.mutate(ctx, id, func(b *domain.Booking) (bool, error) {
		next, err := domain.Transition(b.Status, domain.StatusConfirmed)
		if err != nil {
			return false, err
		}
		b.Status = next
		return true, nil
	})
	if err != nil {
		return domain.Booking{}, err
	}

	status := string(after.Status)
	return after, s.publish(ctx, contracts.BookingUpdated{
		BookingID: after.ID,
		UserID:    after.UserID,
		Status:    &status,
		UpdatedAt: after.UpdatedAt,
	})
}

// CancelBooking Pending|Confirmed -> Cancelled; запись сохраняется, публикует booking.cancelled
func (s *BookingService) CancelBooking(ctx context.Context, id string) (domain.Booking, error) {
	_, after, _, err := s.mutate(ctx, id, func(b *domain.Booking) (bool, error) {
		next, err := domain.Transition(b.Status, domain.StatusCancelled)
		if err != nil {
			return false, err
		}
		b.Status = next
		return true, nil
	})
	if err != nil {
		return domain.Booking{}, err
	}

	observability.L(ctx, s.logger).Info("booking cancelled", zap.String("booking_id", id))
	return after, s.publish(ctx, contracts.BookingCancelled{
		BookingID:               after.ID,
		UserID:                  after.UserID,
		OriginalBookingDateTime: after.BookingDateTime,
		CancelledAt:             after.UpdatedAt,
	})
}

// DeleteBooking удаляет бронирование в любом статусе и публикует booking.deleted
func (s *BookingService) DeleteBooking(ctx context.Context, id string) error {
	for attempt := 1; attempt <= maxConflictRetries; attempt++ {
		b, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		err = s.repo.Delete(ctx, id, b.Version)
		if errors.Is(err, repository.ErrConflict) {
			continue
		}
		if err != nil {
			return err
		}

		observability.L(ctx, s.logger).Info("booking deleted", zap.String("booking_id", id), zap.String("status", string(b.Status)))
		return s.publish(ctx, contracts.BookingDeleted{
			BookingID: b.ID,
			UserID:    b.UserID,
			DeletedAt: s.now(),
		})
	}
	return repository.ErrConflict
}

// mutate read-modify-write с повтором при конфликте версии.
// fn возвращает false, если бронирование не изменилось: запись пропускается.
func (s *BookingService) mutate(ctx context.Context, id string, fn func(b *domain.Booking) (bool, error)) (before, after domain.Booking, changed bool, err error) {
	for attempt := 1; attempt <= maxConflictRetries; attempt++ {
		before, err = s.repo.GetByID(ctx, id)
		if err != nil {
			return domain.Booking{}, domain.Booking{}, false, err
		}

		next := before
		changed, err = fn(&next)
		if err != nil {
			return before, before, false, err
		}
		if !changed {
			return before, before, false, nil
		}
		next.UpdatedAt = s.now()

		after, err = s.repo.Update(ctx, next)
		if errors.Is(err, repository.ErrConflict) {
			observability.L(ctx, s.logger).Debug("booking version conflict, retrying", zap.String("booking_id", id), zap.Int("attempt", attempt))
			continue
		}
		if err != nil {
			return before, before, false, err
		}
		return before, after, true, nil
	}
	return domain.Booking{}, domain.Booking{}, false, repository.ErrConflict
}

func (s *BookingService) publish(ctx context.Context, evt eventbus.Event) error {
	if err := s.publisher.Publish(ctx, evt); err != nil {
		observability.L(ctx, s.logger).Error("failed to publish booking event",
			zap.Error(err),
			zap.String("event_type", evt.EventType()),
			zap.String("partition_key", evt.PartitionKey()),
		)
		return fmt.Errorf("%w: %v", ErrEventNotPublished, err)
	}
	return nil
}
