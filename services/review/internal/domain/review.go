// Package domain модель отзыва и машина состояний модерации.
package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/vladyslavplus/KosherClouds-sub002/platform/contracts"
	"github.com/vladyslavplus/KosherClouds-sub002/platform/eventbus"
)

// Status статус отзыва
type Status string

const (
	StatusPublished Status = contracts.ReviewStatusPublished
	StatusFlagged   Status = contracts.ReviewStatusFlagged
	StatusHidden    Status = contracts.ReviewStatusHidden
	StatusDeleted   Status = contracts.ReviewStatusDeleted
)

// Action действие модератора
type Action string

const (
	ActionFlag    Action = "flag"
	ActionHide    Action = "hide"
	ActionPublish Action = "publish"
)

const (
	MinRating = 1
	MaxRating = 5
)

var (
	// ErrInvalidRating оценка вне [1, 5]
	ErrInvalidRating = errors.New("rating must be between 1 and 5")
	// ErrUnknownAction неизвестное действие модерации
	ErrUnknownAction = errors.New("unknown moderation action")
	// ErrInvalidTransition переход статуса запрещён
	ErrInvalidTransition = errors.New("invalid review status transition")
	// ErrReviewDeleted операция над удалённым отзывом
	ErrReviewDeleted = errors.New("review is deleted")
)

// Review отзыв на заказ (ProductID пуст) или на продукт из заказа
type Review struct {
	ID              string
	OrderID         string
	ProductID       string
	UserID          string
	Rating          int
	Comment         string
	Status          Status
	ModerationNotes string
	ModeratedBy     string
	ModeratedAt     *time.Time
	// Outbox события, записанные вместе с изменением и ещё не доставленные в шину
	Outbox []PendingEvent
	// Purged отзыв удалён физически; документ исчезает после доставки review.deleted
	Purged bool
	// Version счётчик для оптимистичной блокировки
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PendingEvent запись outbox внутри отзыва
type PendingEvent struct {
	Envelope  eventbus.Envelope
	Attempts  int
	LastError string
}

// ValidateRating проверяет диапазон оценки
func ValidateRating(rating int) error {
	if rating < MinRating || rating > MaxRating {
		return fmt.Errorf("%w: got %d", ErrInvalidRating, rating)
	}
	return nil
}

// Counted отзыв учитывается в рейтинге продукта
func (s Status) Counted() bool { return s == StatusPublished }

// ParseAction проверяет действие модерации
func ParseAction(s string) (Action, error) {
	switch a := Action(s); a {
	case ActionFlag, ActionHide, ActionPublish:
		return a, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownAction, s)
	}
}

// Moderate вычисляет статус после действия модератора.
// Published -> Flagged|Hidden, Flagged -> Hidden|Published, Hidden -> Published.
func Moderate(current Status, action Action) (Status, error) {
	if current == StatusDeleted {
		return "", ErrReviewDeleted
	}

	var next Status
	switch action {
	case ActionFlag:
		next = StatusFlagged
	case ActionHide:
		next = StatusHidden
	case ActionPublish:
		next = StatusPublished
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}

	allowed := map[Status][]Status{
		StatusPublished: {StatusFlagged, StatusHidden},
		StatusFlagged:   {StatusHidden, StatusPublished},
		StatusHidden:    {StatusPublished},
	}
	for _, s := range allowed[current] {
		if s == next {
			return next, nil
		}
	}
	return "", fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, next)
}
