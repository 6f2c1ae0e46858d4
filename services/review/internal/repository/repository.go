package repository

import (
	"context"
	"errors"

	"github.com/vladyslavplus/KosherClouds-sub002/platform/eventbus/outbox"
	"github.com/vladyslavplus/KosherClouds-sub002/services/review/internal/domain"
)

// ReviewRepository хранилище отзывов.
// Update выполняется только если Version в хранилище совпадает с переданной.
// Outbox отзыва сохраняется той же записью, что и сам отзыв.
type ReviewRepository interface {
	// Create возвращает ErrAlreadyExists при нарушении уникальности (order, product, user)
	Create(ctx context.Context, r domain.Review) error
	// GetByID возвращает ErrNotFound, если отзыва нет
	GetByID(ctx context.Context, id string) (domain.Review, error)
	// ListByOrder все отзывы заказа, включая удалённые
	ListByOrder(ctx context.Context, orderID string) ([]domain.Review, error)
	// Update сохраняет r с Version+1; ErrConflict при несовпадении версии
	Update(ctx context.Context, r domain.Review) (domain.Review, error)

	// MarkOutboxSent убирает событие из outbox отзыва и увеличивает Version.
	// Отзыв с Purged и пустым outbox удаляется физически.
	outbox.Store
}

var (
	// ErrNotFound отзыв не найден
	ErrNotFound = errors.New("review not found")
	// ErrAlreadyExists отзыв от пользователя на этот заказ/продукт уже есть
	ErrAlreadyExists = errors.New("review already exists")
	// ErrConflict отзыв изменён параллельно
	ErrConflict = errors.New("review was modified concurrently")
)
