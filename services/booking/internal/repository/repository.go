package repository

import (
	"context"
	"errors"

	"github.com/vladyslavplus/KosherClouds-sub002/services/booking/internal/domain"
)

// BookingRepository хранилище бронирований.
// Update и Delete выполняются только если Version в хранилище совпадает с переданной.
type BookingRepository interface {
	// Create возвращает ErrAlreadyExists, если ID занят
	Create(ctx context.Context, b domain.Booking) error
	// GetByID возвращает ErrNotFound, если бронирования нет
	GetByID(ctx context.Context, id string) (domain.Booking, error)
	// ListByUser бронирования пользователя по возрастанию времени
	ListByUser(ctx context.Context, userID string) ([]domain.Booking, error)
	// Update сохраняет b с Version+1; ErrConflict при несовпадении версии
	Update(ctx context.Context, b domain.Booking) (domain.Booking, error)
	// Delete удаляет запись; ErrConflict при несовпадении версии
	Delete(ctx context.Context, id string, version int64) error
}

var (
	// ErrNotFound бронирование не найдено
	ErrNotFound = errors.New("booking not found")
	// ErrAlreadyExists бронирование с таким ID уже есть
	ErrAlreadyExists = errors.New("booking already exists")
	// ErrConflict бронирование изменено параллельно
	ErrConflict = errors.New("booking was modified concurrently")
)
