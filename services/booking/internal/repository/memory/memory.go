package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/vladyslavplus/KosherClouds-sub002/services/booking/internal/domain"
	"github.com/vladyslavplus/KosherClouds-sub002/services/booking/internal/repository"
)

// MemoryRepository реализует BookingRepository в памяти процесса
type MemoryRepository struct {
	mu       sync.RWMutex
	bookings map[string]domain.Booking
}

var _ repository.BookingRepository = (*MemoryRepository)(nil)

// NewMemoryRepository создаёт новый in-memory репозиторий
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{bookings: make(map[string]domain.Booking)}
}

// Create сохраняет новое бронирование
func (r *MemoryRepository) Create(ctx context.Context, b domain.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.bookings[b.ID]; exists {
		return repository.ErrAlreadyExists
	}
	b.Version = 1
	r.bookings[b.ID] = b
	return nil
}

// GetByID возвращает бронирование
func (r *MemoryRepository) GetByID(ctx context.Context, id string) (domain.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, exists := r.bookings[id]
	if !exists {
		return domain.Booking{}, repository.ErrNotFound
	}
	return b, nil
}

// ListByUser бронирования пользователя
func (r *MemoryRepository) ListByUser(ctx context.Context, userID string) ([]domain.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []domain.Booking
	for _, b := range r.bookings {
		if b.UserID == userID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BookingDateTime.Before(out[j].BookingDateTime) })
	return out, nil
}

// Update сохраняет бронирование с проверкой версии
func (r *MemoryRepository) Update(ctx context.Context, b domain.Booking) (domain.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, exists := r.bookings[b.ID]
	if !exists {
		return domain.Booking{}, repository.ErrNotFound
	}
	if current.Version != b.Version {
		return domain.Booking{}, repository.ErrConflict
	}
	b.Version++
	r.bookings[b.ID] = b
	return b, nil
}

// Delete удаляет бронирование с проверкой версии
func (r *MemoryRepository) Delete(ctx context.Context, id string, version int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, exists := r.bookings[id]
	if !exists {
		return repository.ErrNotFound
	}
	if current.Version != version {
		return repository.ErrConflict
	}
	delete(r.bookings, id)
	return nil
}
