package memory

import (
	"context"
	"slices"
	"sort"
	"sync"

	"github.com/vladyslavplus/KosherClouds-sub002/platform/eventbus/outbox"
	"github.com/vladyslavplus/KosherClouds-sub002/services/review/internal/domain"
	"github.com/vladyslavplus/KosherClouds-sub002/services/review/internal/repository"
)

type uniqueKey struct {
	orderID, productID, userID string
}

func keyOf(r domain.Review) uniqueKey {
	return uniqueKey{orderID: r.OrderID, productID: r.ProductID, userID: r.UserID}
}

// MemoryRepository реализует ReviewRepository в памяти процесса
type MemoryRepository struct {
	mu      sync.RWMutex
	reviews map[string]domain.Review
	unique  map[uniqueKey]string
	// seq порядок записи событий outbox по event_id
	seq     map[string]uint64
	nextSeq uint64
}

// NewMemoryRepository создаёт новый in-memory репозиторий
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		reviews: make(map[string]domain.Review),
		unique:  make(map[uniqueKey]string),
		seq:     make(map[string]uint64),
	}
}

func clone(r domain.Review) domain.Review {
	r.Outbox = slices.Clone(r.Outbox)
	return r
}

// store сохраняет копию отзыва; вызывается под mu
func (r *MemoryRepository) store(review domain.Review) {
	for _, p := range review.Outbox {
		if _, ok := r.seq[p.Envelope.EventID]; !ok {
			r.nextSeq++
			r.seq[p.Envelope.EventID] = r.nextSeq
		}
	}
	r.reviews[review.ID] = clone(review)
}

// Create сохраняет новый отзыв
func (r *MemoryRepository) Create(ctx context.Context, review domain.Review) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.unique[keyOf(review)]; exists {
		return repository.ErrAlreadyExists
	}
	if _, exists := r.reviews[review.ID]; exists {
		return repository.ErrAlreadyExists
	}
	r.store(review)
	r.unique[keyOf(review)] = review.ID
	return nil
}

// GetByID возвращает отзыв
func (r *MemoryRepository) GetByID(ctx context.Context, id string) (domain.Review, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	review, exists := r.reviews[id]
	if !exists {
		return domain.Review{}, repository.ErrNotFound
	}
	return clone(review), nil
}

// ListByOrder отзывы заказа в порядке создания
func (r *MemoryRepository) ListByOrder(ctx context.Context, orderID string) ([]domain.Review, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []domain.Review
	for _, review := range r.reviews {
		if review.OrderID == orderID {
			out = append(out, clone(review))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// Update сохраняет отзыв при совпадении версии
func (r *MemoryRepository) Update(ctx context.Context, review domain.Review) (domain.Review, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, exists := r.reviews[review.ID]
	if !exists {
		return domain.Review{}, repository.ErrNotFound
	}
	if current.Version != review.Version {
		return domain.Review{}, repository.ErrConflict
	}
	review.Version++
	r.store(review)
	return clone(review), nil
}

// PendingOutbox неотправленные события всех отзывов в порядке записи
func (r *MemoryRepository) PendingOutbox(ctx context.Context, limit int) ([]outbox.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	type pending struct {
		seq uint64
		rec outbox.Record
	}
	var all []pending
	for _, review := range r.reviews {
		for _, p := range review.Outbox {
			all = append(all, pending{
				seq: r.seq[p.Envelope.EventID],
				rec: outbox.Record{Envelope: p.Envelope, Attempts: p.Attempts},
			})
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].seq < all[j].seq })

	out := make([]outbox.Record, 0, min(limit, len(all)))
	for _, p := range all {
		if len(out) == limit {
			break
		}
		out = append(out, p.rec)
	}
	return out, nil
}

// MarkOutboxSent убирает событие из outbox; отзыв с Purged и пустым outbox удаляется
func (r *MemoryRepository) MarkOutboxSent(ctx context.Context, eventID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	review, i, ok := r.findPending(eventID)
	if !ok {
		return nil
	}
	review.Outbox = slices.Delete(slices.Clone(review.Outbox), i, i+1)
	review.Version++
	delete(r.seq, eventID)

	if review.Purged && len(review.Outbox) == 0 {
		delete(r.reviews, review.ID)
		delete(r.unique, keyOf(review))
		return nil
	}
	r.reviews[review.ID] = review
	return nil
}

// MarkOutboxFailed увеличивает attempts события
func (r *MemoryRepository) MarkOutboxFailed(ctx context.Context, eventID, errMsg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	review, i, ok := r.findPending(eventID)
	if !ok {
		return nil
	}
	review.Outbox = slices.Clone(review.Outbox)
	review.Outbox[i].Attempts++
	review.Outbox[i].LastError = errMsg
	r.reviews[review.ID] = review
	return nil
}

func (r *MemoryRepository) findPending(eventID string) (domain.Review, int, bool) {
	for _, review := range r.reviews {
		for i, p := range review.Outbox {
			if p.Envelope.EventID == eventID {
				return review, i, true
			}
		}
	}
	return domain.Review{}, 0, false
}
