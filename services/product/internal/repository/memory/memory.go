package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/vladyslavplus/KosherClouds-sub002/services/product/internal/domain"
	"github.com/vladyslavplus/KosherClouds-sub002/services/product/internal/repository"
)

// Repository реализует ProductRepository в памяти (локальный запуск и тесты)
type Repository struct {
	mu            sync.RWMutex
	products      map[string]repository.Product
	contributions map[string]domain.Contribution
}

// NewRepository создаёт пустое хранилище
func NewRepository() *Repository {
	return &Repository{
		products:      make(map[string]repository.Product),
		contributions: make(map[string]domain.Contribution),
	}
}

func (r *Repository) Create(ctx context.Context, p repository.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.products[p.ID]; ok {
		return repository.ErrAlreadyExists
	}
	if p.Version == 0 {
		p.Version = 1
	}
	r.products[p.ID] = p
	return nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (repository.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.products[id]
	if !ok {
		return repository.Product{}, repository.ErrNotFound
	}
	return p, nil
}

func (r *Repository) Update(ctx context.Context, p repository.Product, expectedVersion int64) (repository.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.products[p.ID]
	if !ok {
		return repository.Product{}, repository.ErrNotFound
	}
	if cur.Version != expectedVersion {
		return repository.Product{}, repository.ErrVersionConflict
	}
	// рейтинг меняется только через ApplyRating
	p.Rating = cur.Rating
	p.CreatedAt = cur.CreatedAt
	p.Version = expectedVersion + 1
	p.UpdatedAt = time.Now().UTC()
	r.products[p.ID] = p
	return p, nil
}

func (r *Repository) GetContribution(ctx context.Context, reviewID string) (domain.Contribution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.contributions[reviewID]
	if !ok {
		return domain.Contribution{}, repository.ErrNotFound
	}
	return c, nil
}

func (r *Repository) ApplyRating(ctx context.Context, u repository.RatingUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[u.ProductID]
	if !ok {
		return repository.ErrNotFound
	}
	if p.Version != u.ExpectedVersion {
		return repository.ErrVersionConflict
	}
	p.Rating = u.Rating
	p.Version++
	p.UpdatedAt = time.Now().UTC()
	r.products[p.ID] = p
	if u.Contribution != nil {
		r.contributions[u.Contribution.ReviewID] = *u.Contribution
	}
	return nil
}

func (r *Repository) ListRatingTotals(ctx context.Context) ([]repository.RatingTotals, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	byProduct := make(map[string]*repository.RatingTotals)
	for _, p := range r.products {
		if p.Deleted() {
			continue
		}
		byProduct[p.ID] = &repository.RatingTotals{ProductID: p.ID, Version: p.Version, Stored: p.Rating}
	}
	for _, c := range r.contributions {
		t, ok := byProduct[c.ProductID]
		if !ok || !c.Counted || c.Deleted {
			continue
		}
		t.Sum += c.Rating
		t.Count++
	}

	out := make([]repository.RatingTotals, 0, len(byProduct))
	for _, t := range byProduct {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out, nil
}
