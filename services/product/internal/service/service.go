package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vladyslavplus/KosherClouds-sub002/platform/contracts"
	"github.com/vladyslavplus/KosherClouds-sub002/platform/eventbus"
	"github.com/vladyslavplus/KosherClouds-sub002/platform/observability"
	"github.com/vladyslavplus/KosherClouds-sub002/services/product/internal/repository"
)

// maxVersionRetries число перечитываний агрегата при конфликте версий
const maxVersionRetries = 5

var (
	// ErrInvalidInput некорректные входные данные
	ErrInvalidInput = errors.New("invalid input")
	// ErrEventNotPublished изменение сохранено, но событие не опубликовано
	ErrEventNotPublished = errors.New("event not published")
)

// ProductService владелец агрегата продукта: CRUD с публикацией product.* и
// проектор рейтинга по событиям review.*
type ProductService struct {
	logger    *zap.Logger
	repo      repository.ProductRepository
	publisher eventbus.Publisher
	now       func() time.Time
}

// NewProductService создаёт ProductService
func NewProductService(logger *zap.Logger, repo repository.ProductRepository, publisher eventbus.Publisher) *ProductService {
	return &ProductService{
		logger:    logger,
		repo:      repo,
		publisher: publisher,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// CreateProductInput входные данные создания продукта
type CreateProductInput struct {
	Name        string
	Price       float64
	IsAvailable bool
}

// UpdateProductInput изменяемые поля; nil = без изменений
type UpdateProductInput struct {
	Name        *string
	Price       *float64
	IsAvailable *bool
}

// CreateProduct создаёт продукт и публикует product.updated
func (s *ProductService) CreateProduct(ctx context.Context, in CreateProductInput) (repository.Product, error) {
	if in.Name == "" || in.Price < 0 {
		return repository.Product{}, fmt.Errorf("%w: name is required and price must not be negative", ErrInvalidInput)
	}
	now := s.now()
	p := repository.Product{
		ID:          uuid.NewString(),
		Name:        in.Name,
		Price:       in.Price,
		IsAvailable: in.IsAvailable,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return repository.Product{}, fmt.Errorf("create product: %w", err)
	}
	return p, s.publishUpdated(ctx, p)
}

// GetProduct возвращает продукт; снятые с продажи считаются отсутствующими
func (s *ProductService) GetProduct(ctx context.Context, id string) (repository.Product, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return repository.Product{}, err
	}
	if p.Deleted() {
		return repository.Product{}, repository.ErrNotFound
	}
	return p, nil
}

// UpdateProduct меняет имя/цену/доступность и публикует product.updated с новой версией
func (s *ProductService) UpdateProduct(ctx context.Context, id string, in UpdateProductInput) (repository.Product, error) {
	if in.Price != nil && *in.Price < 0 {
		return repository.Product{}, fmt.Errorf("%w: price must not be negative", ErrInvalidInput)
	}
	if in.Name != nil && *in.Name == "" {
		return repository.Product{}, fmt.Errorf("%w: name must not be empty", ErrInvalidInput)
	}

	updated, err := s.withVersionRetry(ctx, id, func(p repository.Product) (repository.Product, error) {
		if in.Name != nil {
			p.Name = *in.Name
		}
		if in.Price != nil {
			p.Price = *in.Price
		}
		if in.IsAvailable != nil {
			p.IsAvailable = *in.IsAvailable
		}
		return s.repo.Update(ctx, p, p.Version)
	})
	if err != nil {
		return repository.Product{}, err
	}
	return updated, s.publishUpdated(ctx, updated)
}

// DeleteProduct снимает продукт с продажи (мягкое удаление) и публикует product.deleted
func (s *ProductService) DeleteProduct(ctx context.Context, id string) error {
	deleted, err := s.withVersionRetry(ctx, id, func(p repository.Product) (repository.Product, error) {
		now := s.now()
		p.DeletedAt = &now
		p.IsAvailable = false
		return s.repo.Update(ctx, p, p.Version)
	})
	if err != nil {
		return err
	}

	evt := contracts.ProductDeleted{ProductID: deleted.ID, Version: deleted.Version, DeletedAt: *deleted.DeletedAt}
	if err := s.publisher.Publish(ctx, evt); err != nil {
		observability.L(ctx, s.logger).Error("failed to publish product.deleted", zap.Error(err), zap.String("product_id", id))
		return fmt.Errorf("%w: %v", ErrEventNotPublished, err)
	}
	return nil
}

// withVersionRetry читает активный продукт и применяет write, перечитывая при конфликте версий
func (s *ProductService) withVersionRetry(ctx context.Context, id string, write func(repository.Product) (repository.Product, error)) (repository.Product, error) {
	for attempt := 1; attempt <= maxVersionRetries; attempt++ {
		p, err := s.GetProduct(ctx, id)
		if err != nil {
			return repository.Product{}, err
		}
		updated, err := write(p)
		if errors.Is(err, repository.ErrVersionConflict) {
			continue
		}
		if err != nil {
			return repository.Product{}, fmt.Errorf("update product: %w", err)
		}
		return updated, nil
	}
	return repository.Product{}, fmt.Errorf("update product %s: %w", id, repository.ErrVersionConflict)
}

func (s *ProductService) publishUpdated(ctx context.Context, p repository.Product) error {
	evt := contracts.ProductUpdated{
		ProductID:   p.ID,
		Name:        p.Name,
		Price:       p.Price,
		IsAvailable: p.IsAvailable,
		Version:     p.Version,
		UpdatedAt:   p.UpdatedAt,
	}
	if err := s.publisher.Publish(ctx, evt); err != nil {
		observability.L(ctx, s.logger).Error("failed to publish product.updated", zap.Error(err), zap.String("product_id", p.ID))
		return fmt.Errorf("%w: %v", ErrEventNotPublished, err)
	}
	return nil
}
