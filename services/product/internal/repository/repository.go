package repository

import (
	"context"
	"errors"
	"time"

	"github.com/vladyslavplus/KosherClouds-sub002/services/product/internal/domain"
)

// Product доменная модель продукта
type Product struct {
	ID          string
	Name        string
	Price       float64
	IsAvailable bool
	Rating      domain.Rating
	// Version растёт при каждой записи (optimistic concurrency)
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time
}

// Deleted продукт снят с продажи
func (p Product) Deleted() bool {
	return p.DeletedAt != nil
}

// RatingUpdate запись агрегата и вклада отзыва одной транзакцией
type RatingUpdate struct {
	ProductID       string
	ExpectedVersion int64
	Rating          domain.Rating
	// Contribution nil = только агрегат (сверка по вкладам)
	Contribution *domain.Contribution
}

// RatingTotals агрегат продукта и эталон, пересчитанный по учтённым вкладам
type RatingTotals struct {
	ProductID string
	Version   int64
	Stored    domain.Rating
	Sum       int
	Count     int
}

// ProductRepository хранилище продуктов и вкладов отзывов в рейтинг
type ProductRepository interface {
	// Create сохраняет новый продукт; ErrAlreadyExists если id занят
	Create(ctx context.Context, p Product) error
	// GetByID возвращает продукт (включая снятые с продажи); ErrNotFound
	GetByID(ctx context.Context, id string) (Product, error)
	// Update записывает поля продукта, если версия совпадает с expectedVersion; версия растёт на 1
	Update(ctx context.Context, p Product, expectedVersion int64) (Product, error)

	// GetContribution возвращает вклад отзыва; ErrNotFound
	GetContribution(ctx context.Context, reviewID string) (domain.Contribution, error)
	// ApplyRating записывает агрегат (CAS по версии) и вклад; ErrVersionConflict
	ApplyRating(ctx context.Context, u RatingUpdate) error
	// ListRatingTotals агрегаты всех активных продуктов с эталоном по вкладам
	ListRatingTotals(ctx context.Context) ([]RatingTotals, error)
}

var (
	// ErrNotFound продукт или вклад не найден
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists продукт с таким id уже есть
	ErrAlreadyExists = errors.New("product already exists")
	// ErrVersionConflict запись конкурентно изменена (версия не совпала)
	ErrVersionConflict = errors.New("version conflict")
)
