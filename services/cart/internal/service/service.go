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
	"github.com/vladyslavplus/KosherClouds-sub002/services/cart/internal/domain"
	"github.com/vladyslavplus/KosherClouds-sub002/services/cart/internal/event"
	"github.com/vladyslavplus/KosherClouds-sub002/services/cart/internal/repository"
)

var (
	// ErrInvalidInput некорректные входные данные
	ErrInvalidInput = errors.New("invalid input")
	// ErrItemNotFound позиции нет в корзине
	ErrItemNotFound = errors.New("item not found in cart")
	// ErrEmptyCart оформление пустой корзины
	ErrEmptyCart = errors.New("cart is empty")
	// ErrUnavailableItems в корзине есть недоступные продукты
	ErrUnavailableItems = errors.New("cart contains unavailable products")
	// ErrEventNotPublished cart.checked_out не опубликовано, корзина не очищена
	ErrEventNotPublished = errors.New("event not published")
)

// checkoutNamespace пространство имён event_id оформления корзины
var checkoutNamespace = uuid.MustParse("a3c1f0d2-6e4b-4c57-9b8e-2d7f5a10c6e9")

// CheckoutEventID event_id cart.checked_out для содержимого корзины.
// Повтор оформления неизменной корзины даёт тот же id, order service не создаст второй заказ.
func CheckoutEventID(c domain.Cart) string {
	return uuid.NewSHA1(checkoutNamespace, []byte(c.Fingerprint())).String()
}

// ProductCatalog lookup продукта в Product Service
type ProductCatalog interface {
	GetProduct(ctx context.Context, productID string) (domain.ProductSnapshot, error)
}

// CartService корзины пользователей и синхронизация их снимков с каталогом
type CartService struct {
	logger    *zap.Logger
	repo      repository.CartRepository
	catalog   ProductCatalog
	publisher eventbus.EnvelopePublisher
	now       func() time.Time
}

// NewCartService создаёт CartService
func NewCartService(logger *zap.Logger, repo repository.CartRepository, catalog ProductCatalog, publisher eventbus.EnvelopePublisher) *CartService {
	return &CartService{
		logger:    logger,
		repo:      repo,
		catalog:   catalog,
		publisher: publisher,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// GetCart возвращает корзину пользователя
func (s *CartService) GetCart(ctx context.Context, userID string) (domain.Cart, error) {
	return s.repo.Get(ctx, userID)
}

// AddItem добавляет quantity единиц продукта со снимком цены из каталога
func (s *CartService) AddItem(ctx context.Context, userID, productID string, quantity int) (domain.Cart, error) {
	if userID == "" || productID == "" || quantity <= 0 {
		return domain.Cart{}, fmt.Errorf("%w: user, product and positive quantity are required", ErrInvalidInput)
	}

	snapshot, err := s.catalog.GetProduct(ctx, productID)
	if err != nil {
		return domain.Cart{}, err
	}
	if !snapshot.IsAvailable {
		return domain.Cart{}, domain.ErrProductUnavailable
	}

	now := s.now()
	err = s.repo.UpdateItem(ctx, userID, productID, func(current *domain.LineItem) (*domain.LineItem, bool, error) {
		if current == nil {
			return &domain.LineItem{
				ProductID:      productID,
				ProductName:    snapshot.Name,
				Quantity:       quantity,
				UnitPrice:      snapshot.Price,
				IsAvailable:    snapshot.IsAvailable,
				ProductVersion: snapshot.Version,
				UpdatedAt:      now,
			}, true, nil
		}
		// снимок из lookup подчиняется тем же правилам версий, что и события
		next, _ := current.ApplySnapshot(snapshot, now)
		next.Quantity += quantity
		next.UpdatedAt = now
		return &next, true, nil
	})
	if err != nil {
		return domain.Cart{}, fmt.Errorf("add item: %w", err)
	}
	return s.repo.Get(ctx, userID)
}

// RemoveItem удаляет позицию из корзины
func (s *CartService) RemoveItem(ctx context.Context, userID, productID string) error {
	return s.repo.UpdateItem(ctx, userID, productID, func(current *domain.LineItem) (*domain.LineItem, bool, error) {
		if current == nil {
			return nil, false, ErrItemNotFound
		}
		return nil, true, nil
	})
}

// Checkout оформляет корзину: недоступные позиции отклоняют оформление.
// cart.checked_out публикуется до очистки корзины; при ошибке публикации корзина остаётся.
func (s *CartService) Checkout(ctx context.Context, userID string) (domain.Cart, error) {
	cart, err := s.repo.Checkout(ctx, userID, func(c domain.Cart) error {
		if len(c.Items) == 0 {
			return ErrEmptyCart
		}
		if ids := c.Unavailable(); len(ids) > 0 {
			return fmt.Errorf("%w: %v", ErrUnavailableItems, ids)
		}
		return s.publishCheckedOut(ctx, c)
	})
	if err != nil {
		return domain.Cart{}, err
	}

	observability.L(ctx, s.logger).Info("cart checked out", zap.String("user_id", userID), zap.Float64("total", cart.Total()))
	return cart, nil
}

func (s *CartService) publishCheckedOut(ctx context.Context, c domain.Cart) error {
	evt := contracts.CartCheckedOut{UserID: c.UserID, CheckedOutAt: s.now(), Items: make([]contracts.CartItem, 0, len(c.Items))}
	for _, li := range c.Items {
		evt.Items = append(evt.Items, contracts.CartItem{
			ProductID:   li.ProductID,
			ProductName: li.ProductName,
			UnitPrice:   li.UnitPrice,
			Quantity:    li.Quantity,
		})
	}
	env, err := eventbus.NewEnvelope(event.ServiceName, evt)
	if err != nil {
		return fmt.Errorf("build cart.checked_out envelope: %w", err)
	}
	env.EventID = CheckoutEventID(c)

	if err := s.publisher.PublishEnvelope(ctx, env); err != nil {
		observability.L(ctx, s.logger).Error("failed to publish cart.checked_out",
			zap.Error(err),
			zap.String("user_id", c.UserID),
			zap.String("event_id", env.EventID),
			zap.Int("items", len(evt.Items)),
		)
		return fmt.Errorf("%w: %v", ErrEventNotPublished, err)
	}
	return nil
}
