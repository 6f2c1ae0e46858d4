package repository

import (
	"context"
	"errors"

	"github.com/vladyslavplus/KosherClouds-sub002/services/cart/internal/domain"
)

// ItemMutation вычисляет новое состояние позиции по текущему (nil = позиции нет).
// write=false означает без изменений; next=nil при write=true удаляет позицию.
type ItemMutation func(current *domain.LineItem) (next *domain.LineItem, write bool, err error)

// CartRepository хранилище корзин с индексом продукт -> корзины
type CartRepository interface {
	// Get возвращает корзину пользователя (пустую, если её нет)
	Get(ctx context.Context, userID string) (domain.Cart, error)
	// UpdateItem атомарно применяет mutate к позиции корзины; конкурентная запись = повтор
	UpdateItem(ctx context.Context, userID, productID string, mutate ItemMutation) error
	// CartsWithProduct пользователи, в корзинах которых есть продукт
	CartsWithProduct(ctx context.Context, productID string) ([]string, error)
	// Checkout атомарно читает корзину, передаёт её prepare и очищает.
	// Ошибка prepare оставляет корзину нетронутой; при конкурентной записи prepare вызывается повторно.
	Checkout(ctx context.Context, userID string, prepare func(domain.Cart) error) (domain.Cart, error)
}

// ErrConflict корзина изменялась конкурентно дольше допустимого числа повторов
var ErrConflict = errors.New("cart modified concurrently")
