package repository

import (
	"context"
	"errors"
	"time"

	"github.com/vladyslavplus/KosherClouds-sub002/platform/eventbus"
	"github.com/vladyslavplus/KosherClouds-sub002/platform/eventbus/outbox"
	"github.com/vladyslavplus/KosherClouds-sub002/services/order/internal/domain"
)

// Payment применённая оплата заказа
type Payment struct {
	OrderID       string
	PaymentID     string
	TransactionID string
	Amount        float64
	PaidAt        time.Time
}

// OrderRepository хранилище заказов.
// Каждый метод записи сохраняет переданные конверты в outbox той же транзакцией.
type OrderRepository interface {
	// Create сохраняет новый заказ; ErrAlreadyExists если id занят
	Create(ctx context.Context, o domain.Order, events ...eventbus.Envelope) error
	// GetByID возвращает заказ с позициями; ErrNotFound
	GetByID(ctx context.Context, id string) (domain.Order, error)
	// Update пишет статус и заметки, если текущий статус равен expected; ErrStatusConflict
	Update(ctx context.Context, o domain.Order, expected domain.Status, events ...eventbus.Envelope) error
	// Delete удаляет заказ; ErrNotFound
	Delete(ctx context.Context, id string, events ...eventbus.Envelope) error
	// ApplyPayment записывает транзакцию и переводит Pending -> Paid.
	// ErrPaymentAlreadyApplied если транзакция уже записана, ErrStatusConflict если заказ не Pending.
	ApplyPayment(ctx context.Context, p Payment, events ...eventbus.Envelope) error

	outbox.Store
}

var (
	// ErrNotFound заказ не найден
	ErrNotFound = errors.New("order not found")
	// ErrAlreadyExists заказ с таким id уже есть
	ErrAlreadyExists = errors.New("order already exists")
	// ErrStatusConflict статус заказа изменился конкурентно
	ErrStatusConflict = errors.New("order status changed concurrently")
	// ErrPaymentAlreadyApplied транзакция уже применена
	ErrPaymentAlreadyApplied = errors.New("payment already applied")
)
