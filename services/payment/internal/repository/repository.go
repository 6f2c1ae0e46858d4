package repository

import (
	"context"
	"errors"
	"time"
)

// Transaction доменная модель платежа по заказу
type Transaction struct {
	PaymentID     string
	OrderID       string
	UserID        string
	Amount        float64
	Method        string
	TransactionID string
	Status        string
	CreatedAt     time.Time
	// Published payment.completed доставлено в шину
	Published bool
}

// PaymentRepository хранилище транзакций, не более одной на заказ
type PaymentRepository interface {
	// GetByOrderID возвращает ErrNotFound, если транзакции нет
	GetByOrderID(ctx context.Context, orderID string) (Transaction, error)
	// Create атомарно сохраняет транзакцию; ErrAlreadyExists, если по заказу уже есть платёж
	Create(ctx context.Context, tx Transaction) error
	// MarkPublished отмечает, что событие об оплате опубликовано
	MarkPublished(ctx context.Context, orderID string) error
}

var (
	// ErrNotFound транзакция не найдена
	ErrNotFound = errors.New("transaction not found")
	// ErrAlreadyExists по заказу уже есть транзакция
	ErrAlreadyExists = errors.New("transaction already exists")
)
