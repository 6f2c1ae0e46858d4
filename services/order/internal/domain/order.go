// Package domain модель заказа и правила переходов статуса.
package domain

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Status статус заказа
type Status string

const (
	StatusPending   Status = "Pending"
	StatusPaid      Status = "Paid"
	StatusCompleted Status = "Completed"
	StatusCancelled Status = "Cancelled"
)

var (
	// ErrUnknownStatus неизвестное значение статуса
	ErrUnknownStatus = errors.New("unknown order status")
	// ErrInvalidTransition переход статуса запрещён
	ErrInvalidTransition = errors.New("invalid status transition")
)

// ParseStatus разбирает статус из строки контракта или API
func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusPending, StatusPaid, StatusCompleted, StatusCancelled:
		return st, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStatus, s)
}

// Rank порядок статусов: Pending(0) < Paid(1) < Completed|Cancelled(2)
func (s Status) Rank() int {
	switch s {
	case StatusPending:
		return 0
	case StatusPaid:
		return 1
	default:
		return 2
	}
}

var transitions = map[Status][]Status{
	StatusPending: {StatusPaid, StatusCancelled},
	StatusPaid:    {StatusCompleted, StatusCancelled},
}

// CanTransition разрешён ли переход from -> to
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Item позиция заказа
type Item struct {
	ProductID   string
	ProductName string
	UnitPrice   float64
	Quantity    int
}

// LineTotal стоимость позиции
func (i Item) LineTotal() float64 {
	return round2(i.UnitPrice * float64(i.Quantity))
}

// TotalOf сумма заказа по позициям
func TotalOf(items []Item) float64 {
	var total float64
	for _, it := range items {
		total += it.LineTotal()
	}
	return round2(total)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Order заказ
type Order struct {
	ID          string
	UserID      string
	Status      Status
	Items       []Item
	TotalAmount float64
	Notes       string
	// PaymentTransactionID транзакция, переведшая заказ в Paid
	PaymentTransactionID string
	PaidAt               *time.Time
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// PaymentDecision что делать с PaymentCompleted для заказа
type PaymentDecision int

const (
	// PaymentApply перевести Pending -> Paid
	PaymentApply PaymentDecision = iota
	// PaymentDuplicate эта транзакция уже применена
	PaymentDuplicate
	// PaymentStale заказ уже дальше Pending: статус не откатываем
	PaymentStale
)

// DecidePayment решение по платежу transactionID без побочных эффектов
func (o Order) DecidePayment(transactionID string) PaymentDecision {
	switch {
	case o.PaymentTransactionID == transactionID:
		return PaymentDuplicate
	case o.Status.Rank() >= StatusPaid.Rank():
		return PaymentStale
	default:
		return PaymentApply
	}
}
