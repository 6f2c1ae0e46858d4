package contracts

import "time"

// Статусы заказа
const (
	OrderStatusPending   = "Pending"
	OrderStatusPaid      = "Paid"
	OrderStatusCompleted = "Completed"
	OrderStatusCancelled = "Cancelled"
)

// OrderItem позиция заказа
type OrderItem struct {
	ProductID   string  `json:"ProductId" validate:"required"`
	ProductName string  `json:"ProductName"`
	UnitPrice   float64 `json:"UnitPrice" validate:"gte=0"`
	Quantity    int     `json:"Quantity" validate:"gt=0"`
	LineTotal   float64 `json:"LineTotal" validate:"gte=0"`
}

// OrderCreated заказ создан
type OrderCreated struct {
	OrderID     string      `json:"OrderId" validate:"required"`
	UserID      string      `json:"UserId" validate:"required"`
	TotalAmount float64     `json:"TotalAmount" validate:"gte=0"`
	CreatedAt   time.Time   `json:"CreatedAt"`
	Items       []OrderItem `json:"Items" validate:"dive"`
}

func (OrderCreated) EventType() string      { return TypeOrderCreated }
func (e OrderCreated) PartitionKey() string { return e.OrderID }

// OrderUpdated заказ изменён; nil поля не менялись
type OrderUpdated struct {
	OrderID   string    `json:"OrderId" validate:"required"`
	Status    *string   `json:"Status,omitempty" validate:"omitempty,oneof=Pending Paid Completed Cancelled"`
	Notes     *string   `json:"Notes,omitempty"`
	UpdatedAt time.Time `json:"UpdatedAt"`
}

func (OrderUpdated) EventType() string      { return TypeOrderUpdated }
func (e OrderUpdated) PartitionKey() string { return e.OrderID }

// OrderDeleted заказ удалён
type OrderDeleted struct {
	OrderID   string    `json:"OrderId" validate:"required"`
	UserID    string    `json:"UserId" validate:"required"`
	DeletedAt time.Time `json:"DeletedAt"`
}

func (OrderDeleted) EventType() string      { return TypeOrderDeleted }
func (e OrderDeleted) PartitionKey() string { return e.OrderID }

// PaymentCompleted платёж по заказу проведён; TransactionId = ключ идемпотентности
type PaymentCompleted struct {
	PaymentID     string    `json:"PaymentId" validate:"required"`
	OrderID       string    `json:"OrderId" validate:"required"`
	UserID        string    `json:"UserId" validate:"required"`
	Amount        float64   `json:"Amount" validate:"gt=0"`
	TransactionID string    `json:"TransactionId" validate:"required"`
	CompletedAt   time.Time `json:"CompletedAt"`
}

func (PaymentCompleted) EventType() string { return TypePaymentCompleted }

// PartitionKey заказ: события оплаты и изменения заказа упорядочены между собой
func (e PaymentCompleted) PartitionKey() string { return e.OrderID }

// CartItem позиция корзины на момент оформления
type CartItem struct {
	ProductID   string  `json:"ProductId" validate:"required"`
	ProductName string  `json:"ProductName"`
	UnitPrice   float64 `json:"UnitPrice" validate:"gte=0"`
	Quantity    int     `json:"Quantity" validate:"gt=0"`
}

// CartCheckedOut корзина оформлена
type CartCheckedOut struct {
	UserID       string     `json:"UserId" validate:"required"`
	CheckedOutAt time.Time  `json:"CheckedOutAt"`
	Items        []CartItem `json:"Items" validate:"min=1,dive"`
}

func (CartCheckedOut) EventType() string      { return TypeCartCheckedOut }
func (e CartCheckedOut) PartitionKey() string { return e.UserID }
