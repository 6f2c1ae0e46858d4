package contracts

import "time"

// Статусы бронирования
const (
	BookingStatusPending   = "Pending"
	BookingStatusConfirmed = "Confirmed"
	BookingStatusCancelled = "Cancelled"
)

// BookingCreated бронирование создано
type BookingCreated struct {
	BookingID       string    `json:"BookingId" validate:"required"`
	UserID          string    `json:"UserId" validate:"required"`
	BookingDateTime time.Time `json:"BookingDateTime" validate:"required"`
	NumberOfGuests  int       `json:"NumberOfGuests,omitempty" validate:"gte=0"`
	CreatedAt       time.Time `json:"CreatedAt"`
}

func (BookingCreated) EventType() string      { return TypeBookingCreated }
func (e BookingCreated) PartitionKey() string { return e.BookingID }

// BookingUpdated бронирование изменено; nil поля не менялись
type BookingUpdated struct {
	BookingID       string     `json:"BookingId" validate:"required"`
	UserID          string     `json:"UserId,omitempty"`
	Comment         *string    `json:"Comment,omitempty"`
	Status          *string    `json:"Status,omitempty" validate:"omitempty,oneof=Pending Confirmed Cancelled"`
	BookingDateTime *time.Time `json:"BookingDateTime,omitempty"`
	UpdatedAt       time.Time  `json:"UpdatedAt"`
}

func (BookingUpdated) EventType() string      { return TypeBookingUpdated }
func (e BookingUpdated) PartitionKey() string { return e.BookingID }

// BookingCancelled бронирование отменено (запись сохраняется)
type BookingCancelled struct {
	BookingID               string    `json:"BookingId" validate:"required"`
	UserID                  string    `json:"UserId" validate:"required"`
	OriginalBookingDateTime time.Time `json:"OriginalBookingDateTime"`
	CancelledAt             time.Time `json:"CancelledAt"`
}

func (BookingCancelled) EventType() string      { return TypeBookingCancelled }
func (e BookingCancelled) PartitionKey() string { return e.BookingID }

// BookingDeleted бронирование удалено
type BookingDeleted struct {
	BookingID string    `json:"BookingId" validate:"required"`
	UserID    string    `json:"UserId" validate:"required"`
	DeletedAt time.Time `json:"DeletedAt"`
}

func (BookingDeleted) EventType() string      { return TypeBookingDeleted }
func (e BookingDeleted) PartitionKey() string { return e.BookingID }
