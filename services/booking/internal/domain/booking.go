// Package domain модель бронирования и правила переходов статуса.
package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/vladyslavplus/KosherClouds-sub002/platform/contracts"
)

// Status статус бронирования
type Status string

const (
	StatusPending   Status = contracts.BookingStatusPending
	StatusConfirmed Status = contracts.BookingStatusConfirmed
	StatusCancelled Status = contracts.BookingStatusCancelled
)

// Ограничения на число гостей
const (
	MinGuests = 1
	MaxGuests = 50
)

var (
	// ErrInvalidTransition переход статуса запрещён
	ErrInvalidTransition = errors.New("invalid booking status transition")
	// ErrNotInFuture время бронирования не в будущем
	ErrNotInFuture = errors.New("booking date time must be in the future")
	// ErrInvalidGuests число гостей вне допустимого диапазона
	ErrInvalidGuests = errors.New("invalid number of guests")
	// ErrBookingCancelled отменённое бронирование не редактируется
	ErrBookingCancelled = errors.New("booking is cancelled")
)

var transitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCancelled},
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

// Transition проверяет переход и возвращает новый статус
func Transition(from, to Status) (Status, error) {
	if !CanTransition(from, to) {
		return from, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return to, nil
}

// ValidateDateTime время бронирования должно быть строго позже now
func ValidateDateTime(at, now time.Time) error {
	if !at.After(now) {
		return ErrNotInFuture
	}
	return nil
}

// ValidateGuests проверяет число гостей
func ValidateGuests(n int) error {
	if n < MinGuests || n > MaxGuests {
		return fmt.Errorf("%w: %d, must be in [%d, %d]", ErrInvalidGuests, n, MinGuests, MaxGuests)
	}
	return nil
}

// Booking бронирование столика
type Booking struct {
	ID              string
	UserID          string
	BookingDateTime time.Time
	NumberOfGuests  int
	Comment         string
	Status          Status
	CreatedAt       time.Time
	UpdatedAt       time.Time
	// Version растёт при каждом изменении, для optimistic concurrency
	Version int64
}
