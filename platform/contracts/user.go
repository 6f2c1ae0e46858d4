package contracts

import "time"

// UserRegistered пользователь зарегистрирован
type UserRegistered struct {
	UserID      string    `json:"UserId" validate:"required"`
	Email       string    `json:"Email" validate:"required,email"`
	UserName    string    `json:"UserName"`
	PhoneNumber string    `json:"PhoneNumber,omitempty"`
	CreatedAt   time.Time `json:"CreatedAt"`
}

func (UserRegistered) EventType() string      { return TypeUserRegistered }
func (e UserRegistered) PartitionKey() string { return e.UserID }

// PasswordResetRequested запрошен сброс пароля
type PasswordResetRequested struct {
	UserID      string    `json:"UserId" validate:"required"`
	Email       string    `json:"Email" validate:"required,email"`
	UserName    string    `json:"UserName"`
	ResetToken  string    `json:"ResetToken" validate:"required"`
	ExpiresAt   time.Time `json:"ExpiresAt"`
	RequestedAt time.Time `json:"RequestedAt"`
}

func (PasswordResetRequested) EventType() string      { return TypePasswordResetRequested }
func (e PasswordResetRequested) PartitionKey() string { return e.UserID }
