package repository

import (
	"context"
	"errors"
	"time"
)

// User доменная модель пользователя
type User struct {
	ID           string
	Email        string
	UserName     string
	PhoneNumber  string
	PasswordHash string
	CreatedAt    time.Time
}

// UserRepository хранилище пользователей
type UserRepository interface {
	// CreateUser возвращает ErrAlreadyExists, если email уже занят (без учёта регистра)
	CreateUser(ctx context.Context, user User) error
	// GetByEmail возвращает ErrNotFound, если пользователь не найден
	GetByEmail(ctx context.Context, email string) (User, error)
	// GetByID возвращает ErrNotFound, если пользователь не найден
	GetByID(ctx context.Context, userID string) (User, error)
	// UpdatePasswordHash меняет хэш пароля; ErrNotFound, если пользователя нет
	UpdatePasswordHash(ctx context.Context, userID, passwordHash string) error
}

// ErrNotFound возвращается, когда пользователь не найден в хранилище
var ErrNotFound = errors.New("user not found")

// ErrAlreadyExists возвращается, когда пользователь с таким email уже существует
var ErrAlreadyExists = errors.New("user already exists")
