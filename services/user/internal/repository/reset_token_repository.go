package repository

import (
	"context"
	"errors"
	"time"
)

// ResetTokenRepository одноразовые токены сброса пароля с TTL
type ResetTokenRepository interface {
	// Save сохраняет token -> userID на ttl
	Save(ctx context.Context, token, userID string, ttl time.Duration) error
	// Consume атомарно читает и удаляет токен.
	// Возвращает ErrTokenNotFound, если токен не найден, истёк или уже использован.
	Consume(ctx context.Context, token string) (userID string, err error)
}

// ErrTokenNotFound токен сброса не найден или истёк
var ErrTokenNotFound = errors.New("reset token not found")
