package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/vladyslavplus/KosherClouds-sub002/services/user/internal/repository"
)

// ResetTokenRepository реализует ResetTokenRepository используя Redis string с TTL
type ResetTokenRepository struct {
	client *redis.Client
	logger *zap.Logger
}

// NewResetTokenRepository создаёт новый Redis reset token repository
func NewResetTokenRepository(client *redis.Client, logger *zap.Logger) *ResetTokenRepository {
	return &ResetTokenRepository{
		client: client,
		logger: logger,
	}
}

func tokenKey(token string) string {
	return fmt.Sprintf("password_reset:%s", token)
}

// Save сохраняет токен; SET NX не перезаписывает существующий токен
func (r *ResetTokenRepository) Save(ctx context.Context, token, userID string, ttl time.Duration) error {
	ok, err := r.client.SetNX(ctx, tokenKey(token), userID, ttl).Result()
	if err != nil {
		r.logger.Error("failed to save reset token in redis",
			zap.Error(err),
			zap.String("user_id", userID),
		)
		return fmt.Errorf("failed to save reset token: %w", err)
	}
	if !ok {
		return fmt.Errorf("reset token collision")
	}

	r.logger.Debug("reset token saved",
		zap.String("user_id", userID),
		zap.Duration("ttl", ttl),
	)
	return nil
}

// Consume читает и удаляет токен одной командой GETDEL
func (r *ResetTokenRepository) Consume(ctx context.Context, token string) (string, error) {
	userID, err := r.client.GetDel(ctx, tokenKey(token)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", repository.ErrTokenNotFound
		}
		r.logger.Error("failed to consume reset token from redis", zap.Error(err))
		return "", fmt.Errorf("failed to consume reset token: %w", err)
	}
	if userID == "" {
		return "", repository.ErrTokenNotFound
	}
	return userID, nil
}
