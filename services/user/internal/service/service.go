package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/vladyslavplus/KosherClouds-sub002/platform/contracts"
	"github.com/vladyslavplus/KosherClouds-sub002/platform/eventbus"
	"github.com/vladyslavplus/KosherClouds-sub002/platform/observability"
	"github.com/vladyslavplus/KosherClouds-sub002/services/user/internal/repository"
)

const minPasswordLength = 6

var (
	// ErrInvalidInput некорректные входные данные
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidResetToken токен сброса не найден, истёк или уже использован
	ErrInvalidResetToken = errors.New("invalid or expired reset token")
	// ErrEventNotPublished изменение сохранено, но событие не опубликовано
	ErrEventNotPublished = errors.New("event not published")
)

// Service содержит бизнес-логику работы с пользователями
type Service struct {
	logger    *zap.Logger
	repo      repository.UserRepository
	tokens    repository.ResetTokenRepository
	publisher eventbus.Publisher
	resetTTL  time.Duration
	hashCost  int
	now       func() time.Time
	newToken  func() string
}

// NewService создаёт новый экземпляр Service
func NewService(logger *zap.Logger, repo repository.UserRepository, tokens repository.ResetTokenRepository, publisher eventbus.Publisher, resetTTL time.Duration) *Service {
	return &Service{
		logger:    logger,
		repo:      repo,
		tokens:    tokens,
		publisher: publisher,
		resetTTL:  resetTTL,
		hashCost:  bcrypt.DefaultCost,
		now:       func() time.Time { return time.Now().UTC() },
		newToken:  func() string { return strings.ReplaceAll(uuid.NewString(), "-", "") },
	}
}

// RegisterInput содержит входные данные для регистрации пользователя
type RegisterInput struct {
	Email       string
	UserName    string
	PhoneNumber string
	Password    string
}

// PublicProfile данные пользователя, доступные другим сервисам
type PublicProfile struct {
	UserID      string
	Email       string
	UserName    string
	PhoneNumber string
}

// Register регистрирует нового пользователя и публикует user.registered
func (s *Service) Register(ctx context.Context, input RegisterInput) (PublicProfile, error) {
	email := strings.TrimSpace(input.Email)
	if email == "" || !strings.Contains(email, "@") {
		return PublicProfile{}, fmt.Errorf("%w: valid email is required", ErrInvalidInput)
	}
	if len(input.Password) < minPasswordLength {
		return PublicProfile{}, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPasswordLength)
	}

	// Хэшируем пароль через bcrypt
	passwordHash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.hashCost)
	if err != nil {
		s.logger.Error("failed to hash password", zap.Error(err))
		return PublicProfile{}, fmt.Errorf("failed to hash password: %w", err)
	}

	user := repository.User{
		ID:           uuid.NewString(),
		Email:        email,
		UserName:     input.UserName,
		PhoneNumber:  input.PhoneNumber,
		PasswordHash: string(passwordHash),
		CreatedAt:    s.now(),
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			return PublicProfile{}, err
		}
		s.logger.Error("failed to create user", zap.Error(err))
		return PublicProfile{}, fmt.Errorf("failed to create user: %w", err)
	}

	observability.L(ctx, s.logger).Info("user registered successfully", zap.String("user_id", user.ID))

	profile := toProfile(user)
	return profile, s.publish(ctx, contracts.UserRegistered{
		UserID:      user.ID,
		Email:       user.Email,
		UserName:    user.UserName,
		PhoneNumber: user.PhoneNumber,
		CreatedAt:   user.CreatedAt,
	})
}

// RequestPasswordReset выдаёт одноразовый токен и публикует password_reset.requested.
// Для неизвестного email возвращает nil и ничего не публикует.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	if strings.TrimSpace(email) == "" {
		return fmt.Errorf("%w: email is required", ErrInvalidInput)
	}

	user, err := s.repo.GetByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, repository.ErrNotFound) {
		observability.L(ctx, s.logger).Info("password reset requested for unknown email")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}

	token := s.newToken()
	if err := s.tokens.Save(ctx, token, user.ID, s.resetTTL); err != nil {
		return err
	}

	now := s.now()
	return s.publish(ctx, contracts.PasswordResetRequested{
		UserID:      user.ID,
		Email:       user.Email,
		UserName:    user.UserName,
		ResetToken:  token,
		ExpiresAt:   now.Add(s.resetTTL),
		RequestedAt: now,
	})
}

// ConfirmPasswordReset меняет пароль по токену; токен сгорает при первом предъявлении
func (s *Service) ConfirmPasswordReset(ctx context.Context, token, newPassword string) error {
	if token == "" {
		return fmt.Errorf("%w: token is required", ErrInvalidInput)
	}
	if len(newPassword) < minPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPasswordLength)
	}

	userID, err := s.tokens.Consume(ctx, token)
	if errors.Is(err, repository.ErrTokenNotFound) {
		return ErrInvalidResetToken
	}
	if err != nil {
		return err
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.hashCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.repo.UpdatePasswordHash(ctx, userID, string(passwordHash)); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidResetToken
		}
		return fmt.Errorf("failed to update password: %w", err)
	}

	observability.L(ctx, s.logger).Info("password reset completed", zap.String("user_id", userID))
	return nil
}

// VerifyPassword сравнивает пароль с сохранённым хэшем
func (s *Service) VerifyPassword(ctx context.Context, email, password string) (PublicProfile, error) {
	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return PublicProfile{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return PublicProfile{}, fmt.Errorf("%w: invalid email or password", ErrInvalidInput)
	}
	return toProfile(user), nil
}

// GetPublicProfile получает публичные данные пользователя по ID
func (s *Service) GetPublicProfile(ctx context.Context, userID string) (PublicProfile, error) {
	if userID == "" {
		return PublicProfile{}, fmt.Errorf("%w: user_id is required", ErrInvalidInput)
	}
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return PublicProfile{}, err
	}
	return toProfile(user), nil
}

func toProfile(u repository.User) PublicProfile {
	return PublicProfile{
		UserID:      u.ID,
		Email:       u.Email,
		UserName:    u.UserName,
		PhoneNumber: u.PhoneNumber,
	}
}

func (s *Service) publish(ctx context.Context, evt eventbus.Event) error {
	if err := s.publisher.Publish(ctx, evt); err != nil {
		observability.L(ctx, s.logger).Error("failed to publish user event",
			zap.Error(err),
			zap.String("event_type", evt.EventType()),
			zap.String("user_id", evt.PartitionKey()),
		)
		return fmt.Errorf("%w: %v", ErrEventNotPublished, err)
	}
	return nil
}
