package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/vladyslavplus/KosherClouds-sub002/services/user/internal/repository"
)

// UserRepository реализует UserRepository в памяти процесса
type UserRepository struct {
	mu      sync.RWMutex
	users   map[string]repository.User
	byEmail map[string]string
}

// NewUserRepository создаёт пустой репозиторий пользователей
func NewUserRepository() *UserRepository {
	return &UserRepository{
		users:   make(map[string]repository.User),
		byEmail: make(map[string]string),
	}
}

// CreateUser сохраняет пользователя
func (r *UserRepository) CreateUser(ctx context.Context, user repository.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	email := strings.ToLower(user.Email)
	if _, exists := r.byEmail[email]; exists {
		return repository.ErrAlreadyExists
	}
	r.users[user.ID] = user
	r.byEmail[email] = user.ID
	return nil
}

// GetByEmail получает пользователя по email без учёта регистра
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (repository.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, exists := r.byEmail[strings.ToLower(email)]
	if !exists {
		return repository.User{}, repository.ErrNotFound
	}
	return r.users[id], nil
}

// GetByID получает пользователя по ID
func (r *UserRepository) GetByID(ctx context.Context, userID string) (repository.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, exists := r.users[userID]
	if !exists {
		return repository.User{}, repository.ErrNotFound
	}
	return user, nil
}

// UpdatePasswordHash меняет хэш пароля
func (r *UserRepository) UpdatePasswordHash(ctx context.Context, userID, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, exists := r.users[userID]
	if !exists {
		return repository.ErrNotFound
	}
	user.PasswordHash = passwordHash
	r.users[userID] = user
	return nil
}

type tokenEntry struct {
	userID    string
	expiresAt time.Time
}

// ResetTokenRepository реализует ResetTokenRepository в памяти процесса
type ResetTokenRepository struct {
	mu     sync.Mutex
	tokens map[string]tokenEntry
	now    func() time.Time
}

// NewResetTokenRepository создаёт пустое хранилище токенов
func NewResetTokenRepository() *ResetTokenRepository {
	return &ResetTokenRepository{tokens: make(map[string]tokenEntry), now: time.Now}
}

// Save сохраняет токен на ttl
func (r *ResetTokenRepository) Save(ctx context.Context, token, userID string, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens[token] = tokenEntry{userID: userID, expiresAt: r.now().Add(ttl)}
	return nil
}

// Consume возвращает и удаляет живой токен
func (r *ResetTokenRepository) Consume(ctx context.Context, token string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, exists := r.tokens[token]
	delete(r.tokens, token)
	if !exists || !r.now().Before(entry.expiresAt) {
		return "", repository.ErrTokenNotFound
	}
	return entry.userID, nil
}
