package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vladyslavplus/KosherClouds-sub002/services/user/internal/repository"
)

const uniqueViolation = "23505"

// Repository реализует UserRepository используя PostgreSQL
type Repository struct {
	pool *pgxpool.Pool
}

var _ repository.UserRepository = (*Repository)(nil)

// NewRepository создаёт новый PostgreSQL репозиторий
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{
		pool: pool,
	}
}

const selectUser = `SELECT id, email, user_name, phone_number, password_hash, created_at FROM users`

func scanUser(row pgx.Row) (repository.User, error) {
	var user repository.User
	var id uuid.UUID
	err := row.Scan(&id, &user.Email, &user.UserName, &user.PhoneNumber, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return repository.User{}, repository.ErrNotFound
		}
		return repository.User{}, err
	}
	user.ID = id.String()
	user.CreatedAt = user.CreatedAt.UTC()
	return user, nil
}

// CreateUser создаёт нового пользователя в PostgreSQL
func (r *Repository) CreateUser(ctx context.Context, user repository.User) error {
	userID, err := uuid.Parse(user.ID)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO users (id, email, user_name, phone_number, password_hash, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $6)`,
		userID, user.Email, user.UserName, user.PhoneNumber, user.PasswordHash, user.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return repository.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// GetByEmail получает пользователя по email без учёта регистра
func (r *Repository) GetByEmail(ctx context.Context, email string) (repository.User, error) {
	return scanUser(r.pool.QueryRow(ctx, selectUser+` WHERE lower(email) = lower($1)`, email))
}

// GetByID получает пользователя по ID
func (r *Repository) GetByID(ctx context.Context, userID string) (repository.User, error) {
	parsedUUID, err := uuid.Parse(userID)
	if err != nil {
		// не UUID: такого пользователя быть не может
		return repository.User{}, repository.ErrNotFound
	}
	return scanUser(r.pool.QueryRow(ctx, selectUser+` WHERE id = $1`, parsedUUID))
}

// UpdatePasswordHash меняет хэш пароля
func (r *Repository) UpdatePasswordHash(ctx context.Context, userID, passwordHash string) error {
	parsedUUID, err := uuid.Parse(userID)
	if err != nil {
		return repository.ErrNotFound
	}
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1`,
		parsedUUID, passwordHash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}
