package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"

	_ "github.com/jackc/pgx/v5/stdlib" // драйвер "pgx" для database/sql (goose)
	"github.com/pressly/goose/v3"
)

// Up накатывает миграции goose из fsys (обычно embed.FS пакета migrations сервиса) на базу dsn
func Up(ctx context.Context, dsn string, fsys fs.FS) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("open db for migrations: %w", err)
	}
	defer db.Close()

	return UpDB(ctx, db, fsys)
}

// UpDB накатывает миграции на уже открытое соединение (используется в интеграционных тестах)
func UpDB(ctx context.Context, db *sql.DB, fsys fs.FS) error {
	provider, err := goose.NewProvider(goose.DialectPostgres, db, fsys)
	if err != nil {
		return fmt.Errorf("create goose provider: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}
