// Package pgtest поднимает PostgreSQL в testcontainers для интеграционных тестов репозиториев.
package pgtest

import (
	"context"
	"database/sql"
	"io/fs"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/vladyslavplus/KosherClouds-sub002/platform/migrate"
)

// Start запускает контейнер postgres:15-alpine, накатывает миграции из fsys и возвращает pool.
// Контейнер и pool закрываются через t.Cleanup.
func Start(t *testing.T, database string, fsys fs.FS) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:15-alpine"),
		postgres.WithDatabase(database),
		postgres.WithUsername("test_user"),
		postgres.WithPassword("test_password"),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, container.Terminate(context.Background()))
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := sql.Open("pgx", dsn)
	require.NoError(t, err)
	defer db.Close()

	// контейнер принимает соединения не сразу после старта
	var pingErr error
	for i := 0; i < 10; i++ {
		if pingErr = db.PingContext(ctx); pingErr == nil {
			break
		}
		time.Sleep(time.Second)
	}
	require.NoError(t, pingErr, "failed to ping database after retries")

	require.NoError(t, migrate.UpDB(ctx, db, fsys), "failed to run migrations")

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}
