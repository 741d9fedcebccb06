package postgres

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// Tests run in the package directory; the SQL lives next door.
var migrationGlob = filepath.Join("..", "migrations", "postgres", "*.sql")

// setupTestDB starts a throwaway Postgres with the audit schema applied.
// The container is removed when the test ends.
func setupTestDB(t *testing.T) *Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("postgres container test skipped with -short")
	}

	ctx := context.Background()
	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("operator"),
		tcpostgres.WithUsername("operator"),
		tcpostgres.WithPassword("operator"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		),
	)
	require.NoError(t, err, "start postgres")
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("terminate postgres: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := NewPool(ctx, dsn, WithMaxConns(4))
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	scripts, err := filepath.Glob(migrationGlob)
	require.NoError(t, err)
	require.NotEmpty(t, scripts, "no migrations under %s", migrationGlob)
	for _, path := range scripts { // Glob returns lexical order
		body, err := os.ReadFile(path)
		require.NoError(t, err)
		_, err = pool.Exec(ctx, string(body))
		require.NoError(t, err, "apply %s", filepath.Base(path))
	}
	return pool
}

func ptr[T any](v T) *T {
	return &v
}
