package postgres

import (
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithMaxConns(t *testing.T) {
	cfg, err := pgxpool.ParseConfig("postgres://operator@localhost:5432/operator")
	require.NoError(t, err)
	def := cfg.MaxConns

	WithMaxConns(0)(cfg)
	assert.Equal(t, def, cfg.MaxConns, "zero keeps the default")

	WithMaxConns(7)(cfg)
	assert.EqualValues(t, 7, cfg.MaxConns)
}

func TestNewPool_AppliesOptions(t *testing.T) {
	pool := setupTestDB(t)
	assert.EqualValues(t, 4, pool.Config().MaxConns)
}
