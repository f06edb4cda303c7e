package pool

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"askdb/cli/internal/dsn"
)

func TestSQLitePoolInMemory(t *testing.T) {
	ctx := context.Background()
	p, err := DefaultFactory(ctx, "sqlite:///:memory:", NewParams(dsn.DefaultPoolOptions()))
	require.NoError(t, err)
	defer p.Close()

	require.NoError(t, QuickTest(ctx, p))

	_, err = p.Query(ctx, "CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT)")
	require.NoError(t, err)
	res, err := p.Query(ctx, "INSERT INTO users (name) VALUES ('ada'), ('grace')")
	require.NoError(t, err)
	assert.EqualValues(t, 2, res.RowsAffected)

	res, err = p.Query(ctx, "SELECT id, name FROM users ORDER BY id")
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name"}, res.Columns)
	require.Len(t, res.Values, 2)
	assert.Equal(t, "ada", res.Values[0][1])
}

func TestSQLitePoolFileSharedAcrossConnections(t *testing.T) {
	ctx := context.Background()
	url := "sqlite:///" + filepath.Join(t.TempDir(), "app.db")
	p, err := DefaultFactory(ctx, url, NewParams(dsn.DefaultPoolOptions()))
	require.NoError(t, err)
	defer p.Close()

	_, err = p.Query(ctx, "CREATE TABLE t (v INTEGER)")
	require.NoError(t, err)
	require.NoError(t, p.Ping(ctx))

	res, err := p.Query(ctx, "SELECT count(*) AS n FROM t")
	require.NoError(t, err)
	assert.Equal(t, []string{"n"}, res.Columns)
}

func TestSQLitePoolDriverError(t *testing.T) {
	ctx := context.Background()
	p, err := DefaultFactory(ctx, "sqlite://", NewParams(dsn.DefaultPoolOptions()))
	require.NoError(t, err)
	defer p.Close()

	_, err = p.Query(ctx, "SELECT * FROM missing_table")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing_table")
}

func TestApplyPgxParams(t *testing.T) {
	cfg, err := pgxpool.ParseConfig("postgresql://u@localhost:5432/app")
	require.NoError(t, err)

	p := NewParams(dsn.PoolOptions{MaxPoolSize: 2, MaxOverflow: 3, IdleTimeoutSeconds: 10, RecycleSeconds: -1, PreflightCheck: true})
	lifetime := cfg.MaxConnLifetime
	applyPgxParams(cfg, p)

	assert.EqualValues(t, 5, cfg.MaxConns)
	assert.Equal(t, p.IdleTimeout, cfg.MaxConnIdleTime)
	assert.Equal(t, lifetime, cfg.MaxConnLifetime)
	assert.NotNil(t, cfg.BeforeAcquire)
}

func TestDefaultFactoryRejectsBadURL(t *testing.T) {
	_, err := DefaultFactory(context.Background(), "redis://localhost", NewParams(dsn.DefaultPoolOptions()))
	require.Error(t, err)
}
