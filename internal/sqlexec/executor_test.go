package sqlexec

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"askdb/cli/internal/dsn"
	apperrors "askdb/cli/internal/errors"
	"askdb/cli/internal/pool"
)

func newSQLitePool(t *testing.T) pool.Pool {
	t.Helper()
	p, err := pool.DefaultFactory(context.Background(), "sqlite:///:memory:", pool.NewParams(dsn.DefaultPoolOptions()))
	require.NoError(t, err)
	t.Cleanup(p.Close)

	for _, stmt := range []string{
		"CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT NOT NULL, email TEXT)",
		"INSERT INTO users (name, email) VALUES ('ada', 'ada@example.com'), ('grace', NULL), ('linus', 'l@example.com'), ('ken', 'k@example.com')",
		"CREATE TABLE orders (id INTEGER PRIMARY KEY, user_id INTEGER, total REAL)",
	} {
		_, err := p.Query(context.Background(), stmt)
		require.NoError(t, err)
	}
	return p
}

func TestExecutorRunPreservesOrder(t *testing.T) {
	e := New(newSQLitePool(t), nil)

	res, err := e.Run(context.Background(), "SELECT name FROM users ORDER BY id DESC")
	require.NoError(t, err)
	assert.Equal(t, []string{"name"}, res.Columns)
	require.Len(t, res.Rows, 4)
	assert.Equal(t, "ken", res.Rows[0][0])
	assert.Equal(t, "ada", res.Rows[3][0])
	assert.Empty(t, res.Error)
}

func TestExecutorRunDriverErrorVerbatim(t *testing.T) {
	e := New(newSQLitePool(t), nil)

	res, err := e.Run(context.Background(), "SELECT * FROM nope")
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ExecFailed))
	assert.Equal(t, res.Error, apperrors.Message(err))
	assert.Contains(t, res.Error, "no such table: nope")
	assert.Empty(t, res.Rows)
}

func TestExecuteJSON(t *testing.T) {
	e := New(newSQLitePool(t), nil)

	out, err := e.ExecuteJSON(context.Background(), "SELECT id, name FROM users WHERE id = 1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"columns":["id","name"],"rows":[[1,"ada"]]}`, out)

	out, err = e.ExecuteJSON(context.Background(), "SELEC broken")
	require.NoError(t, err)
	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &payload))
	assert.NotEmpty(t, payload["error"])
}

func TestDisplayValue(t *testing.T) {
	id := [16]byte{0x12, 0x3e, 0x45, 0x67, 0xe8, 0x9b, 0x12, 0xd3, 0xa4, 0x56, 0x42, 0x66, 0x14, 0x17, 0x40, 0x00}
	tests := []struct {
		name string
		in   any
		want any
	}{
		{"uuid array", id, "123e4567-e89b-12d3-a456-426614174000"},
		{"uuid bytes", id[:], "123e4567-e89b-12d3-a456-426614174000"},
		{"bytes", []byte{0xde, 0xad}, `\xdead`},
		{"nil", nil, nil},
		{"int", int64(7), int64(7)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DisplayValue(tt.in); got != tt.want {
				t.Errorf("DisplayValue() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestResultTruncated(t *testing.T) {
	r := &Result{Columns: []string{"n"}, Rows: [][]any{{1}, {2}, {3}}}

	out, cut := r.Truncated(2)
	assert.True(t, cut)
	assert.Len(t, out.Rows, 2)
	assert.Len(t, r.Rows, 3)

	out, cut = r.Truncated(0)
	assert.False(t, cut)
	assert.Same(t, r, out)
}
