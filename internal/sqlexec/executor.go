// Package sqlexec runs single SQL statements against a pooled connection and
// inspects database schemas for the SQL agent.
//
// Results are normalized into a Result that marshals to JSON with driver-specific
// values (UUID byte arrays, raw bytes) rendered as strings.
package sqlexec

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "askdb/cli/internal/errors"
	"askdb/cli/internal/logging"
	"askdb/cli/internal/pool"
)

// Result represents a normalized SQL result for JSON marshaling.
type Result struct {
	Columns      []string `json:"columns"`
	Rows         [][]any  `json:"rows"`
	RowsAffected int64    `json:"rows_affected,omitempty"`
	Error        string   `json:"error,omitempty"`
}

// MarshalJSON implements custom JSON marshaling for Result to handle driver types properly.
func (r Result) MarshalJSON() ([]byte, error) {
	type Alias Result
	a := Alias(r)

	if len(r.Rows) > 0 {
		serializableRows := make([][]any, len(r.Rows))
		for i, row := range r.Rows {
			serializableRows[i] = make([]any, len(row))
			for j, val := range row {
				serializableRows[i][j] = DisplayValue(val)
			}
		}
		a.Rows = serializableRows
	}
	return json.Marshal(a)
}

// DisplayValue converts driver values that do not render well into strings.
// 16-byte arrays are treated as UUIDs, other byte slices as hex.
func DisplayValue(val any) any {
	switch v := val.(type) {
	case [16]byte:
		return uuid.UUID(v).String()
	case []byte:
		if len(v) == 16 {
			return uuid.UUID(v).String()
		}
		return fmt.Sprintf("\\x%x", v)
	default:
		return v
	}
}

// Truncated returns a copy of r holding at most n rows, and whether rows were dropped.
func (r *Result) Truncated(n int) (*Result, bool) {
	if n <= 0 || len(r.Rows) <= n {
		return r, false
	}
	out := *r
	out.Rows = r.Rows[:n]
	return &out, true
}

// Executor executes SQL statements using a connection pool.
type Executor struct {
	// Pool is the shared connection pool for the target.
	Pool pool.Pool
	log  *zap.Logger
}

// New creates an Executor for a pool.
func New(p pool.Pool, log *zap.Logger) *Executor {
	return &Executor{Pool: p, log: logging.OrNop(log)}
}

// Run executes exactly one statement. Rows keep the order the server returned them in.
// On failure the returned Result carries the driver's error text and the error is an
// ExecFailed whose message is that same text.
func (e *Executor) Run(ctx context.Context, sql string) (*Result, error) {
	rows, err := e.Pool.Query(ctx, sql)
	if err != nil {
		e.log.Debug("statement failed", zap.String("kind", string(e.Pool.Kind())), zap.Error(err))
		return &Result{Columns: []string{}, Rows: [][]any{}, Error: err.Error()},
			apperrors.Wrap(apperrors.ExecFailed, err.Error(), err)
	}
	e.log.Debug("statement executed",
		zap.Int("columns", len(rows.Columns)),
		zap.Int("rows", len(rows.Values)),
		zap.Int64("rows_affected", rows.RowsAffected))
	return &Result{Columns: rows.Columns, Rows: rows.Values, RowsAffected: rows.RowsAffected}, nil
}

// ExecuteJSON runs a statement and returns the result as a JSON payload.
// Statement failures are reported inside the payload, not as an error.
func (e *Executor) ExecuteJSON(ctx context.Context, sql string) (string, error) {
	res, _ := e.Run(ctx, sql)
	b, err := res.MarshalJSON()
	if err != nil {
		return "", fmt.Errorf("marshal result: %w", err)
	}
	return string(b), nil
}
