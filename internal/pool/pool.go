// Copyright (c) 2025 AskDB
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package pool builds connection pools for database targets and shares them process-wide.
//
// A Cache keys pools by canonical URL plus the sorted pool options, so every caller that
// asks for the same target with the same options receives the same Pool. Construction
// failures are returned to the caller and never cached.
package pool

import (
	"context"
	"fmt"

	"askdb/cli/internal/dsn"
)

// Rows is the materialized result of a statement.
type Rows struct {
	Columns      []string
	Values       [][]any
	RowsAffected int64
}

// Pool is a shared connection pool bound to one target.
type Pool interface {
	// Kind reports which database the pool talks to.
	Kind() dsn.Kind
	// Query borrows a connection, runs a single statement and materializes its rows.
	Query(ctx context.Context, sql string) (*Rows, error)
	// Ping checks that a connection can be borrowed and is alive.
	Ping(ctx context.Context) error
	Close()
}

// QuickTest borrows a connection and runs SELECT 1 against it.
func QuickTest(ctx context.Context, p Pool) error {
	rows, err := p.Query(ctx, "SELECT 1")
	if err != nil {
		return err
	}
	if len(rows.Values) != 1 {
		return fmt.Errorf("SELECT 1 returned %d rows", len(rows.Values))
	}
	return nil
}
