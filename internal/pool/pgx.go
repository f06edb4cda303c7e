// Copyright (c) 2025 AskDB
// Licensed under the MIT License. See LICENSE file in the project root for details.

package pool

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"askdb/cli/internal/dsn"
)

// pgxPool serves PostgreSQL targets from a pgxpool.Pool.
type pgxPool struct {
	pool *pgxpool.Pool
}

func newPgxPool(ctx context.Context, info *dsn.Info, p Params) (*pgxPool, error) {
	merged := *info
	merged.Params = mergeParams(info, p.DriverArgs)
	connString, err := dsn.NewPostgreSQLResolver().Normalize(&merged)
	if err != nil {
		return nil, err
	}

	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres URL: %w", err)
	}
	applyPgxParams(cfg, p)

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres connection pool: %w", err)
	}
	return &pgxPool{pool: pool}, nil
}

// applyPgxParams copies pool parameters onto a parsed pgxpool configuration.
func applyPgxParams(cfg *pgxpool.Config, p Params) {
	cfg.MaxConns = int32(p.MaxConns)
	if p.IdleTimeout > 0 {
		cfg.MaxConnIdleTime = p.IdleTimeout
	}
	if p.RecycleSet {
		cfg.MaxConnLifetime = p.Recycle
	}
	if p.Preflight {
		cfg.BeforeAcquire = func(ctx context.Context, conn *pgx.Conn) bool {
			return conn.Ping(ctx) == nil
		}
	}
}

func (p *pgxPool) Kind() dsn.Kind { return dsn.KindPostgres }

func (p *pgxPool) Query(ctx context.Context, sql string) (*Rows, error) {
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, sql)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fds := rows.FieldDescriptions()
	out := &Rows{Columns: make([]string, len(fds)), Values: [][]any{}}
	for i, fd := range fds {
		out.Columns[i] = fd.Name
	}
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, err
		}
		out.Values = append(out.Values, vals)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	out.RowsAffected = rows.CommandTag().RowsAffected()
	return out, nil
}

func (p *pgxPool) Ping(ctx context.Context) error { return p.pool.Ping(ctx) }

func (p *pgxPool) Close() { p.pool.Close() }
