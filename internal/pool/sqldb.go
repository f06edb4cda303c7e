// Copyright (c) 2025 AskDB
// Licensed under the MIT License. See LICENSE file in the project root for details.

package pool

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"net"
	"net/url"

	"github.com/go-sql-driver/mysql"

	"askdb/cli/internal/dsn"
	"askdb/cli/internal/sqlitedriver"
)

// sqlPool serves MySQL and SQLite targets from a database/sql handle.
type sqlPool struct {
	kind      dsn.Kind
	db        *sql.DB
	preflight bool
}

func newMySQLPool(info *dsn.Info, p Params) (*sqlPool, error) {
	cfg := mysql.NewConfig()
	cfg.User = info.User
	cfg.Passwd = info.Password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(orDefault(info.Host, "localhost"), orDefault(info.Port, "3306"))
	cfg.DBName = info.Database

	// Re-parse so the driver interprets known parameters such as parseTime or tls.
	formatted := cfg.FormatDSN()
	if params := mergeParams(info, p.DriverArgs); len(params) > 0 {
		q := url.Values{}
		for k, v := range params {
			q.Set(k, v)
		}
		formatted += "?" + q.Encode()
	}
	parsed, err := mysql.ParseDSN(formatted)
	if err != nil {
		return nil, fmt.Errorf("invalid mysql options: %w", err)
	}
	connector, err := mysql.NewConnector(parsed)
	if err != nil {
		return nil, fmt.Errorf("failed to create mysql connector: %w", err)
	}

	db := sql.OpenDB(connector)
	applySQLParams(db, p)
	return &sqlPool{kind: dsn.KindMySQL, db: db, preflight: p.Preflight}, nil
}

func newSQLitePool(info *dsn.Info, p Params) (*sqlPool, error) {
	name := orDefault(info.Database, dsn.MemoryDatabase)
	if params := mergeParams(info, p.DriverArgs); len(params) > 0 {
		q := url.Values{}
		for k, v := range params {
			q.Set(k, v)
		}
		name += "?" + q.Encode()
	}

	db, err := sql.Open(sqlitedriver.DriverName, name)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	applySQLParams(db, p)
	if info.Database == "" || info.Database == dsn.MemoryDatabase {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxIdleTime(0)
		db.SetConnMaxLifetime(0)
	}
	return &sqlPool{kind: dsn.KindSQLite, db: db, preflight: p.Preflight}, nil
}

// applySQLParams copies pool parameters onto a database/sql handle.
func applySQLParams(db *sql.DB, p Params) {
	db.SetMaxOpenConns(p.MaxConns)
	db.SetMaxIdleConns(p.MaxIdle)
	if p.IdleTimeout > 0 {
		db.SetConnMaxIdleTime(p.IdleTimeout)
	}
	if p.RecycleSet {
		db.SetConnMaxLifetime(p.Recycle)
	}
}

func (p *sqlPool) Kind() dsn.Kind { return p.kind }

func (p *sqlPool) Query(ctx context.Context, query string) (*Rows, error) {
	conn, err := p.borrow(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	rows, err := conn.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	out := &Rows{Columns: cols, Values: [][]any{}}
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		for i, v := range vals {
			if b, ok := v.([]byte); ok {
				vals[i] = string(b)
			}
		}
		out.Values = append(out.Values, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Statements without a result set report affected rows through a zero-column query.
	if len(cols) == 0 {
		if n, ok := affectedRows(ctx, conn, p.kind); ok {
			out.RowsAffected = n
		}
	}
	return out, nil
}

// borrow checks out a connection. With preflight on, a connection that fails its ping
// is discarded and one fresh connection is tried.
func (p *sqlPool) borrow(ctx context.Context) (*sql.Conn, error) {
	conn, err := p.db.Conn(ctx)
	if err != nil || !p.preflight {
		return conn, err
	}
	if err := conn.PingContext(ctx); err == nil {
		return conn, nil
	}
	_ = conn.Raw(func(any) error { return driver.ErrBadConn })
	_ = conn.Close()

	conn, err = p.db.Conn(ctx)
	if err != nil {
		return nil, err
	}
	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return conn, nil
}

func affectedRows(ctx context.Context, conn *sql.Conn, kind dsn.Kind) (int64, bool) {
	q := "SELECT changes()"
	if kind == dsn.KindMySQL {
		q = "SELECT ROW_COUNT()"
	}
	var n int64
	if err := conn.QueryRowContext(ctx, q).Scan(&n); err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

func (p *sqlPool) Ping(ctx context.Context) error {
	conn, err := p.borrow(ctx)
	if err != nil {
		return err
	}
	return conn.Close()
}

func (p *sqlPool) Close() { _ = p.db.Close() }

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
