// Copyright (c) 2025 AskDB
// Licensed under the MIT License. See LICENSE file in the project root for details.

package sqlexec

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"askdb/cli/internal/dsn"
	"askdb/cli/internal/pool"
)

// SampleRows is the number of example rows included in a table description.
const SampleRows = 3

// Column describes one table column.
type Column struct {
	Name     string
	Type     string
	Nullable bool
}

// TableInfo holds the structure of a table and a few sample rows.
type TableInfo struct {
	Name          string
	Columns       []Column
	SampleColumns []string
	SampleRows    [][]any
}

// String renders the table as a CREATE TABLE statement followed by its sample rows.
func (t *TableInfo) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE %s (\n", t.Name)
	for i, c := range t.Columns {
		b.WriteString("\t" + c.Name + " " + c.Type)
		if !c.Nullable {
			b.WriteString(" NOT NULL")
		}
		if i < len(t.Columns)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	b.WriteString(")\n\n/*\n")
	fmt.Fprintf(&b, "%d rows from %s table:\n", SampleRows, t.Name)
	b.WriteString(strings.Join(t.SampleColumns, "\t") + "\n")
	for _, row := range t.SampleRows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = fmt.Sprint(DisplayValue(v))
		}
		b.WriteString(strings.Join(cells, "\t") + "\n")
	}
	b.WriteString("*/")
	return b.String()
}

// Inspector lists and describes tables, caching what it has read.
type Inspector struct {
	pool pool.Pool

	mu     sync.RWMutex
	tables []string
	cache  map[string]*TableInfo
}

// NewInspector creates an Inspector over a pool.
func NewInspector(p pool.Pool) *Inspector {
	return &Inspector{pool: p, cache: make(map[string]*TableInfo)}
}

// ListTables returns the user tables of the current database or schema, sorted by name.
func (si *Inspector) ListTables(ctx context.Context) ([]string, error) {
	si.mu.RLock()
	if si.tables != nil {
		out := slices.Clone(si.tables)
		si.mu.RUnlock()
		return out, nil
	}
	si.mu.RUnlock()

	var q string
	switch si.pool.Kind() {
	case dsn.KindPostgres:
		q = `SELECT table_name FROM information_schema.tables
			WHERE table_schema = current_schema() AND table_type = 'BASE TABLE'
			ORDER BY table_name`
	case dsn.KindMySQL:
		q = `SELECT table_name FROM information_schema.tables
			WHERE table_schema = DATABASE() AND table_type = 'BASE TABLE'
			ORDER BY table_name`
	default:
		q = `SELECT name FROM sqlite_master
			WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
			ORDER BY name`
	}

	rows, err := si.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	tables := make([]string, 0, len(rows.Values))
	for _, r := range rows.Values {
		if len(r) > 0 {
			tables = append(tables, fmt.Sprint(r[0]))
		}
	}

	si.mu.Lock()
	si.tables = tables
	si.mu.Unlock()
	return slices.Clone(tables), nil
}

// DescribeTable returns the columns and up to SampleRows rows of a table.
func (si *Inspector) DescribeTable(ctx context.Context, table string) (*TableInfo, error) {
	si.mu.RLock()
	if info, ok := si.cache[table]; ok {
		si.mu.RUnlock()
		return info, nil
	}
	si.mu.RUnlock()

	tables, err := si.ListTables(ctx)
	if err != nil {
		return nil, err
	}
	if !slices.Contains(tables, table) {
		return nil, fmt.Errorf("table %q not found in database", table)
	}

	info := &TableInfo{Name: table}
	if info.Columns, err = si.loadColumns(ctx, table); err != nil {
		return nil, err
	}

	sample, err := si.pool.Query(ctx, fmt.Sprintf("SELECT * FROM %s LIMIT %d", si.quoteIdent(table), SampleRows))
	if err != nil {
		return nil, err
	}
	info.SampleColumns = sample.Columns
	info.SampleRows = sample.Values

	si.mu.Lock()
	si.cache[table] = info
	si.mu.Unlock()
	return info, nil
}

// ClearCache forgets every table read so far.
func (si *Inspector) ClearCache() {
	si.mu.Lock()
	defer si.mu.Unlock()
	si.tables = nil
	si.cache = make(map[string]*TableInfo)
}

func (si *Inspector) loadColumns(ctx context.Context, table string) ([]Column, error) {
	var q string
	switch si.pool.Kind() {
	case dsn.KindPostgres:
		q = fmt.Sprintf(`SELECT column_name, data_type, is_nullable FROM information_schema.columns
			WHERE table_schema = current_schema() AND table_name = %s
			ORDER BY ordinal_position`, quoteLiteral(table))
	case dsn.KindMySQL:
		q = fmt.Sprintf(`SELECT column_name, column_type, is_nullable FROM information_schema.columns
			WHERE table_schema = DATABASE() AND table_name = %s
			ORDER BY ordinal_position`, quoteLiteral(table))
	default:
		return si.loadSQLiteColumns(ctx, table)
	}

	rows, err := si.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	cols := make([]Column, 0, len(rows.Values))
	for _, r := range rows.Values {
		if len(r) < 3 {
			continue
		}
		cols = append(cols, Column{
			Name:     fmt.Sprint(r[0]),
			Type:     strings.ToUpper(fmt.Sprint(r[1])),
			Nullable: strings.EqualFold(fmt.Sprint(r[2]), "YES"),
		})
	}
	return cols, nil
}

// loadSQLiteColumns reads PRAGMA table_info: cid, name, type, notnull, dflt_value, pk.
func (si *Inspector) loadSQLiteColumns(ctx context.Context, table string) ([]Column, error) {
	rows, err := si.pool.Query(ctx, fmt.Sprintf("PRAGMA table_info(%s)", si.quoteIdent(table)))
	if err != nil {
		return nil, err
	}
	cols := make([]Column, 0, len(rows.Values))
	for _, r := range rows.Values {
		if len(r) < 4 {
			continue
		}
		cols = append(cols, Column{
			Name:     fmt.Sprint(r[1]),
			Type:     strings.ToUpper(fmt.Sprint(r[2])),
			Nullable: fmt.Sprint(r[3]) == "0",
		})
	}
	return cols, nil
}

func (si *Inspector) quoteIdent(name string) string {
	if si.pool.Kind() == dsn.KindMySQL {
		return "`" + strings.ReplaceAll(name, "`", "``") + "`"
	}
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
