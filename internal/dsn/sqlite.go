// Copyright (c) 2025 AskDB
// Licensed under the MIT License. See LICENSE file in the project root for details.

package dsn

import (
	"net/url"
	"strings"
)

// MemoryDatabase is the SQLite sentinel for a private in-memory database.
const MemoryDatabase = ":memory:"

// SQLiteResolver handles sqlite:///path URLs. Host, port and credentials are
// not part of a SQLite target.
type SQLiteResolver struct{}

// NewSQLiteResolver creates a new SQLite resolver.
func NewSQLiteResolver() *SQLiteResolver {
	return &SQLiteResolver{}
}

// Parse accepts sqlite://, sqlite:///relative.db, sqlite:////abs/path.db and
// sqlite:///:memory:. An empty path means an in-memory database.
func (r *SQLiteResolver) Parse(dsn string) (*Info, error) {
	if dsn == "" {
		return nil, NewParseError(dsn, "empty URL", "use sqlite:///path/to/file.db or sqlite:///:memory:")
	}
	if k, ok := DetectKind(dsn); !ok || k != KindSQLite {
		return nil, NewParseError(dsn, "missing or invalid scheme", "use sqlite:///path/to/file.db or sqlite:///:memory:")
	}

	rest := dsn[strings.Index(dsn, "://")+3:]
	info := &Info{Kind: KindSQLite, Params: make(map[string]string), Original: dsn}

	if q := strings.Index(rest, "?"); q != -1 {
		values, err := url.ParseQuery(rest[q+1:])
		if err != nil {
			return nil, NewParseError(dsn, "invalid query parameters", "")
		}
		for k, v := range values {
			if len(v) > 0 {
				info.Params[k] = v[0]
			}
		}
		rest = rest[:q]
	}

	// The authority part is always empty for SQLite, the path follows the third slash.
	if rest != "" && !strings.HasPrefix(rest, "/") {
		return nil, NewParseError(dsn, "unexpected host in SQLite URL", "use sqlite:///path/to/file.db")
	}
	info.Database = strings.TrimPrefix(rest, "/")
	if info.Database == "" {
		info.Database = MemoryDatabase
	}
	return info, nil
}

// Normalize renders info as sqlite:///<path>.
func (r *SQLiteResolver) Normalize(info *Info) (string, error) {
	if info == nil {
		return "", NewParseError("", "nil connection info", "")
	}
	database := info.Database
	if database == "" {
		database = MemoryDatabase
	}
	out := "sqlite:///" + database
	if len(info.Params) > 0 {
		q := url.Values{}
		for k, v := range info.Params {
			q.Set(k, v)
		}
		out += "?" + q.Encode()
	}
	return out, nil
}

// Validate checks that dsn is a SQLite URL.
func (r *SQLiteResolver) Validate(dsn string) error {
	_, err := r.Parse(dsn)
	return err
}
