// Copyright (c) 2025 AskDB
// Licensed under the MIT License. See LICENSE file in the project root for details.

package pool

import (
	"context"

	"askdb/cli/internal/dsn"
)

// DefaultFactory dispatches on the URL scheme to the matching driver.
func DefaultFactory(ctx context.Context, url string, p Params) (Pool, error) {
	info, err := dsn.ParseInfo(url)
	if err != nil {
		return nil, err
	}
	switch info.Kind {
	case dsn.KindPostgres:
		return newPgxPool(ctx, info, p)
	case dsn.KindMySQL:
		return newMySQLPool(info, p)
	case dsn.KindSQLite:
		return newSQLitePool(info, p)
	default:
		return nil, &dsn.UnsupportedKindError{Name: string(info.Kind)}
	}
}

// mergeParams returns the URL query parameters overlaid with the extra driver arguments.
func mergeParams(info *dsn.Info, extra map[string]string) map[string]string {
	out := make(map[string]string, len(info.Params)+len(extra))
	for k, v := range info.Params {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}
