//go:build !cgo

package sqlitedriver

import (
	"database/sql"

	"modernc.org/sqlite"
)

func init() {
	sql.Register(DriverName, &sqlite.Driver{})
}

// Pure reports whether the pure-Go driver is in use.
const Pure = true
