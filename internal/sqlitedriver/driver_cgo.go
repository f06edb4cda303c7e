//go:build cgo

package sqlitedriver

import (
	_ "github.com/mattn/go-sqlite3" // registers "sqlite3"
)

// Pure reports whether the pure-Go driver is in use.
const Pure = false
