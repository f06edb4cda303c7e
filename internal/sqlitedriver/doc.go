// Package sqlitedriver registers a SQLite database/sql driver under the name
// "sqlite3". Builds with CGO use mattn/go-sqlite3; builds without CGO fall back
// to the pure-Go modernc.org/sqlite driver.
//
// Import this package for its side effects only:
//
//	import _ "askdb/cli/internal/sqlitedriver"
package sqlitedriver

// DriverName is the database/sql driver name both builds register.
const DriverName = "sqlite3"
