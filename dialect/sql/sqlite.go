package sql

import (
	"context"
	"fmt"
	"strings"

	"github.com/syssam/arbor/dialect"
	_ "modernc.org/sqlite"
)

// DefaultPragmas is the engine tuning applied once at connection open.
// Pragmas are not re-specifiable per query.
var DefaultPragmas = map[string]string{
	"foreign_keys": "ON",
	"journal_mode": "WAL",
	"busy_timeout": "10000",
}

// OpenSQLite opens a SQLite database at the given path (":memory:" for an
// in-memory database) and applies the pragma set once. A nil pragma map
// selects DefaultPragmas.
func OpenSQLite(path string, pragmas map[string]string) (*Driver, error) {
	drv, err := Open(dialect.SQLite, path)
	if err != nil {
		return nil, err
	}
	db := drv.DB()
	// An in-memory database exists per connection; pin the pool to a
	// single connection so every statement sees the same database.
	if path == ":memory:" || strings.Contains(path, "mode=memory") {
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("dialect/sql: ping sqlite: %w", err)
	}
	if pragmas == nil {
		pragmas = DefaultPragmas
	}
	ctx := context.Background()
	for name, value := range pragmas {
		if _, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA %s = %s", name, value)); err != nil {
			db.Close()
			return nil, fmt.Errorf("dialect/sql: pragma %s: %w", name, err)
		}
	}
	return drv, nil
}
