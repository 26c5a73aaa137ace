// Package dialect provides the storage-engine abstraction for the arbor ORM.
//
// The core never talks to database/sql directly. It emits SQL text plus an
// ordered parameter list and hands both to a Driver:
//
//	type Driver interface {
//	    Exec(ctx context.Context, query string, args, v any) error
//	    Query(ctx context.Context, query string, args, v any) error
//	    Tx(ctx context.Context) (Tx, error)
//	    Close() error
//	    Dialect() string
//	}
//
// The Tx interface extends ExecQuerier with Commit and Rollback. Transaction
// scope is the caller's responsibility; the core issues single statements.
//
// Opening a connection:
//
//	import (
//	    "github.com/syssam/arbor/dialect"
//	    "github.com/syssam/arbor/dialect/sql"
//	)
//
//	drv, err := sql.Open(dialect.SQLite, "file:arbor.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer drv.Close()
//
// Sub-packages:
//
//   - dialect/sql: SQL fragment builders and the database/sql driver glue.
package dialect
