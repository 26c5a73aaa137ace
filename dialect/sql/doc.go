// Package sql provides the SQL fragment builders and the database/sql
// driver glue used by the arbor ORM.
//
// # Builders
//
// Selector, Inserter, Updater and Deleter accumulate clauses and render
// parameterized SQL text plus an ordered parameter list:
//
//	stmt, args := sql.Table("users").
//	    Select("id", "name").
//	    Where("age", ">=", 18).
//	    WhereIn("status", "active", "pending").
//	    OrderBy("name").
//	    Limit(10).
//	    Query()
//
// Every value-bearing clause appends its bindings in the same step it
// appends its SQL fragment, so the `?` placeholders and the parameter
// list can never drift out of order. User-supplied values always travel
// as bound parameters; identifiers and explicit Raw expressions do not.
//
// # Driver
//
// Driver adapts a *sql.DB to the dialect.Driver interface. OpenSQLite
// opens the supported engine and applies a fixed pragma set once at
// connection open.
package sql
