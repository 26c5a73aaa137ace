// Package migrate provides schema migrations: a fluent DDL blueprint
// and a runner that applies migrations in batches, recording each run
// in a bookkeeping table.
package migrate

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/syssam/arbor/dialect"
	"github.com/syssam/arbor/dialect/sql"
)

// migrationsTable is the bookkeeping table. Each applied migration
// records its batch number and the uuid of the run that applied it.
const migrationsTable = "migrations"

// Migration is one named, reversible schema change. Down may be nil
// for irreversible migrations; rolling one back is an error.
type Migration struct {
	Name string
	Up   func(ctx context.Context, conn dialect.ExecQuerier) error
	Down func(ctx context.Context, conn dialect.ExecQuerier) error
}

// Status describes one known migration's applied state.
type Status struct {
	Name    string
	Applied bool
	Batch   int
}

// Runner applies and rolls back migrations against a driver. Migrations
// run in registration order; each Up call groups the pending set into
// one batch so Rollback can undo exactly that set.
type Runner struct {
	drv        dialect.Driver
	log        *slog.Logger
	migrations []*Migration
}

// NewRunner returns a runner over the given driver. A nil logger
// defaults to slog's package-level logger.
func NewRunner(drv dialect.Driver, log *slog.Logger) *Runner {
	if log == nil {
		log = slog.Default()
	}
	return &Runner{drv: drv, log: log}
}

// Add registers migrations in execution order.
func (r *Runner) Add(ms ...*Migration) *Runner {
	r.migrations = append(r.migrations, ms...)
	return r
}

func (r *Runner) ensureTable(ctx context.Context) error {
	bp := NewBlueprint(migrationsTable)
	bp.Increments("id")
	bp.String("name").NotNull().Unique()
	bp.Integer("batch").NotNull()
	bp.String("run_id").NotNull()
	bp.String("applied_at").NotNull()
	stmt, _ := bp.Query()
	return r.drv.Exec(ctx, stmt, []any{}, nil)
}

// applied returns name -> batch for every recorded migration.
func (r *Runner) applied(ctx context.Context) (map[string]int, error) {
	stmt, args := sql.Table(migrationsTable).Select("name", "batch").OrderBy("id").Query()
	var rows sql.Rows
	if err := r.drv.Query(ctx, stmt, args, &rows); err != nil {
		return nil, err
	}
	maps, err := sql.ScanMaps(&rows)
	if err != nil {
		return nil, err
	}
	out := make(map[string]int, len(maps))
	for _, m := range maps {
		name, _ := m["name"].(string)
		batch, _ := m["batch"].(int64)
		out[name] = int(batch)
	}
	return out, nil
}

func (r *Runner) lastBatch(applied map[string]int) int {
	last := 0
	for _, b := range applied {
		if b > last {
			last = b
		}
	}
	return last
}

// Up applies every pending migration as one batch. Returns the number
// of migrations applied.
func (r *Runner) Up(ctx context.Context) (int, error) {
	if err := r.ensureTable(ctx); err != nil {
		return 0, fmt.Errorf("migrate: ensure bookkeeping table: %w", err)
	}
	applied, err := r.applied(ctx)
	if err != nil {
		return 0, fmt.Errorf("migrate: read applied migrations: %w", err)
	}
	batch := r.lastBatch(applied) + 1
	runID := uuid.NewString()
	n := 0
	for _, m := range r.migrations {
		if _, ok := applied[m.Name]; ok {
			continue
		}
		start := time.Now()
		if err := m.Up(ctx, r.drv); err != nil {
			return n, fmt.Errorf("migrate: %s: %w", m.Name, err)
		}
		if err := r.record(ctx, m.Name, batch, runID); err != nil {
			return n, fmt.Errorf("migrate: record %s: %w", m.Name, err)
		}
		r.log.Info("migrated", "name", m.Name, "batch", batch, "elapsed", time.Since(start))
		n++
	}
	if n == 0 {
		r.log.Info("nothing to migrate")
	}
	return n, nil
}

// Rollback undoes the most recent batch in reverse registration order.
// Returns the number of migrations rolled back.
func (r *Runner) Rollback(ctx context.Context) (int, error) {
	if err := r.ensureTable(ctx); err != nil {
		return 0, fmt.Errorf("migrate: ensure bookkeeping table: %w", err)
	}
	applied, err := r.applied(ctx)
	if err != nil {
		return 0, fmt.Errorf("migrate: read applied migrations: %w", err)
	}
	last := r.lastBatch(applied)
	if last == 0 {
		r.log.Info("nothing to roll back")
		return 0, nil
	}
	n := 0
	for i := len(r.migrations) - 1; i >= 0; i-- {
		m := r.migrations[i]
		if applied[m.Name] != last {
			continue
		}
		if m.Down == nil {
			return n, fmt.Errorf("migrate: %s is irreversible", m.Name)
		}
		if err := m.Down(ctx, r.drv); err != nil {
			return n, fmt.Errorf("migrate: rollback %s: %w", m.Name, err)
		}
		if err := r.forget(ctx, m.Name); err != nil {
			return n, fmt.Errorf("migrate: forget %s: %w", m.Name, err)
		}
		r.log.Info("rolled back", "name", m.Name, "batch", last)
		n++
	}
	return n, nil
}

// Status reports every registered migration with its applied state,
// in registration order.
func (r *Runner) Status(ctx context.Context) ([]Status, error) {
	if err := r.ensureTable(ctx); err != nil {
		return nil, fmt.Errorf("migrate: ensure bookkeeping table: %w", err)
	}
	applied, err := r.applied(ctx)
	if err != nil {
		return nil, fmt.Errorf("migrate: read applied migrations: %w", err)
	}
	out := make([]Status, 0, len(r.migrations))
	for _, m := range r.migrations {
		batch, ok := applied[m.Name]
		out = append(out, Status{Name: m.Name, Applied: ok, Batch: batch})
	}
	return out, nil
}

func (r *Runner) record(ctx context.Context, name string, batch int, runID string) error {
	stmt, args := sql.Insert(migrationsTable).
		Columns("name", "batch", "run_id", "applied_at").
		Values(name, batch, runID, time.Now().UTC().Format("2006-01-02 15:04:05")).
		Query()
	return r.drv.Exec(ctx, stmt, args, nil)
}

func (r *Runner) forget(ctx context.Context, name string) error {
	stmt, args := sql.Delete(migrationsTable).Where("name", "=", name).Query()
	return r.drv.Exec(ctx, stmt, args, nil)
}

// Exec is a convenience for raw DDL inside a migration body.
func Exec(ctx context.Context, conn dialect.ExecQuerier, stmt string) error {
	return conn.Exec(ctx, stmt, []any{}, nil)
}

// CreateTable builds and executes a blueprint inside a migration body.
func CreateTable(ctx context.Context, conn dialect.ExecQuerier, table string, fn func(*Blueprint)) error {
	bp := NewBlueprint(table)
	fn(bp)
	stmt, _ := bp.Query()
	return conn.Exec(ctx, stmt, []any{}, nil)
}
