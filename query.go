package arbor

import (
	"context"
	"time"

	"github.com/syssam/arbor/dialect/sql"
)

// Query is a fluent query over one entity definition. It accumulates
// clauses in a dialect/sql Selector and materializes row maps into
// entities, eager-loading any requested relation paths afterwards.
//
// A Query is single-use builder state; concurrent callers must each
// build their own.
type Query struct {
	client *Client
	def    *Definition
	sel    *sql.Selector
	withs  []string
	ttl    time.Duration // Remember TTL; zero disables the cache path
	err    error         // deferred construction error
}

func newQuery(c *Client, def *Definition) *Query {
	return &Query{
		client: c,
		def:    def,
		sel:    sql.Table(def.Table),
	}
}

// Select restricts the selected columns.
func (q *Query) Select(columns ...string) *Query {
	q.sel.Select(columns...)
	return q
}

// Where appends a basic AND predicate.
func (q *Query) Where(col, op string, v any) *Query {
	q.sel.Where(col, op, v)
	return q
}

// OrWhere appends a basic OR predicate.
func (q *Query) OrWhere(col, op string, v any) *Query {
	q.sel.OrWhere(col, op, v)
	return q
}

// WhereIn appends `col IN (...)`; an empty set matches nothing.
func (q *Query) WhereIn(col string, vs ...any) *Query {
	q.sel.WhereIn(col, vs...)
	return q
}

// WhereNotIn appends `col NOT IN (...)`.
func (q *Query) WhereNotIn(col string, vs ...any) *Query {
	q.sel.WhereNotIn(col, vs...)
	return q
}

// WhereNull appends `col IS NULL`.
func (q *Query) WhereNull(col string) *Query {
	q.sel.WhereNull(col)
	return q
}

// WhereNotNull appends `col IS NOT NULL`.
func (q *Query) WhereNotNull(col string) *Query {
	q.sel.WhereNotNull(col)
	return q
}

// WhereBetween appends `col BETWEEN ? AND ?`.
func (q *Query) WhereBetween(col string, lo, hi any) *Query {
	q.sel.WhereBetween(col, lo, hi)
	return q
}

// WhereRaw appends a raw predicate with bindings.
func (q *Query) WhereRaw(expr string, args ...any) *Query {
	q.sel.WhereRaw(expr, args...)
	return q
}

// Join appends an INNER JOIN.
func (q *Query) Join(table, on string) *Query {
	q.sel.Join(table, on)
	return q
}

// LeftJoin appends a LEFT JOIN.
func (q *Query) LeftJoin(table, on string) *Query {
	q.sel.LeftJoin(table, on)
	return q
}

// RightJoin appends a RIGHT JOIN.
func (q *Query) RightJoin(table, on string) *Query {
	q.sel.RightJoin(table, on)
	return q
}

// GroupBy appends GROUP BY columns.
func (q *Query) GroupBy(columns ...string) *Query {
	q.sel.GroupBy(columns...)
	return q
}

// Having appends a HAVING predicate.
func (q *Query) Having(col, op string, v any) *Query {
	q.sel.Having(col, op, v)
	return q
}

// OrderBy appends an ascending order term.
func (q *Query) OrderBy(col string) *Query {
	q.sel.OrderBy(col)
	return q
}

// OrderByDesc appends a descending order term.
func (q *Query) OrderByDesc(col string) *Query {
	q.sel.OrderByDesc(col)
	return q
}

// Limit sets the LIMIT clause.
func (q *Query) Limit(n int) *Query {
	q.sel.Limit(n)
	return q
}

// Offset sets the OFFSET clause.
func (q *Query) Offset(n int) *Query {
	q.sel.Offset(n)
	return q
}

// With requests eager loading of the given relation paths after the
// result set materializes. Paths may be dot-separated for nesting.
func (q *Query) With(paths ...string) *Query {
	q.withs = append(q.withs, paths...)
	return q
}

// Remember serves this query's rows from the client's result cache for
// ttl, keyed by the rendered SQL and bindings. No-op without a cache.
func (q *Query) Remember(ttl time.Duration) *Query {
	q.ttl = ttl
	return q
}

// Get executes the query and returns the materialized entities with any
// requested relations attached.
func (q *Query) Get(ctx context.Context) ([]*Entity, error) {
	if q.err != nil {
		return nil, q.err
	}
	rows, err := q.fetchRows(ctx)
	if err != nil {
		return nil, NewQueryError(q.def.Name, "select", err)
	}
	entities := make([]*Entity, len(rows))
	for i, row := range rows {
		entities[i] = newFromRow(q.def, row)
	}
	if len(q.withs) > 0 && len(entities) > 0 {
		if err := loadRelations(ctx, q.client, q.def, entities, q.withs); err != nil {
			return nil, err
		}
	}
	return entities, nil
}

func (q *Query) fetchRows(ctx context.Context) ([]map[string]any, error) {
	if q.ttl > 0 && q.client.cache != nil {
		return rememberRows(ctx, q.client, q.sel, q.ttl)
	}
	return q.client.query(ctx, q.sel)
}

// First returns the first matching entity, or nil when none matches.
func (q *Query) First(ctx context.Context) (*Entity, error) {
	q.sel.Limit(1)
	entities, err := q.Get(ctx)
	if err != nil {
		return nil, err
	}
	if len(entities) == 0 {
		return nil, nil
	}
	return entities[0], nil
}

// Find returns the entity with the given primary key, or nil when no
// row matches.
func (q *Query) Find(ctx context.Context, id any) (*Entity, error) {
	if q.err != nil {
		return nil, q.err
	}
	q.sel.Where(q.def.PrimaryKey, "=", id)
	return q.First(ctx)
}

// FindOrFail is the strict variant of Find: a missing row is a
// NotFoundError, distinct from an empty result set.
func (q *Query) FindOrFail(ctx context.Context, id any) (*Entity, error) {
	e, err := q.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, NewNotFoundErrorWithID(q.def.Name, id)
	}
	return e, nil
}

// Count executes a COUNT query over the accumulated predicates.
func (q *Query) Count(ctx context.Context) (int, error) {
	if q.err != nil {
		return 0, q.err
	}
	n, err := q.client.queryInt(ctx, q.sel.CountClone())
	if err != nil {
		return 0, NewQueryError(q.def.Name, "count", err)
	}
	return n, nil
}

// Exists reports whether at least one row matches.
func (q *Query) Exists(ctx context.Context) (bool, error) {
	n, err := q.Count(ctx)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ChunkFunc processes one page of entities. Returning false stops the
// iteration; an error aborts it and propagates to the caller.
type ChunkFunc func(entities []*Entity) (bool, error)

// Chunk fetches and processes the result set in pages of the given
// size. It is a cooperative pull loop driven entirely by the callback:
// a stop signal or a short page ends iteration, and a callback error
// aborts the remaining chunks with no recovery.
func (q *Query) Chunk(ctx context.Context, size int, fn ChunkFunc) error {
	if q.err != nil {
		return q.err
	}
	for page := 1; ; page++ {
		pageQ := &Query{
			client: q.client,
			def:    q.def,
			sel:    q.sel.Clone().Limit(size).Offset((page - 1) * size),
			withs:  q.withs,
		}
		entities, err := pageQ.Get(ctx)
		if err != nil {
			return err
		}
		if len(entities) == 0 {
			return nil
		}
		keep, err := fn(entities)
		if err != nil {
			return err
		}
		if !keep || len(entities) < size {
			return nil
		}
	}
}

// Insert inserts a single row built from the given values and returns
// the driver's last-insert id.
func (q *Query) Insert(ctx context.Context, values map[string]any) (int64, error) {
	if q.err != nil {
		return 0, q.err
	}
	cols := make([]string, 0, len(values))
	vals := make([]any, 0, len(values))
	for k, v := range values {
		cols = append(cols, k)
		vals = append(vals, v)
	}
	sortByColumns(cols, vals)
	res, err := q.client.exec(ctx, sql.Insert(q.def.Table).Columns(cols...).Values(vals...))
	if err != nil {
		return 0, NewMutationError(q.def.Name, "insert", err)
	}
	id, _ := res.LastInsertId()
	return id, nil
}

// Update applies the given column assignments to every row matching the
// accumulated predicates and returns the affected row count.
func (q *Query) Update(ctx context.Context, values map[string]any) (int64, error) {
	if q.err != nil {
		return 0, q.err
	}
	cols := make([]string, 0, len(values))
	vals := make([]any, 0, len(values))
	for k, v := range values {
		cols = append(cols, k)
		vals = append(vals, v)
	}
	sortByColumns(cols, vals)
	upd := sql.Update(q.def.Table)
	for i, col := range cols {
		upd.Set(col, vals[i])
	}
	if clause, wargs := q.sel.WhereClause(); clause != "" {
		upd.WhereRaw(clause, wargs...)
	}
	res, err := q.client.exec(ctx, upd)
	if err != nil {
		return 0, NewMutationError(q.def.Name, "update", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// Delete removes every row matching the accumulated predicates and
// returns the affected row count.
func (q *Query) Delete(ctx context.Context) (int64, error) {
	if q.err != nil {
		return 0, q.err
	}
	del := sql.Delete(q.def.Table)
	if clause, wargs := q.sel.WhereClause(); clause != "" {
		del.WhereRaw(clause, wargs...)
	}
	res, err := q.client.exec(ctx, del)
	if err != nil {
		return 0, NewMutationError(q.def.Name, "delete", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
