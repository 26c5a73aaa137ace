package sql

import (
	"fmt"
	"strings"
)

// Querier is the interface implemented by all statement builders.
// Query returns the rendered SQL text and the parameter list bound to it.
// The number of `?` placeholders in the text always equals len(args),
// in matching order.
type Querier interface {
	Query() (string, []any)
}

// Expr is a raw SQL expression that bypasses parameter binding.
// Callers are trusted to supply safe SQL; values that originate from
// users must go through the regular binding path instead.
type Expr struct {
	S    string
	Args []any
}

// Raw returns a raw SQL expression with optional bound arguments.
func Raw(s string, args ...any) Expr {
	return Expr{S: s, Args: args}
}

// Query returns the expression text and arguments as-is, making Expr
// usable wherever a rendered statement is expected.
func (e Expr) Query() (string, []any) { return e.S, e.Args }

// predicate kinds. Each value-bearing predicate appends its bindings in
// the same step it appends its SQL fragment; the two never drift apart.
type cond struct {
	or   bool // OR connective; AND otherwise
	sql  string
	args []any
}

type join struct {
	kind  string // "JOIN", "LEFT JOIN", "RIGHT JOIN"
	table string
	on    string
}

// Selector builds a SELECT statement. The zero value is not usable;
// construct with Select or Table.
type Selector struct {
	columns  []string
	distinct bool
	from     string
	joins    []join
	wheres   []cond
	groupBy  []string
	havings  []cond
	orderBy  []string
	limit    *int
	offset   *int
}

// Select returns a Selector with the given result columns.
func Select(columns ...string) *Selector {
	return (&Selector{}).Select(columns...)
}

// Table returns a Selector for the given table.
func Table(name string) *Selector {
	return &Selector{from: name}
}

// Select replaces the result columns of the statement.
func (s *Selector) Select(columns ...string) *Selector {
	s.columns = columns
	return s
}

// Columns returns the currently selected columns.
func (s *Selector) Columns() []string { return s.columns }

// TableName returns the FROM table of the statement.
func (s *Selector) TableName() string { return s.from }

// Distinct marks the statement as SELECT DISTINCT.
func (s *Selector) Distinct() *Selector {
	s.distinct = true
	return s
}

// From sets the FROM table of the statement.
func (s *Selector) From(table string) *Selector {
	s.from = table
	return s
}

// Where appends a basic AND predicate `col op ?`.
func (s *Selector) Where(col, op string, v any) *Selector {
	s.wheres = append(s.wheres, basicCond(false, col, op, v))
	return s
}

// OrWhere appends a basic OR predicate `col op ?`.
func (s *Selector) OrWhere(col, op string, v any) *Selector {
	s.wheres = append(s.wheres, basicCond(true, col, op, v))
	return s
}

// WhereIn appends `col IN (?, ...)`. An empty value set renders the
// always-false predicate `1 = 0` so the semantics stay "matches nothing"
// instead of producing invalid SQL.
func (s *Selector) WhereIn(col string, vs ...any) *Selector {
	s.wheres = append(s.wheres, inCond(false, col, false, vs))
	return s
}

// OrWhereIn appends an OR variant of WhereIn.
func (s *Selector) OrWhereIn(col string, vs ...any) *Selector {
	s.wheres = append(s.wheres, inCond(true, col, false, vs))
	return s
}

// WhereNotIn appends `col NOT IN (?, ...)`. An empty value set renders
// the always-true predicate `1 = 1` (everything matches "not in nothing").
func (s *Selector) WhereNotIn(col string, vs ...any) *Selector {
	s.wheres = append(s.wheres, inCond(false, col, true, vs))
	return s
}

// WhereNull appends `col IS NULL`.
func (s *Selector) WhereNull(col string) *Selector {
	s.wheres = append(s.wheres, cond{sql: col + " IS NULL"})
	return s
}

// OrWhereNull appends an OR variant of WhereNull.
func (s *Selector) OrWhereNull(col string) *Selector {
	s.wheres = append(s.wheres, cond{or: true, sql: col + " IS NULL"})
	return s
}

// WhereNotNull appends `col IS NOT NULL`.
func (s *Selector) WhereNotNull(col string) *Selector {
	s.wheres = append(s.wheres, cond{sql: col + " IS NOT NULL"})
	return s
}

// WhereBetween appends `col BETWEEN ? AND ?`.
func (s *Selector) WhereBetween(col string, lo, hi any) *Selector {
	s.wheres = append(s.wheres, cond{sql: col + " BETWEEN ? AND ?", args: []any{lo, hi}})
	return s
}

// WhereRaw appends a raw predicate with its bindings.
func (s *Selector) WhereRaw(expr string, args ...any) *Selector {
	s.wheres = append(s.wheres, cond{sql: expr, args: args})
	return s
}

// OrWhereRaw appends an OR variant of WhereRaw.
func (s *Selector) OrWhereRaw(expr string, args ...any) *Selector {
	s.wheres = append(s.wheres, cond{or: true, sql: expr, args: args})
	return s
}

// Join appends an INNER JOIN clause.
func (s *Selector) Join(table, on string) *Selector {
	s.joins = append(s.joins, join{kind: "JOIN", table: table, on: on})
	return s
}

// LeftJoin appends a LEFT JOIN clause.
func (s *Selector) LeftJoin(table, on string) *Selector {
	s.joins = append(s.joins, join{kind: "LEFT JOIN", table: table, on: on})
	return s
}

// RightJoin appends a RIGHT JOIN clause.
func (s *Selector) RightJoin(table, on string) *Selector {
	s.joins = append(s.joins, join{kind: "RIGHT JOIN", table: table, on: on})
	return s
}

// GroupBy appends GROUP BY columns.
func (s *Selector) GroupBy(columns ...string) *Selector {
	s.groupBy = append(s.groupBy, columns...)
	return s
}

// Having appends a basic AND predicate to the HAVING clause.
func (s *Selector) Having(col, op string, v any) *Selector {
	s.havings = append(s.havings, basicCond(false, col, op, v))
	return s
}

// HavingRaw appends a raw predicate to the HAVING clause.
func (s *Selector) HavingRaw(expr string, args ...any) *Selector {
	s.havings = append(s.havings, cond{sql: expr, args: args})
	return s
}

// OrderBy appends an ascending ORDER BY term.
func (s *Selector) OrderBy(col string) *Selector {
	s.orderBy = append(s.orderBy, col+" ASC")
	return s
}

// OrderByDesc appends a descending ORDER BY term.
func (s *Selector) OrderByDesc(col string) *Selector {
	s.orderBy = append(s.orderBy, col+" DESC")
	return s
}

// Limit sets the LIMIT clause.
func (s *Selector) Limit(n int) *Selector {
	s.limit = &n
	return s
}

// Offset sets the OFFSET clause.
func (s *Selector) Offset(n int) *Selector {
	s.offset = &n
	return s
}

// WhereClause renders only the accumulated WHERE predicates and their
// bindings, without the leading keyword. Used to transfer a Selector's
// predicates onto an Updater or Deleter.
func (s *Selector) WhereClause() (string, []any) {
	if len(s.wheres) == 0 {
		return "", nil
	}
	var (
		b    strings.Builder
		args []any
	)
	args = renderConds(&b, args, s.wheres)
	return b.String(), args
}

// Clone returns an independent copy of the statement. Mutating the copy
// never affects the original.
func (s *Selector) Clone() *Selector {
	if s == nil {
		return nil
	}
	c := *s
	c.columns = append([]string(nil), s.columns...)
	c.joins = append([]join(nil), s.joins...)
	c.wheres = cloneConds(s.wheres)
	c.groupBy = append([]string(nil), s.groupBy...)
	c.havings = cloneConds(s.havings)
	c.orderBy = append([]string(nil), s.orderBy...)
	if s.limit != nil {
		n := *s.limit
		c.limit = &n
	}
	if s.offset != nil {
		n := *s.offset
		c.offset = &n
	}
	return &c
}

// CountClone returns a copy of the statement shaped for a COUNT query:
// ordering, limit and offset are stripped and the column list is
// replaced with COUNT(*).
func (s *Selector) CountClone() *Selector {
	c := s.Clone()
	c.columns = []string{"COUNT(*)"}
	c.distinct = false
	c.orderBy = nil
	c.limit = nil
	c.offset = nil
	return c
}

// Query renders the statement. Clause order is fixed:
// SELECT cols FROM table joins where groupBy having orderBy limit offset.
// Empty clauses are omitted.
func (s *Selector) Query() (string, []any) {
	var (
		b    strings.Builder
		args []any
	)
	b.WriteString("SELECT ")
	if s.distinct {
		b.WriteString("DISTINCT ")
	}
	if len(s.columns) == 0 {
		b.WriteString("*")
	} else {
		b.WriteString(strings.Join(s.columns, ", "))
	}
	b.WriteString(" FROM ")
	b.WriteString(s.from)
	for _, j := range s.joins {
		b.WriteString(" ")
		b.WriteString(j.kind)
		b.WriteString(" ")
		b.WriteString(j.table)
		b.WriteString(" ON ")
		b.WriteString(j.on)
	}
	if len(s.wheres) > 0 {
		b.WriteString(" WHERE ")
		args = renderConds(&b, args, s.wheres)
	}
	if len(s.groupBy) > 0 {
		b.WriteString(" GROUP BY ")
		b.WriteString(strings.Join(s.groupBy, ", "))
	}
	if len(s.havings) > 0 {
		b.WriteString(" HAVING ")
		args = renderConds(&b, args, s.havings)
	}
	if len(s.orderBy) > 0 {
		b.WriteString(" ORDER BY ")
		b.WriteString(strings.Join(s.orderBy, ", "))
	}
	if s.limit != nil {
		fmt.Fprintf(&b, " LIMIT %d", *s.limit)
	}
	if s.offset != nil {
		fmt.Fprintf(&b, " OFFSET %d", *s.offset)
	}
	return b.String(), args
}

// Inserter builds an INSERT statement.
type Inserter struct {
	table   string
	columns []string
	values  [][]any
}

// Insert returns an Inserter for the given table.
func Insert(table string) *Inserter {
	return &Inserter{table: table}
}

// Columns sets the insert columns.
func (i *Inserter) Columns(columns ...string) *Inserter {
	i.columns = columns
	return i
}

// Values appends one row of values. Call repeatedly for multi-row inserts;
// each row must match the column count.
func (i *Inserter) Values(vs ...any) *Inserter {
	i.values = append(i.values, vs)
	return i
}

// Query renders the statement.
func (i *Inserter) Query() (string, []any) {
	var (
		b    strings.Builder
		args []any
	)
	b.WriteString("INSERT INTO ")
	b.WriteString(i.table)
	b.WriteString(" (")
	b.WriteString(strings.Join(i.columns, ", "))
	b.WriteString(") VALUES ")
	row := "(" + placeholders(len(i.columns)) + ")"
	for n, vs := range i.values {
		if n > 0 {
			b.WriteString(", ")
		}
		b.WriteString(row)
		args = append(args, vs...)
	}
	return b.String(), args
}

// Updater builds an UPDATE statement. Only assigned columns are rendered.
type Updater struct {
	table   string
	columns []string
	values  []any
	wheres  []cond
}

// Update returns an Updater for the given table.
func Update(table string) *Updater {
	return &Updater{table: table}
}

// Set assigns a column value.
func (u *Updater) Set(col string, v any) *Updater {
	u.columns = append(u.columns, col)
	u.values = append(u.values, v)
	return u
}

// Empty reports whether no column was assigned.
func (u *Updater) Empty() bool { return len(u.columns) == 0 }

// Where appends a basic AND predicate.
func (u *Updater) Where(col, op string, v any) *Updater {
	u.wheres = append(u.wheres, basicCond(false, col, op, v))
	return u
}

// WhereIn appends `col IN (?, ...)` with the empty-set rewrite.
func (u *Updater) WhereIn(col string, vs ...any) *Updater {
	u.wheres = append(u.wheres, inCond(false, col, false, vs))
	return u
}

// WhereRaw appends a raw predicate with its bindings.
func (u *Updater) WhereRaw(expr string, args ...any) *Updater {
	u.wheres = append(u.wheres, cond{sql: expr, args: args})
	return u
}

// Query renders the statement.
func (u *Updater) Query() (string, []any) {
	var (
		b    strings.Builder
		args []any
	)
	b.WriteString("UPDATE ")
	b.WriteString(u.table)
	b.WriteString(" SET ")
	for n, col := range u.columns {
		if n > 0 {
			b.WriteString(", ")
		}
		switch v := u.values[n].(type) {
		case Expr:
			b.WriteString(col + " = " + v.S)
			args = append(args, v.Args...)
		default:
			b.WriteString(col + " = ?")
			args = append(args, v)
		}
	}
	if len(u.wheres) > 0 {
		b.WriteString(" WHERE ")
		args = renderConds(&b, args, u.wheres)
	}
	return b.String(), args
}

// Deleter builds a DELETE statement.
type Deleter struct {
	table  string
	wheres []cond
}

// Delete returns a Deleter for the given table.
func Delete(table string) *Deleter {
	return &Deleter{table: table}
}

// Where appends a basic AND predicate.
func (d *Deleter) Where(col, op string, v any) *Deleter {
	d.wheres = append(d.wheres, basicCond(false, col, op, v))
	return d
}

// WhereIn appends `col IN (?, ...)` with the empty-set rewrite.
func (d *Deleter) WhereIn(col string, vs ...any) *Deleter {
	d.wheres = append(d.wheres, inCond(false, col, false, vs))
	return d
}

// WhereRaw appends a raw predicate with its bindings.
func (d *Deleter) WhereRaw(expr string, args ...any) *Deleter {
	d.wheres = append(d.wheres, cond{sql: expr, args: args})
	return d
}

// Query renders the statement.
func (d *Deleter) Query() (string, []any) {
	var (
		b    strings.Builder
		args []any
	)
	b.WriteString("DELETE FROM ")
	b.WriteString(d.table)
	if len(d.wheres) > 0 {
		b.WriteString(" WHERE ")
		args = renderConds(&b, args, d.wheres)
	}
	return b.String(), args
}

func basicCond(or bool, col, op string, v any) cond {
	if e, ok := v.(Expr); ok {
		return cond{or: or, sql: col + " " + op + " " + e.S, args: e.Args}
	}
	return cond{or: or, sql: col + " " + op + " ?", args: []any{v}}
}

func inCond(or bool, col string, not bool, vs []any) cond {
	if len(vs) == 0 {
		// IN () is not valid SQL; rewrite to a constant predicate that
		// preserves the "matches nothing" (or everything, for NOT IN)
		// semantics.
		if not {
			return cond{or: or, sql: "1 = 1"}
		}
		return cond{or: or, sql: "1 = 0"}
	}
	kw := " IN ("
	if not {
		kw = " NOT IN ("
	}
	return cond{or: or, sql: col + kw + placeholders(len(vs)) + ")", args: append([]any(nil), vs...)}
}

func renderConds(b *strings.Builder, args []any, conds []cond) []any {
	for n, c := range conds {
		if n > 0 {
			if c.or {
				b.WriteString(" OR ")
			} else {
				b.WriteString(" AND ")
			}
		}
		b.WriteString(c.sql)
		args = append(args, c.args...)
	}
	return args
}

func cloneConds(conds []cond) []cond {
	c := make([]cond, len(conds))
	for n := range conds {
		c[n] = conds[n]
		c[n].args = append([]any(nil), conds[n].args...)
	}
	return c
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
