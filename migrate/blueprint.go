package migrate

import (
	"fmt"
	"strings"
)

// Blueprint accumulates column and constraint definitions for one
// CREATE TABLE statement. Columns render in declaration order.
type Blueprint struct {
	table       string
	columns     []column
	constraints []string
}

type column struct {
	name string
	typ  string
	mods []string
}

// NewBlueprint returns a blueprint for the given table.
func NewBlueprint(table string) *Blueprint {
	return &Blueprint{table: table}
}

func (b *Blueprint) add(name, typ string, mods ...string) *Blueprint {
	b.columns = append(b.columns, column{name: name, typ: typ, mods: mods})
	return b
}

// Increments declares an auto-incrementing integer primary key.
func (b *Blueprint) Increments(name string) *Blueprint {
	return b.add(name, "INTEGER", "PRIMARY KEY AUTOINCREMENT")
}

// String declares a TEXT column.
func (b *Blueprint) String(name string) *Blueprint {
	return b.add(name, "TEXT")
}

// Integer declares an INTEGER column.
func (b *Blueprint) Integer(name string) *Blueprint {
	return b.add(name, "INTEGER")
}

// Float declares a REAL column.
func (b *Blueprint) Float(name string) *Blueprint {
	return b.add(name, "REAL")
}

// Bool declares an INTEGER column used as a boolean.
func (b *Blueprint) Bool(name string) *Blueprint {
	return b.add(name, "INTEGER")
}

// Timestamp declares a TEXT column holding a formatted timestamp.
func (b *Blueprint) Timestamp(name string) *Blueprint {
	return b.add(name, "TEXT")
}

// Timestamps declares the created_at/updated_at pair.
func (b *Blueprint) Timestamps() *Blueprint {
	return b.Timestamp("created_at").Timestamp("updated_at")
}

// NotNull marks the most recently declared column NOT NULL.
func (b *Blueprint) NotNull() *Blueprint {
	return b.modify("NOT NULL")
}

// Unique marks the most recently declared column UNIQUE.
func (b *Blueprint) Unique() *Blueprint {
	return b.modify("UNIQUE")
}

// Default sets a literal default on the most recently declared column.
func (b *Blueprint) Default(v any) *Blueprint {
	switch v := v.(type) {
	case string:
		return b.modify(fmt.Sprintf("DEFAULT '%s'", strings.ReplaceAll(v, "'", "''")))
	default:
		return b.modify(fmt.Sprintf("DEFAULT %v", v))
	}
}

func (b *Blueprint) modify(mod string) *Blueprint {
	if len(b.columns) == 0 {
		return b
	}
	last := &b.columns[len(b.columns)-1]
	last.mods = append(last.mods, mod)
	return b
}

// ForeignKey declares a table-level foreign key: col references
// refTable(refCol), cascading on delete.
func (b *Blueprint) ForeignKey(col, refTable, refCol string) *Blueprint {
	b.constraints = append(b.constraints, fmt.Sprintf(
		"FOREIGN KEY (%s) REFERENCES %s (%s) ON DELETE CASCADE", col, refTable, refCol))
	return b
}

// PrimaryKey declares a table-level composite primary key.
func (b *Blueprint) PrimaryKey(cols ...string) *Blueprint {
	b.constraints = append(b.constraints, fmt.Sprintf(
		"PRIMARY KEY (%s)", strings.Join(cols, ", ")))
	return b
}

// Query renders the CREATE TABLE statement. DDL carries no bindings.
func (b *Blueprint) Query() (string, []any) {
	var sb strings.Builder
	sb.WriteString("CREATE TABLE IF NOT EXISTS ")
	sb.WriteString(b.table)
	sb.WriteString(" (")
	for n, c := range b.columns {
		if n > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(c.name)
		sb.WriteString(" ")
		sb.WriteString(c.typ)
		for _, m := range c.mods {
			sb.WriteString(" ")
			sb.WriteString(m)
		}
	}
	for _, c := range b.constraints {
		sb.WriteString(", ")
		sb.WriteString(c)
	}
	sb.WriteString(")")
	return sb.String(), nil
}

// DropTable renders a DROP TABLE statement.
func DropTable(table string) string {
	return "DROP TABLE IF EXISTS " + table
}
