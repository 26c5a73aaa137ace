package migrate

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/syssam/arbor/dialect"
)

// LoadDir reads SQL-file migrations from a directory. Files pair as
// NAME.up.sql / NAME.down.sql; the down file is optional, making the
// migration irreversible. Migrations order by name, so the convention
// is a sortable numeric prefix ("0001_create_users.up.sql").
func LoadDir(dir string) ([]*Migration, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("migrate: read dir %s: %w", dir, err)
	}
	ups := make(map[string]string)
	downs := make(map[string]string)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = filepath.Join(dir, name)
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = filepath.Join(dir, name)
		}
	}
	for name := range downs {
		if _, ok := ups[name]; !ok {
			return nil, fmt.Errorf("migrate: %s has a down file but no up file", name)
		}
	}
	names := make([]string, 0, len(ups))
	for name := range ups {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]*Migration, 0, len(names))
	for _, name := range names {
		m := &Migration{Name: name, Up: execFile(ups[name])}
		if path, ok := downs[name]; ok {
			m.Down = execFile(path)
		}
		out = append(out, m)
	}
	return out, nil
}

// execFile returns a migration body that runs each statement of the
// file. Statements split on `;` at end of line, which covers plain DDL;
// triggers with embedded semicolons belong in Go migrations.
func execFile(path string) func(ctx context.Context, conn dialect.ExecQuerier) error {
	return func(ctx context.Context, conn dialect.ExecQuerier) error {
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		for _, stmt := range splitStatements(string(data)) {
			if err := conn.Exec(ctx, stmt, []any{}, nil); err != nil {
				return fmt.Errorf("%s: %w", filepath.Base(path), err)
			}
		}
		return nil
	}
}

func splitStatements(script string) []string {
	var out []string
	for _, part := range strings.Split(script, ";\n") {
		var lines []string
		for _, line := range strings.Split(part, "\n") {
			if strings.HasPrefix(strings.TrimSpace(line), "--") {
				continue
			}
			lines = append(lines, line)
		}
		stmt := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(strings.Join(lines, "\n")), ";"))
		if stmt == "" {
			continue
		}
		out = append(out, stmt)
	}
	return out
}
