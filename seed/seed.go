// Package seed populates a database from YAML fixtures. A fixture file
// maps entity names to lists of attribute maps; entities insert in file
// order, so parents must precede the rows referencing them.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/syssam/arbor"
)

// Seeder inserts fixture rows through the entity layer, so casts,
// timestamps and primary-key assignment behave exactly as in
// application code.
type Seeder struct {
	client *arbor.Client
	log    *slog.Logger
}

// New returns a seeder over the given client. A nil logger defaults to
// slog's package-level logger.
func New(client *arbor.Client, log *slog.Logger) *Seeder {
	if log == nil {
		log = slog.Default()
	}
	return &Seeder{client: client, log: log}
}

// RunFile seeds from one YAML fixture file.
func (s *Seeder) RunFile(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("seed: read %s: %w", path, err)
	}
	if err := s.Run(ctx, data); err != nil {
		return fmt.Errorf("seed: %s: %w", filepath.Base(path), err)
	}
	return nil
}

// RunDir seeds every .yaml/.yml file in the directory in lexical order.
func (s *Seeder) RunDir(ctx context.Context, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("seed: read dir %s: %w", dir, err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := filepath.Ext(e.Name())
		if ext == ".yaml" || ext == ".yml" {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	for _, f := range files {
		if err := s.RunFile(ctx, filepath.Join(dir, f)); err != nil {
			return err
		}
	}
	return nil
}

// Run seeds from raw YAML. The document is decoded as a yaml.Node to
// preserve the entity order the file declares.
func (s *Seeder) Run(ctx context.Context, data []byte) error {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("decode fixture: %w", err)
	}
	if len(doc.Content) == 0 {
		return nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return fmt.Errorf("fixture root must be a mapping of entity names")
	}
	for i := 0; i+1 < len(root.Content); i += 2 {
		name := root.Content[i].Value
		var rows []map[string]any
		if err := root.Content[i+1].Decode(&rows); err != nil {
			return fmt.Errorf("decode %s rows: %w", name, err)
		}
		if err := s.seedEntity(ctx, name, rows); err != nil {
			return err
		}
	}
	return nil
}

func (s *Seeder) seedEntity(ctx context.Context, name string, rows []map[string]any) error {
	def, err := s.client.Registry().Definition(name)
	if err != nil {
		// Standalone use (the CLI) has no host registry; a minimal
		// definition with naming defaults covers plain fixtures.
		def = &arbor.Definition{Name: name}
		if err := s.client.Registry().Register(def); err != nil {
			return err
		}
	}
	for _, row := range rows {
		e := arbor.NewEntity(def)
		for k, v := range row {
			if err := e.Set(k, v); err != nil {
				return fmt.Errorf("%s.%s: %w", name, k, err)
			}
		}
		// Uuid-keyed entities get a generated key when the fixture
		// leaves it out; integer keys come from the engine.
		if _, ok := e.RawAttribute(def.PrimaryKey); !ok {
			if def.Casts[def.PrimaryKey] == arbor.CastUUID {
				if err := e.Set(def.PrimaryKey, uuid.NewString()); err != nil {
					return err
				}
			}
		}
		if err := e.Save(ctx, s.client); err != nil {
			return err
		}
	}
	s.log.Info("seeded", "entity", name, "rows", len(rows))
	return nil
}
