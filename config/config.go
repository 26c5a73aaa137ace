// Package config loads arbor host configuration from an optional YAML
// file with ARBOR_-prefixed environment overrides.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/syssam/arbor/dialect"
	"github.com/syssam/arbor/dialect/sql"
)

// envPrefix maps ARBOR_DATABASE_PATH to database.path.
const envPrefix = "ARBOR_"

// Config is the loaded host configuration.
type Config struct {
	Database Database `koanf:"database"`
	Log      Log      `koanf:"log"`
	Seed     Seed     `koanf:"seed"`
}

// Database holds the single connection descriptor. Pragmas apply once
// at open, on top of the defaults.
type Database struct {
	Path    string            `koanf:"path"`
	Pragmas map[string]string `koanf:"pragmas"`
}

// Log configures query logging.
type Log struct {
	Debug         bool          `koanf:"debug"`
	SlowThreshold time.Duration `koanf:"slow_threshold"`
}

// Seed points at the fixture directory.
type Seed struct {
	Dir string `koanf:"dir"`
}

func defaults() *Config {
	return &Config{
		Database: Database{Path: ":memory:"},
		Log:      Log{SlowThreshold: 200 * time.Millisecond},
		Seed:     Seed{Dir: "seeds"},
	}
}

// Load reads the configuration: defaults, then the YAML file when the
// path is non-empty and exists, then environment overrides.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := defaults()
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("config: load %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("config: stat %s: %w", path, err)
		}
	}
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "_", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("config: load env: %w", err)
	}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	return cfg, nil
}

// Open opens the configured sqlite database with the default pragmas
// merged under the configured overrides.
func (c *Config) Open() (dialect.Driver, error) {
	pragmas := make(map[string]string, len(sql.DefaultPragmas)+len(c.Database.Pragmas))
	for k, v := range sql.DefaultPragmas {
		pragmas[k] = v
	}
	for k, v := range c.Database.Pragmas {
		pragmas[k] = v
	}
	return sql.OpenSQLite(c.Database.Path, pragmas)
}
