// Package config holds tally's settings: where data and notes live and
// which rule backend to use.
//
// Precedence, lowest first: Default(), the YAML config file, TALLY_*
// environment variables, command-line flags (applied by the CLI).
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Rule backends.
const (
	BackendSQLite = "sqlite"
	BackendCSV    = "csv"
)

// Environment variables read by ApplyEnv.
const (
	EnvDB       = "TALLY_DB"
	EnvDataDir  = "TALLY_DATA_DIR"
	EnvVault    = "TALLY_VAULT"
	EnvBackend  = "TALLY_BACKEND"
	EnvLogLevel = "TALLY_LOG_LEVEL"
)

// Config holds all tally configuration.
type Config struct {
	DataDir  string `yaml:"data_dir"`
	VaultDir string `yaml:"vault_dir"`
	// Database is the SQLite file. Empty means DataDir/tally.db.
	Database string `yaml:"database"`
	Backend  string `yaml:"backend"`   // "sqlite" or "csv"
	LogLevel string `yaml:"log_level"` // debug, info, warn, error
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		DataDir:  "data",
		VaultDir: "notes",
		Backend:  BackendSQLite,
		LogLevel: "warn",
	}
}

// Load reads a YAML config file over the defaults. Unknown keys are
// errors. A missing file yields the defaults when optional is true.
func Load(path string, optional bool) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) && optional {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}

	// Relative directories in a config file are relative to the file.
	base := filepath.Dir(path)
	cfg.DataDir = resolve(base, cfg.DataDir)
	cfg.VaultDir = resolve(base, cfg.VaultDir)
	if cfg.Database != "" {
		cfg.Database = resolve(base, cfg.Database)
	}
	return cfg, cfg.Validate()
}

// ApplyEnv overrides fields from TALLY_* variables that are set.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	for _, e := range []struct {
		name string
		dst  *string
	}{
		{EnvDB, &c.Database},
		{EnvDataDir, &c.DataDir},
		{EnvVault, &c.VaultDir},
		{EnvBackend, &c.Backend},
		{EnvLogLevel, &c.LogLevel},
	} {
		if v, ok := lookup(e.name); ok && v != "" {
			*e.dst = v
		}
	}
}

// Validate reports settings that cannot work.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendSQLite, BackendCSV:
	default:
		return fmt.Errorf("invalid backend %q: must be %s or %s", c.Backend, BackendSQLite, BackendCSV)
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid log_level %q", c.LogLevel)
	}
	if c.DataDir == "" {
		return errors.New("data_dir must not be empty")
	}
	return nil
}

// DatabasePath returns the SQLite file path.
func (c *Config) DatabasePath() string {
	if c.Database != "" {
		return c.Database
	}
	return filepath.Join(c.DataDir, "tally.db")
}

func resolve(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}
