package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/roach88/tally/internal/config"
	"github.com/roach88/tally/internal/engine"
	"github.com/roach88/tally/internal/note"
	"github.com/roach88/tally/internal/rulestore"
	"github.com/roach88/tally/internal/store"
	"github.com/roach88/tally/internal/tabular"
)

// DefaultConfigFile is read from the working directory when --config is
// not given. It may be absent.
const DefaultConfigFile = "tally.yaml"

// session is the state one command runs against: resolved config, the
// rule tables loaded from their backend and, when needed, the database.
type session struct {
	cfg     config.Config
	logger  *slog.Logger
	backend rulestore.Backend
	db      *store.Store
	rules   *rulestore.Store
	bands   *rulestore.SleepStore
	opts    *RootOptions
}

// openSession resolves configuration, opens the rule backend and loads the
// rule tables. withDB also opens the score database when the rule backend
// is not already SQLite.
func openSession(ctx context.Context, opts *RootOptions, logOut io.Writer, withDB bool) (*session, error) {
	cfg, err := resolveConfig(opts)
	if err != nil {
		return nil, err
	}
	logger := newLogger(cfg.LogLevel, logOut)

	s := &session{
		cfg:    cfg,
		logger: logger,
		rules:  rulestore.New(opts.Clock),
		bands:  rulestore.NewSleepStore(),
		opts:   opts,
	}

	if cfg.Backend == config.BackendSQLite || withDB {
		path := cfg.DatabasePath()
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
		logger.Debug("opening database", "path", path)
		if s.db, err = store.Open(path); err != nil {
			return nil, err
		}
	}

	switch cfg.Backend {
	case config.BackendSQLite:
		s.backend = s.db
	case config.BackendCSV:
		dir, err := tabular.Open(cfg.DataDir)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.backend = dir
	}

	if err := s.rules.Load(ctx, s.backend); err != nil {
		s.Close()
		return nil, fmt.Errorf("load rules: %w", err)
	}
	if err := s.bands.Load(ctx, s.backend); err != nil {
		s.Close()
		return nil, fmt.Errorf("load sleep bands: %w", err)
	}
	logger.Debug("rules loaded", "backend", cfg.Backend, "rules", s.rules.Len(), "bands", s.bands.Len())
	return s, nil
}

// resolveConfig applies defaults, the config file, the environment and the
// global flags, in that order.
func resolveConfig(opts *RootOptions) (config.Config, error) {
	path, optional := opts.ConfigPath, false
	if path == "" {
		path, optional = DefaultConfigFile, true
	}
	cfg, err := config.Load(path, optional)
	if err != nil {
		return cfg, err
	}

	cfg.ApplyEnv(opts.LookupEnv)
	if opts.Database != "" {
		cfg.Database = opts.Database
	}
	if opts.Backend != "" {
		cfg.Backend = opts.Backend
	}
	if opts.Vault != "" {
		cfg.VaultDir = opts.Vault
	}
	if opts.Verbose {
		cfg.LogLevel = "debug"
	}
	return cfg, cfg.Validate()
}

// newLogger builds the text handler every command logs through.
func newLogger(level string, w io.Writer) *slog.Logger {
	var lvl slog.Level
	if strings.EqualFold(level, "warning") {
		level = "warn"
	}
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelWarn
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}

// scorer builds an engine over the loaded rules.
func (s *session) scorer() *engine.Scorer {
	opts := []engine.Option{engine.WithLogger(s.logger)}
	if s.opts.RunIDs != nil {
		opts = append(opts, engine.WithRunIDGenerator(s.opts.RunIDs))
	}
	return engine.New(s.rules, s.bands, opts...)
}

func (s *session) vault() *note.Vault {
	return note.NewVault(s.cfg.VaultDir, s.logger)
}

// flushRules writes the habit rules back to the backend.
func (s *session) flushRules(ctx context.Context) error {
	if err := s.rules.Flush(ctx, s.backend); err != nil {
		return fmt.Errorf("flush rules: %w", err)
	}
	return nil
}

// flushBands writes the sleep bands back to the backend.
func (s *session) flushBands(ctx context.Context) error {
	if err := s.bands.Flush(ctx, s.backend); err != nil {
		return fmt.Errorf("flush sleep bands: %w", err)
	}
	return nil
}

// Close releases the database, if one was opened.
func (s *session) Close() error {
	if s.db == nil {
		return nil
	}
	if err := s.db.Close(); err != nil {
		s.logger.Error("error closing database", "error", err)
		return err
	}
	return nil
}

// sessionError reports a failure to set up configuration or storage.
func sessionError(f *OutputFormatter, err error) error {
	if outErr := f.Error(ErrCodeConfig, err.Error(), nil); outErr != nil {
		return outErr
	}
	exitErr := WrapExitError(ExitCommandError, "setup failed", err)
	exitErr.Reported = true
	return exitErr
}
