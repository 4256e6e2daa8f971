package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/dshills/mathboard/internal/board"
	"github.com/dshills/mathboard/internal/config"
	"github.com/dshills/mathboard/internal/engine"
	"github.com/dshills/mathboard/internal/engine/history"
	"github.com/dshills/mathboard/internal/persist"
	"github.com/dshills/mathboard/internal/persist/vfs"
)

// sqliteFile names the database created inside a storage directory.
const sqliteFile = "mathboard.db"

// Options holds command-line settings. Zero values leave the configured
// value in place.
type Options struct {
	ConfigPath  string
	LogLevel    string
	LogFormat   string
	Backend     string
	StoragePath string
	Key         string
	MaxHistory  int
	Timeout     time.Duration

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// App is one mathboard invocation: a board, its engine and the streams
// commands read and write.
type App struct {
	cfg        *config.Config
	configPath string
	opts       Options
	logger     *slog.Logger

	doc    *board.MemoryDocument
	engine *engine.Engine

	// Shell session positions used by revert and reapply.
	sessionStart history.Checkpoint
	revertedFrom history.Checkpoint

	stdin  io.Reader
	stdout io.Writer
}

// New loads configuration, opens the configured store and creates the
// engine.
func New(ctx context.Context, opts Options) (*App, error) {
	if opts.Stdin == nil {
		opts.Stdin = os.Stdin
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}

	cfg, configPath, err := LoadConfig(opts)
	if err != nil {
		return nil, err
	}

	logger := NewLogger(opts.Stderr, cfg.Logging)

	store, err := OpenStore(ctx, cfg.Storage)
	if err != nil {
		return nil, NewOperationError("open store", cfg.Storage.Path, err)
	}

	doc := board.NewMemoryDocument()
	eng, err := engine.New(doc,
		engine.WithStore(store),
		engine.WithKey(cfg.Storage.Key),
		engine.WithTimeout(cfg.Storage.Timeout.Std()),
		engine.WithMaxImportSize(cfg.Storage.MaxImportSize),
		engine.WithExportIndent(cfg.Export.Indent),
		engine.WithMaxHistory(cfg.History.MaxEntries),
		engine.WithLogger(logger),
	)
	if err != nil {
		store.Close()
		return nil, err
	}

	logger.Debug("started",
		"backend", cfg.Storage.Backend,
		"path", cfg.Storage.Path,
		"config", configPath,
	)

	return &App{
		cfg:        cfg,
		configPath: configPath,
		opts:       opts,
		logger:     logger,
		doc:        doc,
		engine:     eng,
		stdin:      opts.Stdin,
		stdout:     opts.Stdout,
	}, nil
}

// LoadConfig builds the effective configuration: defaults, then the
// config file, then the environment, then opts. It also returns the path
// of the file that was read, if any. An explicit ConfigPath must exist;
// the default one is optional.
func LoadConfig(opts Options) (*config.Config, string, error) {
	path := opts.ConfigPath
	load := config.Load
	if path == "" {
		path = config.DefaultConfigPath()
		load = config.LoadOptional
	}

	cfg, err := load(path)
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(path); err != nil {
		path = ""
	}

	if err := opts.apply(cfg); err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// apply overlays the command-line settings on cfg and validates the
// result.
func (o Options) apply(cfg *config.Config) error {
	if o.LogLevel != "" {
		cfg.Logging.Level = o.LogLevel
	}
	if o.LogFormat != "" {
		cfg.Logging.Format = o.LogFormat
	}
	if o.Backend != "" {
		cfg.Storage.Backend = o.Backend
	}
	if o.StoragePath != "" {
		cfg.Storage.Path = o.StoragePath
	}
	if o.Key != "" {
		cfg.Storage.Key = o.Key
	}
	if o.MaxHistory != 0 {
		cfg.History.MaxEntries = o.MaxHistory
	}
	if o.Timeout != 0 {
		cfg.Storage.Timeout = config.Duration(o.Timeout)
	}
	return cfg.Validate()
}

// OpenStore opens the store selected by the storage configuration.
func OpenStore(ctx context.Context, sc config.StorageConfig) (persist.Store, error) {
	switch sc.Backend {
	case config.BackendMemory:
		return persist.NewMemoryStore(), nil

	case config.BackendFile:
		return persist.NewFileStore(vfs.NewOSFS(), sc.Path)

	case config.BackendSQLite:
		path := sc.Path
		if filepath.Ext(path) == "" {
			path = filepath.Join(path, sqliteFile)
		}
		return persist.OpenSQLiteStore(ctx, path)

	default:
		return nil, fmt.Errorf("unknown storage backend %q", sc.Backend)
	}
}

// Config returns the effective configuration.
func (a *App) Config() *config.Config {
	return a.cfg
}

// Engine returns the board engine.
func (a *App) Engine() *engine.Engine {
	return a.engine
}

// Shutdown waits for pending saves and closes the store.
func (a *App) Shutdown() error {
	err := a.engine.Close()
	if errors.Is(err, engine.ErrClosed) {
		return nil
	}
	return err
}

// load restores the stored board. A corrupt record is reported and the
// board starts empty.
func (a *App) load(ctx context.Context) error {
	_, err := a.engine.Load(ctx)
	if errors.Is(err, persist.ErrCorruptState) {
		fmt.Fprintf(a.stdout, "warning: %v; starting with an empty board\n", err)
		return nil
	}
	return err
}
