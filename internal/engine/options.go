package engine

import (
	"log/slog"
	"time"

	"github.com/dshills/mathboard/internal/engine/history"
	"github.com/dshills/mathboard/internal/persist"
	"github.com/dshills/mathboard/internal/persist/vfs"
)

// Default configuration values.
const (
	DefaultMaxHistory = history.DefaultMaxEntries
	DefaultTimeout    = persist.DefaultTimeout
)

// Option configures an Engine during creation.
type Option func(*Engine)

// WithMaxHistory sets the bound of the undo and redo stacks.
func WithMaxHistory(max int) Option {
	return func(e *Engine) {
		if max > 0 {
			e.maxHistory = max
		}
	}
}

// WithStore sets the durable store. The engine closes it on Close.
// Without a store the engine persists to process memory.
func WithStore(store persist.Store) Option {
	return func(e *Engine) {
		e.store = store
	}
}

// WithKey sets the key the board state is stored under.
func WithKey(key string) Option {
	return func(e *Engine) {
		e.gatewayOpts = append(e.gatewayOpts, persist.WithKey(key))
	}
}

// WithTimeout sets the budget of each persistence call.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.gatewayOpts = append(e.gatewayOpts, persist.WithTimeout(d))
	}
}

// WithMaxImportSize sets the largest accepted import, in bytes.
func WithMaxImportSize(n int64) Option {
	return func(e *Engine) {
		e.gatewayOpts = append(e.gatewayOpts, persist.WithMaxImportSize(n))
	}
}

// WithExportIndent sets the indentation of exports.
func WithExportIndent(indent string) Option {
	return func(e *Engine) {
		e.gatewayOpts = append(e.gatewayOpts, persist.WithExportIndent(indent))
	}
}

// WithFS sets the file system used for export and import files.
func WithFS(fsys vfs.VFS) Option {
	return func(e *Engine) {
		e.gatewayOpts = append(e.gatewayOpts, persist.WithFS(fsys))
	}
}

// WithLogger sets the logger shared by the engine and its components.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithAutosave makes every change to the board schedule a background save.
func WithAutosave() Option {
	return func(e *Engine) {
		e.autosave = true
	}
}
