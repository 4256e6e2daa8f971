package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Storage backends.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Log formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Config holds all mathboard settings.
type Config struct {
	History HistoryConfig `toml:"history" yaml:"history" envPrefix:"HISTORY_"`
	Storage StorageConfig `toml:"storage" yaml:"storage" envPrefix:"STORAGE_"`
	Export  ExportConfig  `toml:"export" yaml:"export" envPrefix:"EXPORT_"`
	Logging LoggingConfig `toml:"logging" yaml:"logging" envPrefix:"LOGGING_"`
}

// HistoryConfig configures undo/redo.
type HistoryConfig struct {
	// MaxEntries bounds each of the undo and redo stacks.
	MaxEntries int `toml:"max_entries" yaml:"max_entries" env:"MAX_ENTRIES"`
}

// StorageConfig configures where board state is persisted.
type StorageConfig struct {
	// Backend is one of "memory", "file" or "sqlite".
	Backend string `toml:"backend" yaml:"backend" env:"BACKEND"`

	// Path is the state directory for the file backend and the database
	// file for the sqlite backend.
	Path string `toml:"path" yaml:"path" env:"PATH"`

	// Key is the fixed key the board state is stored under.
	Key string `toml:"key" yaml:"key" env:"KEY"`

	// Timeout bounds every storage call.
	Timeout Duration `toml:"timeout" yaml:"timeout" env:"TIMEOUT"`

	// MaxImportSize is the largest accepted import file in bytes.
	MaxImportSize int64 `toml:"max_import_size" yaml:"max_import_size" env:"MAX_IMPORT_SIZE"`
}

// ExportConfig configures export files.
type ExportConfig struct {
	Indent string `toml:"indent" yaml:"indent" env:"INDENT"`
}

// LoggingConfig configures the logger.
type LoggingConfig struct {
	Level  string `toml:"level" yaml:"level" env:"LEVEL"`
	Format string `toml:"format" yaml:"format" env:"FORMAT"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		History: HistoryConfig{MaxEntries: 10},
		Storage: StorageConfig{
			Backend:       BackendFile,
			Path:          DefaultDataDir(),
			Key:           "mathboard.state",
			Timeout:       Duration(5 * time.Second),
			MaxImportSize: 10 << 20,
		},
		Export:  ExportConfig{Indent: "  "},
		Logging: LoggingConfig{Level: "info", Format: FormatText},
	}
}

// DefaultDataDir returns the per-user directory holding board state.
func DefaultDataDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "mathboard")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "share", "mathboard")
	}
	return filepath.Join(os.TempDir(), "mathboard")
}

// DefaultConfigPath returns the configuration file looked up when none is
// given explicitly.
func DefaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "mathboard", "config.toml")
}

// Validate checks that every setting holds a usable value.
func (c *Config) Validate() error {
	var errs ValidationErrors

	if c.History.MaxEntries < 1 {
		errs = append(errs, &ValidationError{Path: "history.max_entries", Value: c.History.MaxEntries, Message: "must be at least 1"})
	}

	backends := []string{BackendMemory, BackendFile, BackendSQLite}
	if !slices.Contains(backends, c.Storage.Backend) {
		errs = append(errs, &ValidationError{Path: "storage.backend", Value: c.Storage.Backend, Message: "must be one of " + strings.Join(backends, ", ")})
	}
	if c.Storage.Backend != BackendMemory && c.Storage.Path == "" {
		errs = append(errs, &ValidationError{Path: "storage.path", Value: c.Storage.Path, Message: "required for the " + c.Storage.Backend + " backend"})
	}
	if c.Storage.Key == "" {
		errs = append(errs, &ValidationError{Path: "storage.key", Value: c.Storage.Key, Message: "must not be empty"})
	}
	if c.Storage.Timeout <= 0 {
		errs = append(errs, &ValidationError{Path: "storage.timeout", Value: c.Storage.Timeout, Message: "must be positive"})
	}
	if c.Storage.MaxImportSize <= 0 {
		errs = append(errs, &ValidationError{Path: "storage.max_import_size", Value: c.Storage.MaxImportSize, Message: "must be positive"})
	}

	if strings.Trim(c.Export.Indent, " \t") != "" {
		errs = append(errs, &ValidationError{Path: "export.indent", Value: c.Export.Indent, Message: "must contain only spaces and tabs"})
	}

	levels := []string{"debug", "info", "warn", "warning", "error"}
	if !slices.Contains(levels, strings.ToLower(c.Logging.Level)) {
		errs = append(errs, &ValidationError{Path: "logging.level", Value: c.Logging.Level, Message: "must be one of debug, info, warn, error"})
	}
	if c.Logging.Format != FormatText && c.Logging.Format != FormatJSON {
		errs = append(errs, &ValidationError{Path: "logging.format", Value: c.Logging.Format, Message: "must be text or json"})
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

// Duration is a time.Duration read from strings such as "5s" or "250ms".
type Duration time.Duration

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// String formats the duration like time.Duration.
func (d Duration) String() string {
	return time.Duration(d).String()
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	*d = Duration(v)
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	return d.UnmarshalText([]byte(node.Value))
}
