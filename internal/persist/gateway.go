package persist

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/dshills/mathboard/internal/board"
	"github.com/dshills/mathboard/internal/board/codec"
	"github.com/dshills/mathboard/internal/persist/vfs"
)

// Gateway defaults.
const (
	DefaultKey           = "mathboard.state"
	DefaultTimeout       = 5 * time.Second
	DefaultMaxImportSize = 10 << 20
)

// Gateway moves snapshots between memory and durable storage.
//
// Every call that performs I/O runs under a time budget and is serialized
// with the other I/O calls of the same gateway, so a save that is still in
// flight completes before the next load or save touches the key.
type Gateway struct {
	store Store
	fs    vfs.VFS

	key           string
	timeout       time.Duration
	maxImportSize int64
	exportIndent  string

	ioMu   sync.Mutex
	logger *slog.Logger
}

// GatewayOption configures a Gateway.
type GatewayOption func(*Gateway)

// WithKey sets the fixed key the state is stored under.
func WithKey(key string) GatewayOption {
	return func(g *Gateway) {
		if key != "" {
			g.key = key
		}
	}
}

// WithTimeout sets the budget of each I/O call.
func WithTimeout(d time.Duration) GatewayOption {
	return func(g *Gateway) {
		if d > 0 {
			g.timeout = d
		}
	}
}

// WithMaxImportSize sets the largest accepted import, in bytes.
func WithMaxImportSize(n int64) GatewayOption {
	return func(g *Gateway) {
		if n > 0 {
			g.maxImportSize = n
		}
	}
}

// WithExportIndent sets the indentation of exported files.
func WithExportIndent(indent string) GatewayOption {
	return func(g *Gateway) {
		if indent != "" {
			g.exportIndent = indent
		}
	}
}

// WithFS sets the file system used for export and import files.
func WithFS(fsys vfs.VFS) GatewayOption {
	return func(g *Gateway) {
		if fsys != nil {
			g.fs = fsys
		}
	}
}

// WithLogger sets the gateway logger.
func WithLogger(logger *slog.Logger) GatewayOption {
	return func(g *Gateway) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// NewGateway creates a gateway over store.
func NewGateway(store Store, opts ...GatewayOption) *Gateway {
	g := &Gateway{
		store:         store,
		fs:            vfs.NewOSFS(),
		key:           DefaultKey,
		timeout:       DefaultTimeout,
		maxImportSize: DefaultMaxImportSize,
		exportIndent:  codec.DefaultIndent,
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = g.logger.With("component", "persist")
	return g
}

// Key returns the key the state is stored under.
func (g *Gateway) Key() string {
	return g.key
}

// Save encodes the snapshot compactly and stores it under the key. On
// failure the previously stored value is left untouched.
func (g *Gateway) Save(ctx context.Context, s *board.Snapshot) error {
	data, err := codec.Encode(s, codec.Compact)
	if err != nil {
		return &OperationError{Op: "save", Key: g.key, Err: err}
	}

	err = g.do(ctx, "save", g.key, func(ctx context.Context) error {
		return g.store.Put(ctx, g.key, data)
	})
	if err != nil {
		g.logger.Warn("save failed", "key", g.key, "error", err)
		return err
	}

	g.logger.Debug("saved", "key", g.key, "groups", s.Len(), "bytes", len(data))
	return nil
}

// Load reads and decodes the stored state. A missing record yields an
// empty snapshot and found == false. A record that cannot be decoded is
// deleted and reported as a *CorruptStateError.
func (g *Gateway) Load(ctx context.Context) (snap *board.Snapshot, found bool, err error) {
	var loaded *board.Snapshot
	err = g.do(ctx, "load", g.key, func(ctx context.Context) error {
		data, err := g.store.Get(ctx, g.key)
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		s, decodeErr := codec.Decode(data)
		if decodeErr != nil {
			corrupt := &CorruptStateError{Key: g.key, Err: decodeErr}
			if err := g.store.Delete(ctx, g.key); err != nil {
				corrupt.DiscardErr = err
			}
			return corrupt
		}
		loaded = s
		return nil
	})
	if err != nil {
		g.logger.Warn("load failed", "key", g.key, "error", err)
		return nil, false, err
	}

	if loaded == nil {
		return board.EmptySnapshot(), false, nil
	}
	g.logger.Debug("loaded", "key", g.key, "groups", loaded.Len(), "version", loaded.Version)
	return loaded, true, nil
}

// Discard deletes the stored state.
func (g *Gateway) Discard(ctx context.Context) error {
	return g.do(ctx, "discard", g.key, func(ctx context.Context) error {
		return g.store.Delete(ctx, g.key)
	})
}

// SavedAt reports when the state was last stored. ok is false when
// nothing is stored or the store keeps no timestamps.
func (g *Gateway) SavedAt(ctx context.Context) (at time.Time, ok bool, err error) {
	st, stamped := g.store.(Stamper)
	if !stamped {
		return time.Time{}, false, nil
	}
	err = g.do(ctx, "stat", g.key, func(ctx context.Context) error {
		var err error
		at, err = st.UpdatedAt(ctx, g.key)
		return err
	})
	if errors.Is(err, ErrNotFound) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	return at, true, nil
}

// Export encodes the snapshot in the indented, versioned export format.
// The snapshot is written at the current version unless it still carries
// groups of a newer format.
func (g *Gateway) Export(s *board.Snapshot) ([]byte, error) {
	if s == nil {
		return nil, &OperationError{Op: "export", Err: codec.ErrNilSnapshot}
	}
	out := &board.Snapshot{Version: board.VersionFor(s.Groups), Groups: s.Groups}

	data, err := codec.EncodeIndent(out, g.exportIndent)
	if err != nil {
		return nil, &OperationError{Op: "export", Err: err}
	}
	return data, nil
}

// WriteExport writes the export of s to w.
func (g *Gateway) WriteExport(ctx context.Context, w io.Writer, s *board.Snapshot) error {
	data, err := g.Export(s)
	if err != nil {
		return err
	}
	return g.do(ctx, "export", "", func(context.Context) error {
		_, err := w.Write(data)
		return err
	})
}

// ExportFile writes the export of s to path, replacing any existing file
// only once the new content is fully written.
func (g *Gateway) ExportFile(ctx context.Context, path string, s *board.Snapshot) error {
	data, err := g.Export(s)
	if err != nil {
		return err
	}
	err = g.do(ctx, "export", path, func(context.Context) error {
		if err := g.fs.MkdirAll(g.fs.Dir(path), 0o755); err != nil {
			return err
		}
		return writeAtomic(g.fs, path, data)
	})
	if err == nil {
		g.logger.Info("exported", "path", path, "groups", s.Len())
	}
	return err
}

// Import reads a snapshot in any supported layout from r. The result is
// normalized to the current model; nothing is restored or stored.
func (g *Gateway) Import(ctx context.Context, r io.Reader) (*board.Snapshot, error) {
	var data []byte
	err := g.do(ctx, "import", "", func(context.Context) error {
		var err error
		data, err = io.ReadAll(io.LimitReader(r, g.maxImportSize+1))
		return err
	})
	if err != nil {
		return nil, err
	}
	return g.decodeImport("", data)
}

// ImportFile reads a snapshot from the file at path.
func (g *Gateway) ImportFile(ctx context.Context, path string) (*board.Snapshot, error) {
	var data []byte
	err := g.do(ctx, "import", path, func(context.Context) error {
		info, err := g.fs.Stat(path)
		if err != nil {
			return err
		}
		if info.IsDir() {
			return fmt.Errorf("%s is a directory", path)
		}
		if info.Size() > g.maxImportSize {
			return fmt.Errorf("%w: %d bytes", ErrTooLarge, info.Size())
		}
		data, err = g.fs.ReadFile(path)
		return err
	})
	if err != nil {
		return nil, err
	}
	return g.decodeImport(path, data)
}

func (g *Gateway) decodeImport(source string, data []byte) (*board.Snapshot, error) {
	if int64(len(data)) > g.maxImportSize {
		return nil, &OperationError{Op: "import", Key: source, Err: fmt.Errorf("%w: limit %d bytes", ErrTooLarge, g.maxImportSize)}
	}

	s, err := codec.Decode(bytes.TrimPrefix(data, []byte("\ufeff")))
	if err != nil {
		return nil, &OperationError{Op: "import", Key: source, Err: err}
	}
	g.logger.Info("imported", "source", source, "groups", s.Len(), "version", s.Version)
	return s, nil
}

// do runs fn under the gateway timeout while holding the I/O lock. If the
// budget runs out first, do returns a *TimeoutError and fn keeps the lock
// until it returns, which delays the next I/O call rather than racing it.
func (g *Gateway) do(ctx context.Context, op, key string, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		g.ioMu.Lock()
		defer g.ioMu.Unlock()

		if err := ctx.Err(); err != nil {
			done <- err
			return
		}
		done <- fn(ctx)
	}()

	err := wait(ctx, done)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded):
		return &TimeoutError{Op: op, Key: key, Budget: g.timeout, Err: err}
	case errors.Is(err, ErrCorruptState):
		return err
	default:
		return &OperationError{Op: op, Key: key, Err: err}
	}
}

// wait returns the result sent on done, or the context error if ctx ends
// first. A result that is already available wins over an expired context.
func wait(ctx context.Context, done <-chan error) error {
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		select {
		case err := <-done:
			return err
		default:
			return ctx.Err()
		}
	}
}
