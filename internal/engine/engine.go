package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/dshills/mathboard/internal/board"
	"github.com/dshills/mathboard/internal/board/codec"
	"github.com/dshills/mathboard/internal/engine/history"
	"github.com/dshills/mathboard/internal/persist"
)

// Engine binds a live board document to its history and its storage.
//
// All operations are thread-safe and can be called from multiple goroutines.
type Engine struct {
	mu sync.Mutex

	// Core components
	doc       board.Document
	history   *history.History
	store     persist.Store
	gateway   *persist.Gateway
	autosaver *persist.Autosaver

	// Configuration
	maxHistory  int
	autosave    bool
	gatewayOpts []persist.GatewayOption
	logger      *slog.Logger

	closed bool
}

// New creates an engine over doc.
func New(doc board.Document, opts ...Option) (*Engine, error) {
	if doc == nil {
		return nil, ErrNilDocument
	}

	e := &Engine{
		doc:        doc,
		maxHistory: DefaultMaxHistory,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	// Apply options to get configuration
	for _, opt := range opts {
		opt(e)
	}

	if e.store == nil {
		e.store = persist.NewMemoryStore()
	}

	e.history = history.NewHistory(doc,
		history.WithMaxEntries(e.maxHistory),
		history.WithLogger(e.logger),
	)
	e.gateway = persist.NewGateway(e.store, append(e.gatewayOpts, persist.WithLogger(e.logger))...)
	e.autosaver = persist.NewAutosaver(e.gateway)
	e.logger = e.logger.With("component", "engine")

	return e, nil
}

// ============================================================================
// History
// ============================================================================

// RecordState checkpoints the live document so the next change can be
// undone. It reports whether a checkpoint was recorded.
func (e *Engine) RecordState() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return false
	}
	return e.history.RecordState()
}

// Edit runs fn as one undoable change. The document is captured before fn
// runs and the checkpoint is recorded only if fn succeeds, so a failed
// edit leaves the history, including the redo stack, untouched.
func (e *Engine) Edit(fn func() error) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrClosed
	}

	before, err := codec.Capture(e.doc)
	if err != nil {
		// The edit still goes ahead; it just cannot be undone.
		e.logger.Warn("edit: checkpoint failed", "error", err)
	}

	if err := fn(); err != nil {
		return err
	}

	if before != nil {
		e.history.Push(before)
	}
	e.changedLocked()
	return nil
}

// Undo restores the state before the most recent change. It reports
// whether anything changed.
func (e *Engine) Undo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed || !e.history.Undo() {
		return false
	}
	e.changedLocked()
	return true
}

// Redo re-applies the most recently undone change. It reports whether
// anything changed.
func (e *Engine) Redo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed || !e.history.Redo() {
		return false
	}
	e.changedLocked()
	return true
}

// CanUndo reports whether Undo would change the document.
func (e *Engine) CanUndo() bool {
	return e.history.CanUndo()
}

// CanRedo reports whether Redo would change the document.
func (e *Engine) CanRedo() bool {
	return e.history.CanRedo()
}

// History returns the undo/redo manager.
func (e *Engine) History() *history.History {
	return e.history
}

// Checkpoint marks the current history position.
func (e *Engine) Checkpoint() history.Checkpoint {
	return e.history.CreateCheckpoint()
}

// UndoTo undoes every change recorded since cp and returns how many
// changes were undone.
func (e *Engine) UndoTo(cp history.Checkpoint) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return 0
	}
	n := e.history.UndoToCheckpoint(cp)
	if n > 0 {
		e.changedLocked()
	}
	return n
}

// RedoTo redoes changes until the history is back at cp and returns how
// many changes were redone.
func (e *Engine) RedoTo(cp history.Checkpoint) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return 0
	}
	n := e.history.RedoToCheckpoint(cp)
	if n > 0 {
		e.changedLocked()
	}
	return n
}

// SetMaxHistory changes the bound of both stacks, dropping the oldest
// entries if they are over it.
func (e *Engine) SetMaxHistory(max int) {
	e.history.SetMaxEntries(max)
}

// MaxHistory returns the bound of each stack.
func (e *Engine) MaxHistory() int {
	return e.history.MaxEntries()
}

// ============================================================================
// Snapshots
// ============================================================================

// Snapshot captures the live document.
func (e *Engine) Snapshot() (*board.Snapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return codec.Capture(e.doc)
}

// Restore replaces the live document with s without recording history.
func (e *Engine) Restore(s *board.Snapshot) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrClosed
	}
	if err := codec.Restore(s, e.doc); err != nil {
		return wrap("restore", err)
	}
	e.changedLocked()
	return nil
}

// ============================================================================
// Persistence
// ============================================================================

// Save writes the live document to the store and waits for the result.
// Background saves scheduled earlier are written first.
func (e *Engine) Save(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return wrap("save", ErrClosed)
	}
	if err := e.settleLocked(ctx); err != nil {
		if ctx.Err() != nil {
			return wrap("save", err)
		}
		// Superseded by the state saved below.
		e.logger.Debug("save: earlier background save failed", "error", err)
	}

	snap, err := codec.Capture(e.doc)
	if err != nil {
		return wrap("save", err)
	}
	return e.gateway.Save(ctx, snap)
}

// SaveAsync schedules a background save of the live document and returns
// at once. Failures are logged. Use Flush to wait for the result.
func (e *Engine) SaveAsync() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return false
	}
	snap, err := codec.Capture(e.doc)
	if err != nil {
		e.logger.Warn("save: capture failed", "error", err)
		return false
	}
	return e.autosaver.Schedule(snap)
}

// Flush waits for background saves and returns the last save error.
func (e *Engine) Flush(ctx context.Context) error {
	return e.autosaver.Flush(ctx)
}

// Load replaces the live document with the stored state and starts a new
// history. It reports whether a stored state was found. Background saves
// scheduled earlier are written first; if one fails, Load stops and the
// document keeps its unsaved state. A corrupt record is discarded, the
// document is reset to an empty board and the *persist.CorruptStateError
// is returned. Other failures leave the document untouched.
func (e *Engine) Load(ctx context.Context) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return false, ErrClosed
	}
	if err := e.settleLocked(ctx); err != nil {
		return false, wrap("load", fmt.Errorf("pending save: %w", err))
	}

	snap, found, err := e.gateway.Load(ctx)
	if err != nil && !errors.Is(err, persist.ErrCorruptState) {
		return false, err
	}
	if err != nil {
		snap = board.EmptySnapshot()
	}

	if rerr := codec.Restore(snap, e.doc); rerr != nil {
		return false, wrap("load", rerr)
	}
	e.history.Clear()

	if err != nil {
		e.logger.Warn("stored state was corrupt, starting empty", "error", err)
		return false, err
	}
	e.logger.Debug("loaded", "found", found, "groups", snap.Len())
	return found, nil
}

// SavedAt reports when the state was last stored. ok is false when
// nothing is stored or the store keeps no timestamps.
func (e *Engine) SavedAt(ctx context.Context) (at time.Time, ok bool, err error) {
	if e.isClosed() {
		return time.Time{}, false, ErrClosed
	}
	return e.gateway.SavedAt(ctx)
}

// Discard deletes the stored state. The live document is not changed.
// Background saves scheduled earlier are written first so none can
// re-create the record afterwards.
func (e *Engine) Discard(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrClosed
	}
	if err := e.settleLocked(ctx); err != nil && ctx.Err() != nil {
		return wrap("discard", err)
	}
	return e.gateway.Discard(ctx)
}

// Export writes the live document to w in the export format.
func (e *Engine) Export(ctx context.Context, w io.Writer) error {
	snap, err := e.snapshotOpen()
	if err != nil {
		return wrap("export", err)
	}
	return e.gateway.WriteExport(ctx, w, snap)
}

// ExportFile writes the live document to the file at path.
func (e *Engine) ExportFile(ctx context.Context, path string) error {
	snap, err := e.snapshotOpen()
	if err != nil {
		return wrap("export", err)
	}
	return e.gateway.ExportFile(ctx, path, snap)
}

// Import reads a board from r and makes it the live document. The state
// before the import is recorded, so one Undo reverts it.
func (e *Engine) Import(ctx context.Context, r io.Reader) error {
	if e.isClosed() {
		return ErrClosed
	}
	snap, err := e.gateway.Import(ctx, r)
	if err != nil {
		return err
	}
	return e.apply("import", snap)
}

// ImportFile reads a board from the file at path like Import.
func (e *Engine) ImportFile(ctx context.Context, path string) error {
	if e.isClosed() {
		return ErrClosed
	}
	snap, err := e.gateway.ImportFile(ctx, path)
	if err != nil {
		return err
	}
	return e.apply("import", snap)
}

// apply records a checkpoint and restores s as one undoable change.
func (e *Engine) apply(op string, s *board.Snapshot) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrClosed
	}

	before, err := codec.Capture(e.doc)
	if err != nil {
		e.logger.Warn(op+": checkpoint failed", "error", err)
	}
	if err := codec.Restore(s, e.doc); err != nil {
		return wrap(op, err)
	}
	if before != nil {
		e.history.Push(before)
	}
	e.changedLocked()
	return nil
}

// Close waits for pending background saves and closes the store.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	e.closed = true
	e.mu.Unlock()

	saveErr := e.autosaver.Close()
	if err := e.store.Close(); err != nil {
		return err
	}
	return saveErr
}

// changedLocked schedules an autosave after a change when enabled.
func (e *Engine) changedLocked() {
	if !e.autosave {
		return
	}
	snap, err := codec.Capture(e.doc)
	if err != nil {
		e.logger.Warn("autosave: capture failed", "error", err)
		return
	}
	e.autosaver.Schedule(snap)
}

// settleLocked waits for background saves scheduled so far, so none of
// them lands after the caller's own store access. Changes are only
// scheduled under e.mu, which the caller holds.
func (e *Engine) settleLocked(ctx context.Context) error {
	if !e.autosaver.Pending() {
		return nil
	}
	return e.autosaver.Flush(ctx)
}

func (e *Engine) snapshotOpen() (*board.Snapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil, ErrClosed
	}
	return codec.Capture(e.doc)
}

func (e *Engine) isClosed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}
