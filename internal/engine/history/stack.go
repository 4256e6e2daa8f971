package history

import (
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/mathboard/internal/board"
	"github.com/dshills/mathboard/internal/board/codec"
)

// DefaultMaxEntries is the stack bound used when none is configured.
const DefaultMaxEntries = 10

// undoEntry wraps a snapshot with metadata.
type undoEntry struct {
	id        string
	snapshot  *board.Snapshot
	timestamp time.Time
}

func newEntry(s *board.Snapshot) *undoEntry {
	return &undoEntry{
		id:        uuid.NewString(),
		snapshot:  s,
		timestamp: time.Now(),
	}
}

func (e *undoEntry) info() EntryInfo {
	return EntryInfo{
		ID:        e.id,
		Timestamp: e.timestamp,
		Groups:    e.snapshot.Len(),
	}
}

// EntryInfo describes one history entry without exposing its snapshot.
type EntryInfo struct {
	ID        string
	Timestamp time.Time
	Groups    int
}

// History manages undo/redo state for a board document.
type History struct {
	mu sync.Mutex

	doc board.Document

	undoStack []*undoEntry
	redoStack []*undoEntry

	// Configuration
	maxEntries int
	logger     *slog.Logger
}

// Option configures a History.
type Option func(*History)

// WithMaxEntries sets the bound of each stack.
func WithMaxEntries(max int) Option {
	return func(h *History) {
		if max > 0 {
			h.maxEntries = max
		}
	}
}

// WithLogger sets the logger used to report swallowed failures.
func WithLogger(logger *slog.Logger) Option {
	return func(h *History) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// NewHistory creates a history manager for doc.
func NewHistory(doc board.Document, opts ...Option) *History {
	h := &History{
		doc:        doc,
		maxEntries: DefaultMaxEntries,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = h.logger.With("component", "history")
	return h
}

// RecordState captures the live document and pushes it onto the undo
// stack, clearing the redo stack. It reports whether an entry was pushed;
// a failed capture pushes nothing and leaves the stacks untouched.
func (h *History) RecordState() bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	snap, err := codec.Capture(h.doc)
	if err != nil {
		h.logger.Warn("record state: capture failed", "error", err)
		return false
	}

	h.pushLocked(snap)
	return true
}

// Push records an already captured snapshot as if RecordState had produced
// it. The history keeps its own copy.
func (h *History) Push(s *board.Snapshot) bool {
	if s == nil {
		return false
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.pushLocked(s.Clone())
	return true
}

// pushLocked adds a snapshot without acquiring the lock.
func (h *History) pushLocked(s *board.Snapshot) {
	h.undoStack = appendBounded(h.undoStack, newEntry(s), h.maxEntries)

	// Clear redo stack
	h.redoStack = nil
}

// appendBounded pushes e and drops the oldest entries beyond max.
func appendBounded(stack []*undoEntry, e *undoEntry, max int) []*undoEntry {
	stack = append(stack, e)
	if len(stack) > max {
		excess := len(stack) - max
		// Copy so dropped entries are released.
		stack = append([]*undoEntry(nil), stack[excess:]...)
	}
	return stack
}

// Undo restores the most recent checkpoint. The current state is saved on
// the redo stack first. It reports whether anything changed; an empty undo
// stack is a no-op.
func (h *History) Undo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.stepLocked(&h.undoStack, &h.redoStack, "undo")
}

// Redo re-applies the most recently undone state. It reports whether
// anything changed; an empty redo stack is a no-op.
func (h *History) Redo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.stepLocked(&h.redoStack, &h.undoStack, "redo")
}

// stepLocked pops from src, saves the current state onto dst and restores
// the popped snapshot. On restore failure both stacks are put back.
func (h *History) stepLocked(src, dst *[]*undoEntry, op string) bool {
	if len(*src) == 0 {
		return false
	}

	savedSrc, savedDst := *src, *dst

	current, err := codec.Capture(h.doc)
	if err != nil {
		h.logger.Warn(op+": capture of current state failed", "error", err)
		return false
	}

	entry := (*src)[len(*src)-1]
	*src = (*src)[:len(*src)-1]
	*dst = appendBounded(*dst, newEntry(current), h.maxEntries)

	if err := codec.Restore(entry.snapshot, h.doc); err != nil {
		// Restore entry on failure
		*src, *dst = savedSrc, savedDst
		h.logger.Warn(op+": restore failed", "entry", entry.id, "error", err)
		return false
	}

	h.logger.Debug(op, "entry", entry.id, "groups", entry.snapshot.Len())
	return true
}

// CanUndo returns true if undo is available.
func (h *History) CanUndo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.undoStack) > 0
}

// CanRedo returns true if redo is available.
func (h *History) CanRedo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.redoStack) > 0
}

// UndoCount returns the number of undo entries available.
func (h *History) UndoCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.undoStack)
}

// RedoCount returns the number of redo entries available.
func (h *History) RedoCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.redoStack)
}

// Clear removes all undo/redo history.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.undoStack = nil
	h.redoStack = nil
}

// UndoInfo returns info about the undo entries, oldest first.
func (h *History) UndoInfo() []EntryInfo {
	h.mu.Lock()
	defer h.mu.Unlock()
	return infos(h.undoStack)
}

// RedoInfo returns info about the redo entries, oldest first.
func (h *History) RedoInfo() []EntryInfo {
	h.mu.Lock()
	defer h.mu.Unlock()
	return infos(h.redoStack)
}

func infos(stack []*undoEntry) []EntryInfo {
	result := make([]EntryInfo, len(stack))
	for i, entry := range stack {
		result[i] = entry.info()
	}
	return result
}

// PeekUndo returns a copy of the snapshot the next Undo would restore.
func (h *History) PeekUndo() (*board.Snapshot, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return peek(h.undoStack)
}

// PeekRedo returns a copy of the snapshot the next Redo would restore.
func (h *History) PeekRedo() (*board.Snapshot, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return peek(h.redoStack)
}

func peek(stack []*undoEntry) (*board.Snapshot, bool) {
	if len(stack) == 0 {
		return nil, false
	}
	return stack[len(stack)-1].snapshot.Clone(), true
}

// SetMaxEntries changes the bound of both stacks.
// If a stack is larger, its oldest entries are removed.
func (h *History) SetMaxEntries(max int) {
	if max <= 0 {
		max = DefaultMaxEntries
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.maxEntries = max

	if len(h.undoStack) > max {
		h.undoStack = h.undoStack[len(h.undoStack)-max:]
	}
	if len(h.redoStack) > max {
		h.redoStack = h.redoStack[len(h.redoStack)-max:]
	}
}

// MaxEntries returns the bound of each stack.
func (h *History) MaxEntries() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.maxEntries
}
