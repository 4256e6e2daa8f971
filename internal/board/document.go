package board

import (
	"errors"
	"fmt"
	"sync"
)

// Errors returned by MemoryDocument.
var (
	// ErrIndexOutOfRange indicates a group index outside the document.
	ErrIndexOutOfRange = errors.New("group index out of range")

	// ErrNilGroup indicates a nil group was supplied.
	ErrNilGroup = errors.New("nil group")

	// ErrUnsupportedGroup indicates an edit on a group kind this version
	// only carries through unchanged.
	ErrUnsupportedGroup = errors.New("unsupported group kind")
)

// Document is the live, UI-owned board as seen by the engine.
type Document interface {
	// EnumerateGroups returns the current groups in traversal order.
	// Implementations must not hand out references the engine could
	// later observe changing; the engine clones what it keeps regardless.
	EnumerateGroups() ([]Group, error)

	// RebuildFrom destructively replaces every group with groups, in order.
	// Afterwards EnumerateGroups must return structurally equal data.
	RebuildFrom(groups []Group) error
}

// MemoryDocument is a thread-safe in-memory Document.
type MemoryDocument struct {
	mu     sync.RWMutex
	groups []Group

	// onChange handlers
	onChange []func()
}

// Ensure MemoryDocument implements Document.
var _ Document = (*MemoryDocument)(nil)

// NewMemoryDocument creates a document holding copies of groups.
func NewMemoryDocument(groups ...Group) *MemoryDocument {
	return &MemoryDocument{groups: CloneGroups(groups)}
}

// EnumerateGroups returns deep copies of the current groups.
func (d *MemoryDocument) EnumerateGroups() ([]Group, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return CloneGroups(d.groups), nil
}

// RebuildFrom replaces the document content in a single step.
func (d *MemoryDocument) RebuildFrom(groups []Group) error {
	for i, g := range groups {
		if g == nil {
			return fmt.Errorf("rebuild group %d: %w", i, ErrNilGroup)
		}
	}
	next := CloneGroups(groups)

	d.mu.Lock()
	d.groups = next
	d.mu.Unlock()

	d.notify()
	return nil
}

// Len returns the number of groups.
func (d *MemoryDocument) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.groups)
}

// Group returns a copy of the group at index i.
func (d *MemoryDocument) Group(i int) (Group, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if i < 0 || i >= len(d.groups) {
		return nil, ErrIndexOutOfRange
	}
	return d.groups[i].Clone(), nil
}

// Append adds a copy of g at the end of the traversal order.
func (d *MemoryDocument) Append(g Group) error {
	if g == nil {
		return ErrNilGroup
	}
	d.mu.Lock()
	d.groups = append(d.groups, g.Clone())
	d.mu.Unlock()

	d.notify()
	return nil
}

// AddMath appends a math group and returns its index.
func (d *MemoryDocument) AddMath(pos Position, fields ...string) int {
	d.mu.Lock()
	d.groups = append(d.groups, NewMathGroup(pos, fields...))
	n := len(d.groups) - 1
	d.mu.Unlock()

	d.notify()
	return n
}

// AddText appends a text group and returns its index.
func (d *MemoryDocument) AddText(pos Position, fields ...TextField) int {
	d.mu.Lock()
	d.groups = append(d.groups, NewTextGroup(pos, fields...))
	n := len(d.groups) - 1
	d.mu.Unlock()

	d.notify()
	return n
}

// Remove deletes the group at index i.
func (d *MemoryDocument) Remove(i int) error {
	d.mu.Lock()
	if i < 0 || i >= len(d.groups) {
		d.mu.Unlock()
		return ErrIndexOutOfRange
	}
	d.groups = append(d.groups[:i:i], d.groups[i+1:]...)
	d.mu.Unlock()

	d.notify()
	return nil
}

// Move changes the position of the group at index i.
func (d *MemoryDocument) Move(i int, pos Position) error {
	d.mu.Lock()
	if i < 0 || i >= len(d.groups) {
		d.mu.Unlock()
		return ErrIndexOutOfRange
	}
	switch g := d.groups[i].Clone().(type) {
	case *MathGroup:
		g.Position = pos
		d.groups[i] = g
	case *TextGroup:
		g.Position = pos
		d.groups[i] = g
	default:
		d.mu.Unlock()
		return fmt.Errorf("move %s group: %w", g.Kind(), ErrUnsupportedGroup)
	}
	d.mu.Unlock()

	d.notify()
	return nil
}

// Clear removes all groups.
func (d *MemoryDocument) Clear() {
	d.mu.Lock()
	d.groups = nil
	d.mu.Unlock()

	d.notify()
}

// OnChange registers a handler called after every mutation.
func (d *MemoryDocument) OnChange(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onChange = append(d.onChange, fn)
}

func (d *MemoryDocument) notify() {
	// Copy handlers so they can run without the lock.
	d.mu.RLock()
	handlers := make([]func(), len(d.onChange))
	copy(handlers, d.onChange)
	d.mu.RUnlock()

	for _, h := range handlers {
		h()
	}
}
