package history

// Checkpoint represents a point in history that can be returned to.
type Checkpoint struct {
	undoDepth int
}

// CreateCheckpoint creates a checkpoint at the current history position.
func (h *History) CreateCheckpoint() Checkpoint {
	h.mu.Lock()
	defer h.mu.Unlock()
	return Checkpoint{undoDepth: len(h.undoStack)}
}

// UndoToCheckpoint undoes every entry recorded since the checkpoint.
// It stops early if an undo cannot be applied, and returns the number of
// steps taken. Entries evicted by the stack bound cannot be revisited.
func (h *History) UndoToCheckpoint(cp Checkpoint) int {
	steps := 0
	for h.UndoCount() > cp.undoDepth {
		if !h.Undo() {
			break
		}
		steps++
	}
	return steps
}

// RedoToCheckpoint redoes entries until the undo depth reaches the
// checkpoint again or the redo stack runs out.
func (h *History) RedoToCheckpoint(cp Checkpoint) int {
	steps := 0
	for h.UndoCount() < cp.undoDepth && h.CanRedo() {
		if !h.Redo() {
			break
		}
		steps++
	}
	return steps
}
