// Package history provides snapshot-based undo/redo for the board.
//
// The History type keeps two bounded stacks of board snapshots. Recording a
// state is a checkpoint: the caller records the board before applying an
// edit, so that undo can return to it.
//
//	h := history.NewHistory(doc, history.WithMaxEntries(10))
//
//	h.RecordState()          // checkpoint before the edit
//	doc.AddMath(pos, "x^2")  // the edit itself
//
//	h.Undo()                 // board is back to the checkpoint
//	h.Redo()                 // and forward again
//
// # Stack discipline
//
// Every RecordState clears the redo stack, because redo is only meaningful
// relative to the undo path it branched from. Both stacks hold at most
// MaxEntries snapshots; the chronologically oldest entry is dropped first.
//
// # Failure model
//
// The history never fails. Undo and Redo on an empty stack are no-ops. A
// capture that fails pushes nothing, and a restore that fails leaves both
// stacks exactly as they were. Failures are logged.
package history
