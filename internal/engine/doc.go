// Package engine provides the document state engine for mathboard.
//
// The engine is the facade the rest of the program talks to. It binds a
// live board document to three collaborators:
//
//   - codec: captures the document into snapshots and restores them
//   - history: bounded snapshot-based undo/redo
//   - persist: durable save/load, export and import
//
// # Basic Usage
//
//	doc := board.NewMemoryDocument()
//	e, err := engine.New(doc, engine.WithStore(store))
//	if err != nil {
//		return err
//	}
//	defer e.Close()
//
//	// Restore the last saved board, if any
//	if _, err := e.Load(ctx); err != nil {
//		log.Warn("starting from an empty board", "error", err)
//	}
//
//	// Edit records a checkpoint first, so the edit can be undone
//	e.Edit(func() error {
//		doc.AddMath(board.Pos("10px", "10px"), `\frac{1}{2}`)
//		return nil
//	})
//
//	e.Undo()
//	e.Redo()
//
//	// Persist the result
//	e.Save(ctx)
//
// # Thread Safety
//
// Engine methods may be called from multiple goroutines. Compound
// operations such as Edit and Import run under the engine lock, so the
// checkpoint and the change it protects are never interleaved with another
// operation. Callbacks passed to Edit must not call back into the engine.
//
// # Persistence Failures
//
// History is authoritative. A failed or timed-out save never changes the
// in-memory document or its undo/redo stacks.
package engine
