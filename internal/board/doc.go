// Package board defines the document model of the math canvas.
//
// A board is an ordered set of positioned groups. Two kinds exist:
//
//   - MathGroup: a stack of LaTeX expressions
//   - TextGroup: a block of prose whose fields may embed inline math
//
// The order of groups is the traversal (z) order of the canvas, not its
// spatial order. Positions are CSS pixel strings owned by the UI and are
// never interpreted here.
//
// # Snapshots
//
// A Snapshot is an immutable copy of the whole board at one instant:
//
//	snap := &board.Snapshot{
//	    Version: board.CurrentVersion,
//	    Groups: []board.Group{
//	        board.NewMathGroup(board.Pos("10px", "20px"), "x^2"),
//	    },
//	}
//
// Snapshots are deep copied whenever they cross a component boundary, so an
// entry held by the history never aliases the live document.
//
// # Document contract
//
// The live document is owned by the UI layer. The engine reaches it only
// through the Document interface: EnumerateGroups to read it as data and
// RebuildFrom to replace it wholesale. MemoryDocument is an in-process
// implementation used by the command line tool and by tests.
package board
