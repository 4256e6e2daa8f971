package codec

import (
	"fmt"

	"github.com/dshills/mathboard/internal/board"
)

// Capture reads the live document into a new snapshot. The snapshot is
// tagged with the current version, or with the newer version of any opaque
// group the document still carries. The document is only read.
func Capture(doc board.Document) (*board.Snapshot, error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: nil document", ErrCapture)
	}

	groups, err := doc.EnumerateGroups()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCapture, err)
	}

	for i, g := range groups {
		if g == nil {
			return nil, fmt.Errorf("%w: group %d: %w", ErrCapture, i, board.ErrNilGroup)
		}
	}

	return &board.Snapshot{
		Version: board.VersionFor(groups),
		Groups:  board.CloneGroups(groups),
	}, nil
}

// Restore replaces the live document with the snapshot's groups, in order,
// through a single RebuildFrom call. The snapshot is not modified.
func Restore(s *board.Snapshot, doc board.Document) error {
	if s == nil {
		return fmt.Errorf("%w: %w", ErrRestore, ErrNilSnapshot)
	}
	if doc == nil {
		return fmt.Errorf("%w: nil document", ErrRestore)
	}

	if err := doc.RebuildFrom(board.CloneGroups(s.Groups)); err != nil {
		return fmt.Errorf("%w: %w", ErrRestore, err)
	}
	return nil
}
