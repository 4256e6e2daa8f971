package board

import "slices"

// CurrentVersion is the document model version written by this package.
const CurrentVersion = "2.0"

// Snapshot is an immutable, structured copy of the whole board.
// Callers must not modify a snapshot after handing it to the history or the
// persistence layer; use Clone to derive a new one.
type Snapshot struct {
	Version string
	Groups  []Group
}

// EmptySnapshot returns a snapshot of an empty board at the current version.
func EmptySnapshot() *Snapshot {
	return &Snapshot{Version: CurrentVersion, Groups: []Group{}}
}

// NewSnapshot returns a current-version snapshot holding deep copies of groups.
func NewSnapshot(groups ...Group) *Snapshot {
	return &Snapshot{Version: CurrentVersion, Groups: CloneGroups(groups)}
}

// Clone returns a deep copy of the snapshot.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	return &Snapshot{Version: s.Version, Groups: CloneGroups(s.Groups)}
}

// Len returns the number of groups.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Groups)
}

// IsEmpty returns true if the snapshot holds no groups.
func (s *Snapshot) IsEmpty() bool {
	return s.Len() == 0
}

// Equal reports structural equality of version and groups.
func (s *Snapshot) Equal(o *Snapshot) bool {
	if s == nil || o == nil {
		return s == o
	}
	return s.Version == o.Version && GroupsEqual(s.Groups, o.Groups)
}

// Count returns the number of groups of the given kind.
func (s *Snapshot) Count(kind Kind) int {
	if s == nil {
		return 0
	}
	n := 0
	for _, g := range s.Groups {
		if g.Kind() == kind {
			n++
		}
	}
	return n
}

// CloneGroups deep copies a group list. A nil input yields an empty list.
func CloneGroups(groups []Group) []Group {
	out := make([]Group, len(groups))
	for i, g := range groups {
		if g != nil {
			out[i] = g.Clone()
		}
	}
	return out
}

// GroupsEqual reports whether two group lists are structurally equal,
// element by element and in order.
func GroupsEqual(a, b []Group) bool {
	return slices.EqualFunc(a, b, func(x, y Group) bool {
		if x == nil || y == nil {
			return x == nil && y == nil
		}
		return x.Equal(y)
	})
}

// VersionFor returns the version a snapshot of groups must carry to be
// decoded again. It is CurrentVersion unless an opaque group from a newer
// format is present, in which case that group's version is used.
func VersionFor(groups []Group) string {
	for _, g := range groups {
		if o, ok := g.(*OpaqueGroup); ok && o.Version != "" {
			return o.Version
		}
	}
	return CurrentVersion
}
