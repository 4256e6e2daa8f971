package board

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleGroups() []Group {
	return []Group{
		NewMathGroup(Pos("10px", "20px"), "x^2", `\frac{1}{2}`),
		NewTextGroup(Pos("0px", "5px"),
			PlainText("hello"),
			RichText("area is  here", InlineMath{Position: 8, Latex: `\pi r^2`}),
		),
	}
}

func TestMathGroupCloneIsDeep(t *testing.T) {
	g := NewMathGroup(Pos("1px", "2px"), "a", "b")
	c := g.Clone().(*MathGroup)

	g.Fields[0] = "changed"
	g.Position.Left = "99px"

	assert.Equal(t, []string{"a", "b"}, c.Fields)
	assert.Equal(t, "1px", c.Position.Left)
}

func TestTextGroupCloneIsDeep(t *testing.T) {
	g := NewTextGroup(Pos("1px", "2px"), RichText("ab", InlineMath{Position: 1, Latex: "x"}))
	c := g.Clone().(*TextGroup)

	g.Fields[0].MathFields[0].Latex = "y"
	g.Fields[0].Text = "changed"

	assert.Equal(t, "ab", c.Fields[0].Text)
	assert.Equal(t, "x", c.Fields[0].MathFields[0].Latex)
}

func TestTextFieldPlainAndRichDiffer(t *testing.T) {
	assert.False(t, PlainText("a").Equal(RichText("a")))
	assert.True(t, RichText("a").Equal(TextField{Text: "a", Rich: true, MathFields: []InlineMath{}}))

	// Inline math makes a field rich whether or not the flag is set.
	bare := TextField{Text: "a", MathFields: []InlineMath{{Position: 0, Latex: "x"}}}
	assert.True(t, bare.IsRich())
	assert.True(t, bare.Equal(RichText("a", InlineMath{Position: 0, Latex: "x"})))
	assert.False(t, PlainText("a").IsRich())
}

func TestGroupEqualAcrossKinds(t *testing.T) {
	m := NewMathGroup(Pos("0", "0"), "a")
	tx := NewTextGroup(Pos("0", "0"), PlainText("a"))
	assert.False(t, m.Equal(tx))
	assert.False(t, tx.Equal(m))
	assert.True(t, m.Equal(m.Clone()))
	assert.True(t, tx.Equal(tx.Clone()))
}

func TestOpaqueGroupClone(t *testing.T) {
	g := &OpaqueGroup{Type: "plot", Position: Pos("1px", "1px"), Raw: []byte(`{"type":"plot"}`)}
	c := g.Clone().(*OpaqueGroup)
	g.Raw[2] = 'X'
	assert.Equal(t, `{"type":"plot"}`, string(c.Raw))
	assert.Equal(t, Kind("plot"), c.Kind())
}

func TestSnapshotCloneAndEqual(t *testing.T) {
	s := NewSnapshot(sampleGroups()...)
	c := s.Clone()
	require.True(t, s.Equal(c))

	c.Groups[0].(*MathGroup).Fields[0] = "y"
	assert.False(t, s.Equal(c))

	assert.True(t, (*Snapshot)(nil).Equal(nil))
	assert.False(t, s.Equal(nil))
}

func TestSnapshotCount(t *testing.T) {
	s := NewSnapshot(sampleGroups()...)
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, 1, s.Count(KindMath))
	assert.Equal(t, 1, s.Count(KindText))
	assert.True(t, EmptySnapshot().IsEmpty())
}

func TestMemoryDocumentEnumerateIsolated(t *testing.T) {
	doc := NewMemoryDocument(sampleGroups()...)

	groups, err := doc.EnumerateGroups()
	require.NoError(t, err)
	groups[0].(*MathGroup).Fields[0] = "mutated"

	again, err := doc.EnumerateGroups()
	require.NoError(t, err)
	assert.Equal(t, "x^2", again[0].(*MathGroup).Fields[0])
}

func TestMemoryDocumentRebuildFrom(t *testing.T) {
	doc := NewMemoryDocument()
	want := sampleGroups()

	require.NoError(t, doc.RebuildFrom(want))
	got, err := doc.EnumerateGroups()
	require.NoError(t, err)
	assert.True(t, GroupsEqual(want, got))

	// The document keeps its own copy.
	want[0].(*MathGroup).Fields[0] = "changed"
	got, _ = doc.EnumerateGroups()
	assert.Equal(t, "x^2", got[0].(*MathGroup).Fields[0])
}

func TestMemoryDocumentRebuildRejectsNil(t *testing.T) {
	doc := NewMemoryDocument(sampleGroups()...)
	err := doc.RebuildFrom([]Group{nil})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNilGroup))
	assert.Equal(t, 2, doc.Len(), "failed rebuild must leave the document unchanged")
}

func TestMemoryDocumentEdits(t *testing.T) {
	doc := NewMemoryDocument()
	changes := 0
	doc.OnChange(func() { changes++ })

	assert.Equal(t, 0, doc.AddMath(Pos("0px", "0px"), "a"))
	assert.Equal(t, 1, doc.AddText(Pos("5px", "5px"), PlainText("b")))
	require.NoError(t, doc.Move(0, Pos("7px", "8px")))

	g, err := doc.Group(0)
	require.NoError(t, err)
	assert.Equal(t, Pos("7px", "8px"), g.GroupPosition())

	require.NoError(t, doc.Remove(0))
	assert.Equal(t, 1, doc.Len())
	assert.ErrorIs(t, doc.Remove(5), ErrIndexOutOfRange)
	assert.ErrorIs(t, doc.Move(-1, Pos("", "")), ErrIndexOutOfRange)

	doc.Clear()
	assert.Equal(t, 0, doc.Len())
	assert.Equal(t, 5, changes)
}

func TestMemoryDocumentMoveOpaque(t *testing.T) {
	doc := NewMemoryDocument(&OpaqueGroup{Type: "plot", Raw: []byte(`{}`)})
	assert.ErrorIs(t, doc.Move(0, Pos("1px", "1px")), ErrUnsupportedGroup)
}

func TestVersionFor(t *testing.T) {
	assert.Equal(t, CurrentVersion, VersionFor(nil))
	assert.Equal(t, CurrentVersion, VersionFor([]Group{NewMathGroup(Pos("", ""), "x")}))

	groups := []Group{
		NewMathGroup(Pos("", ""), "x"),
		&OpaqueGroup{Type: "plot", Raw: []byte(`{"type":"plot"}`), Version: "3.0"},
	}
	assert.Equal(t, "3.0", VersionFor(groups))
}
