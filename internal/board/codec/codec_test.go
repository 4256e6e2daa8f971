package codec

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/mathboard/internal/board"
)

func sampleSnapshot() *board.Snapshot {
	return board.NewSnapshot(
		board.NewMathGroup(board.Pos("10px", "20px"), "x^2", `\frac{a}{b} < c`),
		board.NewTextGroup(board.Pos("100px", "40px"),
			board.PlainText("plain words"),
			board.RichText("the area  of a circle", board.InlineMath{Position: 9, Latex: `\pi r^2`}),
			board.RichText("no math"),
		),
		board.NewMathGroup(board.Pos("0px", "0px")),
	)
}

// failingDocument is a Document whose operations always fail.
type failingDocument struct{ err error }

func (d failingDocument) EnumerateGroups() ([]board.Group, error) { return nil, d.err }
func (d failingDocument) RebuildFrom([]board.Group) error         { return d.err }

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		snap *board.Snapshot
	}{
		{"empty", board.EmptySnapshot()},
		{"mixed", sampleSnapshot()},
		{"empty fields", board.NewSnapshot(board.NewTextGroup(board.Pos("", "")))},
		{"unicode", board.NewSnapshot(board.NewMathGroup(board.Pos("1px", "2px"), "∑ α_i", "\"quoted\" & <tag>"))},
		{"future version", &board.Snapshot{Version: "3.1", Groups: []board.Group{
			&board.OpaqueGroup{Type: "plot", Position: board.Pos("1px", "2px"), Raw: []byte(`{"type":"plot","left":"1px","top":"2px","series":[1,2]}`)},
			board.NewMathGroup(board.Pos("3px", "4px"), "y"),
		}}},
	}

	for _, tt := range tests {
		for _, format := range []Format{Compact, Pretty} {
			t.Run(tt.name, func(t *testing.T) {
				data, err := Encode(tt.snap, format)
				require.NoError(t, err)

				got, err := Decode(data)
				require.NoError(t, err)
				assert.True(t, tt.snap.Equal(got), "round trip mismatch:\n%s", data)
			})
		}
	}
}

func TestEncodeIsDeterministic(t *testing.T) {
	a, err := Encode(sampleSnapshot(), Compact)
	require.NoError(t, err)
	b, err := Encode(sampleSnapshot(), Compact)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestEncodeLayout(t *testing.T) {
	snap := board.NewSnapshot(
		board.NewMathGroup(board.Pos("10px", "20px"), "x<2"),
		board.NewTextGroup(board.Pos("1px", "2px"), board.PlainText("a"), board.RichText("b", board.InlineMath{Position: 1, Latex: "z"})),
	)

	data, err := Encode(snap, Compact)
	require.NoError(t, err)
	want := `{"version":"2.0","groups":[` +
		`{"type":"math","left":"10px","top":"20px","fields":["x<2"]},` +
		`{"type":"text","left":"1px","top":"2px","fields":["a",{"text":"b","mathFields":[{"position":1,"latex":"z"}]}]}]}`
	assert.Equal(t, want, string(data))
}

func TestEncodePrettyIsIndented(t *testing.T) {
	data, err := Encode(sampleSnapshot(), Pretty)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "{\n  \"version\": \"2.0\""))
	assert.True(t, strings.HasSuffix(string(data), "}\n"))
}

func TestEncodeRichTextWithoutMathEmitsEmptyList(t *testing.T) {
	data, err := Encode(board.NewSnapshot(board.NewTextGroup(board.Pos("", ""), board.RichText("x"))), Compact)
	require.NoError(t, err)
	assert.Contains(t, string(data), `{"text":"x","mathFields":[]}`)
}

func TestEncodeKeepsInlineMathWithoutRichFlag(t *testing.T) {
	field := board.TextField{Text: "a", MathFields: []board.InlineMath{{Position: 1, Latex: "y"}}}
	snap := board.NewSnapshot(board.NewTextGroup(board.Pos("", ""), field))

	data, err := Encode(snap, Compact)
	require.NoError(t, err)
	assert.Contains(t, string(data), `{"text":"a","mathFields":[{"position":1,"latex":"y"}]}`)

	back, err := Decode(data)
	require.NoError(t, err)
	assert.True(t, snap.Equal(back))
}

func TestEncodeErrors(t *testing.T) {
	_, err := Encode(nil, Compact)
	assert.ErrorIs(t, err, ErrNilSnapshot)

	_, err = Encode(&board.Snapshot{}, Compact)
	assert.ErrorIs(t, err, ErrMissingVersion)

	_, err = Encode(&board.Snapshot{Version: "2.0", Groups: []board.Group{nil}}, Compact)
	assert.ErrorIs(t, err, board.ErrNilGroup)

	_, err = Encode(&board.Snapshot{Version: "9", Groups: []board.Group{&board.OpaqueGroup{Type: "x", Raw: []byte("{")}}}, Compact)
	assert.Error(t, err)
}

func TestDecodeLegacyArray(t *testing.T) {
	snap, err := Decode([]byte(`[{"left":"10px","top":"20px","fields":["x^2"]},{"left":"0px","top":"1px","fields":["a","b"]}]`))
	require.NoError(t, err)

	assert.Equal(t, board.CurrentVersion, snap.Version)
	require.Len(t, snap.Groups, 2)
	for _, g := range snap.Groups {
		assert.Equal(t, board.KindMath, g.Kind())
	}
	assert.True(t, snap.Groups[0].Equal(board.NewMathGroup(board.Pos("10px", "20px"), "x^2")))
	assert.True(t, snap.Groups[1].Equal(board.NewMathGroup(board.Pos("0px", "1px"), "a", "b")))
}

func TestDecodeLegacyObject(t *testing.T) {
	snap, err := Decode([]byte(`{"groups":[{"left":"1px","top":"2px","fields":["x"]},{"type":"text","left":"3px","top":"4px","fields":["hello"]}]}`))
	require.NoError(t, err)

	want := board.NewSnapshot(
		board.NewMathGroup(board.Pos("1px", "2px"), "x"),
		board.NewTextGroup(board.Pos("3px", "4px"), board.PlainText("hello")),
	)
	assert.True(t, want.Equal(snap))
}

func TestDecodeVersion1IsNormalized(t *testing.T) {
	snap, err := Decode([]byte(`{"version":"1.0","groups":[{"type":"text","left":"1px","top":"2px","fields":["a"]}]}`))
	require.NoError(t, err)
	assert.Equal(t, board.CurrentVersion, snap.Version)
	assert.Equal(t, board.KindText, snap.Groups[0].Kind())
}

func TestDecodeFutureVersionKeepsUnknownGroups(t *testing.T) {
	input := `{"version":"9.0","groups":[{"type":"plot", "left":"1px","top":"2px","data":{"f":"sin(x)"}},{"type":"math","left":"0","top":"0","fields":["y"]}]}`
	snap, err := Decode([]byte(input))
	require.NoError(t, err)

	assert.Equal(t, "9.0", snap.Version)
	require.Len(t, snap.Groups, 2)
	opaque, ok := snap.Groups[0].(*board.OpaqueGroup)
	require.True(t, ok)
	assert.Equal(t, "plot", opaque.Type)
	assert.Equal(t, board.Pos("1px", "2px"), opaque.Position)
	assert.Equal(t, `{"type":"plot","left":"1px","top":"2px","data":{"f":"sin(x)"}}`, string(opaque.Raw))

	out, err := Encode(snap, Compact)
	require.NoError(t, err)
	assert.Contains(t, string(out), `{"type":"plot","left":"1px","top":"2px","data":{"f":"sin(x)"}}`)
}

func TestDecodeMalformed(t *testing.T) {
	tests := []struct {
		name  string
		input string
		path  string
	}{
		{"empty", "", ""},
		{"whitespace", "  \n", ""},
		{"syntax", `{"version":`, ""},
		{"scalar", `42`, ""},
		{"version not string", `{"version":2,"groups":[]}`, ""},
		{"empty version", `{"version":"","groups":[]}`, "version"},
		{"groups not array", `{"version":"2.0","groups":{}}`, "groups"},
		{"group not object", `{"version":"2.0","groups":["x"]}`, "groups[0]"},
		{"missing type", `{"version":"2.0","groups":[{"left":"1px","top":"1px","fields":[]}]}`, "groups[0]"},
		{"unknown type current version", `{"version":"2.0","groups":[{"type":"plot","fields":[]}]}`, "groups[0]"},
		{"left not string", `{"version":"2.0","groups":[{"type":"math","left":10,"top":"1px","fields":[]}]}`, "groups[0]"},
		{"math field not string", `{"version":"2.0","groups":[{"type":"math","left":"","top":"","fields":[1]}]}`, "groups[0].fields[0]"},
		{"legacy field not string", `[{"left":"","top":"","fields":[{"text":"a"}]}]`, "groups[0].fields[0]"},
		{"text field number", `{"version":"2.0","groups":[{"type":"text","left":"","top":"","fields":[3]}]}`, "groups[0].fields[0]"},
		{"rich text without text", `{"version":"2.0","groups":[{"type":"text","left":"","top":"","fields":[{"mathFields":[]}]}]}`, "groups[0].fields[0]"},
		{"fractional position", `{"version":"2.0","groups":[{"type":"text","left":"","top":"","fields":[{"text":"a","mathFields":[{"position":1.5,"latex":"x"}]}]}]}`, "groups[0].fields[0]"},
		{"negative position", `{"version":"2.0","groups":[{"type":"text","left":"","top":"","fields":[{"text":"a","mathFields":[{"position":-1,"latex":"x"}]}]}]}`, "groups[0].fields[0].mathFields[0]"},
		{"null math field", `{"version":"2.0","groups":[{"type":"math","left":"","top":"","fields":["x",null]}]}`, "groups[0].fields[1]"},
		{"null legacy field", `[{"left":"","top":"","fields":[null]}]`, "groups[0].fields[0]"},
		{"null inline math", `{"version":"2.0","groups":[{"type":"text","left":"","top":"","fields":[{"text":"a","mathFields":[{"position":null,"latex":null}]}]}]}`, "groups[0].fields[0].mathFields[0]"},
		{"inline math without latex", `{"version":"2.0","groups":[{"type":"text","left":"","top":"","fields":[{"text":"a","mathFields":[{"position":0}]}]}]}`, "groups[0].fields[0].mathFields[0]"},
		{"unrelated object", `{"name":"package","dependencies":{}}`, "groups"},
		{"versioned without groups", `{"version":"2.0"}`, "groups"},
		{"null groups", `{"version":"2.0","groups":null}`, "groups"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := []byte(tt.input)
			orig := string(input)

			_, err := Decode(input)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformed)

			var de *DecodeError
			require.True(t, errors.As(err, &de))
			assert.Equal(t, tt.path, de.Path)
			assert.Equal(t, orig, string(input), "input must be left untouched")
		})
	}
}

func TestCaptureRestore(t *testing.T) {
	src := sampleSnapshot()
	doc := board.NewMemoryDocument(src.Groups...)

	snap, err := Capture(doc)
	require.NoError(t, err)
	assert.Equal(t, board.CurrentVersion, snap.Version)
	assert.True(t, src.Equal(snap))

	// Later document edits never reach the captured snapshot.
	doc.AddMath(board.Pos("5px", "5px"), "z")
	assert.Equal(t, 3, snap.Len())

	target := board.NewMemoryDocument()
	require.NoError(t, Restore(snap, target))
	again, err := Capture(target)
	require.NoError(t, err)
	assert.True(t, snap.Equal(again))
}

func TestRestoreIsIdempotent(t *testing.T) {
	snap := sampleSnapshot()
	doc := board.NewMemoryDocument(board.NewMathGroup(board.Pos("1px", "1px"), "old"))

	require.NoError(t, Restore(snap, doc))
	first, err := doc.EnumerateGroups()
	require.NoError(t, err)

	require.NoError(t, Restore(snap, doc))
	second, err := doc.EnumerateGroups()
	require.NoError(t, err)

	assert.True(t, board.GroupsEqual(first, second))
	assert.True(t, board.GroupsEqual(snap.Groups, second))
}

func TestRestoreDoesNotAliasSnapshot(t *testing.T) {
	snap := sampleSnapshot()
	doc := board.NewMemoryDocument()
	require.NoError(t, Restore(snap, doc))

	require.NoError(t, doc.Move(0, board.Pos("999px", "999px")))
	assert.Equal(t, board.Pos("10px", "20px"), snap.Groups[0].GroupPosition())
}

func TestCaptureErrors(t *testing.T) {
	boom := errors.New("boom")

	_, err := Capture(failingDocument{err: boom})
	assert.ErrorIs(t, err, ErrCapture)
	assert.ErrorIs(t, err, boom)

	_, err = Capture(nil)
	assert.ErrorIs(t, err, ErrCapture)
}

func TestRestoreErrors(t *testing.T) {
	boom := errors.New("boom")

	err := Restore(sampleSnapshot(), failingDocument{err: boom})
	assert.ErrorIs(t, err, ErrRestore)
	assert.ErrorIs(t, err, boom)

	err = Restore(nil, board.NewMemoryDocument())
	assert.ErrorIs(t, err, ErrNilSnapshot)
}

func TestCaptureKeepsFutureVersion(t *testing.T) {
	snap, err := Decode([]byte(`{"version":"3.0","groups":[{"type":"plot","left":"1px","top":"1px"}]}`))
	require.NoError(t, err)

	doc := board.NewMemoryDocument()
	require.NoError(t, Restore(snap, doc))
	doc.AddMath(board.Pos("0px", "0px"), "y")

	captured, err := Capture(doc)
	require.NoError(t, err)
	assert.Equal(t, "3.0", captured.Version)

	data, err := Encode(captured, Compact)
	require.NoError(t, err)
	again, err := Decode(data)
	require.NoError(t, err)
	assert.True(t, captured.Equal(again))
}
