package codec

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/dshills/mathboard/internal/board"
)

// Legacy version labels. Neither is ever written; they only name dialects.
const (
	versionLegacyArray  = "legacy-array"
	versionLegacyObject = "legacy-object"
	version1            = "1.0"
)

// dialect is the decoding policy for one format version.
type dialect struct {
	// untypedKind is the kind assumed for groups without a "type" tag.
	// Empty means the tag is required.
	untypedKind board.Kind
	// keepUnknown carries unknown group types as board.OpaqueGroup instead
	// of rejecting them.
	keepUnknown bool
	// normalize rewrites the snapshot version to board.CurrentVersion.
	normalize bool
}

// dialects is the version dispatch table. Versions not listed here are
// newer than this code and decode with futureDialect.
var dialects = map[string]dialect{
	versionLegacyArray:   {untypedKind: board.KindMath, normalize: true},
	versionLegacyObject:  {untypedKind: board.KindMath, normalize: true},
	version1:             {normalize: true},
	board.CurrentVersion: {},
}

var futureDialect = dialect{keepUnknown: true}

type wireGroupIn struct {
	Type   *string           `json:"type"`
	Left   string            `json:"left"`
	Top    string            `json:"top"`
	Fields []json.RawMessage `json:"fields"`
}

type wireRichTextIn struct {
	Text       *string        `json:"text"`
	MathFields []wireInlineIn `json:"mathFields"`
}

type wireInlineIn struct {
	Position *int    `json:"position"`
	Latex    *string `json:"latex"`
}

var jsonNull = []byte("null")

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), jsonNull)
}

// Decode parses a snapshot in any known layout and normalizes legacy shapes
// into the current one. Malformed input yields a *DecodeError.
func Decode(data []byte) (*board.Snapshot, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, newDecodeError("", "empty input", nil)
	}
	if !json.Valid(data) {
		var v any
		err := json.Unmarshal(data, &v)
		return nil, newDecodeError("", "invalid JSON", err)
	}

	switch data[0] {
	case '[':
		var groups []json.RawMessage
		if err := json.Unmarshal(data, &groups); err != nil {
			return nil, newDecodeError("", "legacy group list", err)
		}
		return decodeGroups(versionLegacyArray, groups)

	case '{':
		var head struct {
			Version *string          `json:"version"`
			Groups  *json.RawMessage `json:"groups"`
		}
		if err := json.Unmarshal(data, &head); err != nil {
			return nil, newDecodeError("", "document header", err)
		}

		version := versionLegacyObject
		if head.Version != nil {
			version = *head.Version
			if version == "" {
				return nil, newDecodeError("version", "empty version tag", nil)
			}
		}

		if head.Groups == nil {
			return nil, newDecodeError("groups", "missing group list", nil)
		}
		var groups []json.RawMessage
		if err := json.Unmarshal(*head.Groups, &groups); err != nil {
			return nil, newDecodeError("groups", "expected an array", err)
		}
		return decodeGroups(version, groups)

	default:
		return nil, newDecodeError("", "expected an object or an array", nil)
	}
}

func decodeGroups(version string, raw []json.RawMessage) (*board.Snapshot, error) {
	d, known := dialects[version]
	if !known {
		d = futureDialect
	}

	s := &board.Snapshot{Version: version, Groups: make([]board.Group, 0, len(raw))}
	if d.normalize {
		s.Version = board.CurrentVersion
	}

	for i, r := range raw {
		g, err := decodeGroup(fmt.Sprintf("groups[%d]", i), r, d)
		if err != nil {
			return nil, err
		}
		if o, ok := g.(*board.OpaqueGroup); ok {
			o.Version = version
		}
		s.Groups = append(s.Groups, g)
	}
	return s, nil
}

func decodeGroup(path string, raw json.RawMessage, d dialect) (board.Group, error) {
	if len(raw) == 0 || raw[0] != '{' {
		return nil, newDecodeError(path, "expected an object", nil)
	}

	var w wireGroupIn
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, newDecodeError(path, "group shape", err)
	}
	pos := board.Pos(w.Left, w.Top)

	var kind board.Kind
	switch {
	case w.Type != nil:
		kind = board.Kind(*w.Type)
	case d.untypedKind != "":
		kind = d.untypedKind
	default:
		return nil, newDecodeError(path, "missing group type", nil)
	}

	switch kind {
	case board.KindMath:
		fields := make([]string, 0, len(w.Fields))
		for j, f := range w.Fields {
			var latex string
			if isNull(f) {
				return nil, newDecodeError(fmt.Sprintf("%s.fields[%d]", path, j), "math field must be a string", nil)
			}
			if err := json.Unmarshal(f, &latex); err != nil {
				return nil, newDecodeError(fmt.Sprintf("%s.fields[%d]", path, j), "math field must be a string", err)
			}
			fields = append(fields, latex)
		}
		return &board.MathGroup{Position: pos, Fields: fields}, nil

	case board.KindText:
		fields := make([]board.TextField, 0, len(w.Fields))
		for j, f := range w.Fields {
			tf, err := decodeTextField(fmt.Sprintf("%s.fields[%d]", path, j), f)
			if err != nil {
				return nil, err
			}
			fields = append(fields, tf)
		}
		return &board.TextGroup{Position: pos, Fields: fields}, nil

	default:
		if !d.keepUnknown {
			return nil, newDecodeError(path, fmt.Sprintf("unknown group type %q", kind), nil)
		}
		var compact bytes.Buffer
		if err := json.Compact(&compact, raw); err != nil {
			return nil, newDecodeError(path, "group shape", err)
		}
		return &board.OpaqueGroup{Type: string(kind), Position: pos, Raw: compact.Bytes()}, nil
	}
}

func decodeTextField(path string, raw json.RawMessage) (board.TextField, error) {
	if len(raw) > 0 && raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return board.TextField{}, newDecodeError(path, "text field", err)
		}
		return board.PlainText(s), nil
	}
	if len(raw) == 0 || raw[0] != '{' {
		return board.TextField{}, newDecodeError(path, "text field must be a string or an object", nil)
	}

	var w wireRichTextIn
	if err := json.Unmarshal(raw, &w); err != nil {
		return board.TextField{}, newDecodeError(path, "rich text shape", err)
	}
	if w.Text == nil {
		return board.TextField{}, newDecodeError(path, "rich text without text", nil)
	}

	tf := board.TextField{Text: *w.Text, Rich: true, MathFields: make([]board.InlineMath, 0, len(w.MathFields))}
	for k, m := range w.MathFields {
		mpath := fmt.Sprintf("%s.mathFields[%d]", path, k)
		switch {
		case m.Position == nil:
			return board.TextField{}, newDecodeError(mpath, "inline math without position", nil)
		case m.Latex == nil:
			return board.TextField{}, newDecodeError(mpath, "inline math without latex", nil)
		case *m.Position < 0:
			return board.TextField{}, newDecodeError(mpath, "negative position", nil)
		}
		tf.MathFields = append(tf.MathFields, board.InlineMath{Position: *m.Position, Latex: *m.Latex})
	}
	return tf, nil
}
