package codec

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/dshills/mathboard/internal/board"
)

// Format selects the textual layout produced by Encode.
type Format int

const (
	// Compact is the single-line form used for internal persistence.
	Compact Format = iota
	// Pretty is the indented, human-readable form used for exported files.
	Pretty
)

// DefaultIndent is the indentation used by the Pretty format.
const DefaultIndent = "  "

type wireSnapshot struct {
	Version string `json:"version"`
	Groups  []any  `json:"groups"`
}

type wireGroup struct {
	Type   string `json:"type"`
	Left   string `json:"left"`
	Top    string `json:"top"`
	Fields []any  `json:"fields"`
}

type wireRichText struct {
	Text       string       `json:"text"`
	MathFields []wireInline `json:"mathFields"`
}

type wireInline struct {
	Position int    `json:"position"`
	Latex    string `json:"latex"`
}

// Encode serializes a snapshot. Output is deterministic for equal snapshots.
func Encode(s *board.Snapshot, f Format) ([]byte, error) {
	indent := ""
	if f == Pretty {
		indent = DefaultIndent
	}
	return EncodeIndent(s, indent)
}

// EncodeIndent serializes a snapshot using indent for each nesting level.
// An empty indent produces the compact form without a trailing newline.
func EncodeIndent(s *board.Snapshot, indent string) ([]byte, error) {
	if s == nil {
		return nil, ErrNilSnapshot
	}
	if s.Version == "" {
		return nil, ErrMissingVersion
	}

	out := wireSnapshot{Version: s.Version, Groups: make([]any, 0, len(s.Groups))}
	for i, g := range s.Groups {
		w, err := toWire(g)
		if err != nil {
			return nil, fmt.Errorf("encode group %d: %w", i, err)
		}
		out.Groups = append(out.Groups, w)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if indent != "" {
		enc.SetIndent("", indent)
	}
	if err := enc.Encode(out); err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}

	if indent == "" {
		return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
	}
	return buf.Bytes(), nil
}

func toWire(g board.Group) (any, error) {
	switch g := g.(type) {
	case *board.MathGroup:
		fields := make([]any, len(g.Fields))
		for i, f := range g.Fields {
			fields[i] = f
		}
		return wireGroup{Type: string(board.KindMath), Left: g.Position.Left, Top: g.Position.Top, Fields: fields}, nil

	case *board.TextGroup:
		fields := make([]any, len(g.Fields))
		for i, f := range g.Fields {
			if !f.IsRich() {
				fields[i] = f.Text
				continue
			}
			rich := wireRichText{Text: f.Text, MathFields: make([]wireInline, len(f.MathFields))}
			for j, m := range f.MathFields {
				rich.MathFields[j] = wireInline(m)
			}
			fields[i] = rich
		}
		return wireGroup{Type: string(board.KindText), Left: g.Position.Left, Top: g.Position.Top, Fields: fields}, nil

	case *board.OpaqueGroup:
		if !json.Valid(g.Raw) {
			return nil, fmt.Errorf("opaque %q group holds invalid JSON", g.Type)
		}
		return json.RawMessage(g.Raw), nil

	case nil:
		return nil, board.ErrNilGroup

	default:
		return nil, fmt.Errorf("unsupported group type %T", g)
	}
}
