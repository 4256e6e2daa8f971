package board

import (
	"bytes"
	"encoding/json"
	"slices"
)

// Kind identifies the variant of a Group.
type Kind string

const (
	// KindMath is a stack of LaTeX expressions.
	KindMath Kind = "math"
	// KindText is a block of prose with optional inline math.
	KindText Kind = "text"
)

// Position is the on-canvas offset of a group, in the unit the UI uses
// (CSS pixel strings such as "10px").
type Position struct {
	Left string
	Top  string
}

// Pos is shorthand for Position{Left: left, Top: top}.
func Pos(left, top string) Position {
	return Position{Left: left, Top: top}
}

// Group is one positioned unit on the canvas.
// The set of implementations is closed: MathGroup, TextGroup and OpaqueGroup.
type Group interface {
	// Kind returns the group discriminator.
	Kind() Kind
	// GroupPosition returns the group's canvas position.
	GroupPosition() Position
	// Clone returns a deep copy sharing no mutable state with the receiver.
	Clone() Group
	// Equal reports structural equality with another group.
	Equal(other Group) bool

	sealed()
}

// MathGroup is a stack of LaTeX expressions.
type MathGroup struct {
	Position Position
	Fields   []string
}

// NewMathGroup creates a math group at pos with the given fields.
func NewMathGroup(pos Position, fields ...string) *MathGroup {
	return &MathGroup{Position: pos, Fields: slices.Clone(fields)}
}

func (g *MathGroup) Kind() Kind              { return KindMath }
func (g *MathGroup) GroupPosition() Position { return g.Position }
func (g *MathGroup) sealed()                 {}

// Clone returns a deep copy of the group.
func (g *MathGroup) Clone() Group {
	return &MathGroup{Position: g.Position, Fields: slices.Clone(g.Fields)}
}

// Equal reports whether other is a math group with the same position and fields.
func (g *MathGroup) Equal(other Group) bool {
	o, ok := other.(*MathGroup)
	if !ok || o == nil {
		return false
	}
	return g.Position == o.Position && slices.Equal(g.Fields, o.Fields)
}

// InlineMath is a LaTeX expression embedded in prose at a character offset.
type InlineMath struct {
	Position int
	Latex    string
}

// TextField is one field of a text group. A plain field is a bare string;
// a rich field carries inline math anchored by character offset. The two
// forms are kept distinct so they round-trip exactly.
type TextField struct {
	Text       string
	MathFields []InlineMath
	Rich       bool
}

// PlainText returns a plain text field.
func PlainText(text string) TextField {
	return TextField{Text: text}
}

// RichText returns a structured text field with inline math.
func RichText(text string, math ...InlineMath) TextField {
	return TextField{Text: text, MathFields: slices.Clone(math), Rich: true}
}

func (f TextField) clone() TextField {
	f.MathFields = slices.Clone(f.MathFields)
	return f
}

// IsRich reports whether the field takes the structured form. A field with
// inline math is always rich.
func (f TextField) IsRich() bool {
	return f.Rich || len(f.MathFields) > 0
}

// Equal reports structural equality. A nil and an empty inline math list
// are equal.
func (f TextField) Equal(o TextField) bool {
	return f.IsRich() == o.IsRich() && f.Text == o.Text && slices.Equal(f.MathFields, o.MathFields)
}

// TextGroup is a block of prose.
type TextGroup struct {
	Position Position
	Fields   []TextField
}

// NewTextGroup creates a text group at pos with the given fields.
func NewTextGroup(pos Position, fields ...TextField) *TextGroup {
	g := &TextGroup{Position: pos, Fields: make([]TextField, len(fields))}
	for i, f := range fields {
		g.Fields[i] = f.clone()
	}
	return g
}

func (g *TextGroup) Kind() Kind              { return KindText }
func (g *TextGroup) GroupPosition() Position { return g.Position }
func (g *TextGroup) sealed()                 {}

// Clone returns a deep copy of the group.
func (g *TextGroup) Clone() Group {
	c := &TextGroup{Position: g.Position}
	if g.Fields != nil {
		c.Fields = make([]TextField, len(g.Fields))
		for i, f := range g.Fields {
			c.Fields[i] = f.clone()
		}
	}
	return c
}

// Equal reports whether other is a text group with the same position and fields.
func (g *TextGroup) Equal(other Group) bool {
	o, ok := other.(*TextGroup)
	if !ok || o == nil {
		return false
	}
	return g.Position == o.Position && slices.EqualFunc(g.Fields, o.Fields, TextField.Equal)
}

// OpaqueGroup is a group of a kind this version does not understand,
// read from a snapshot written by a newer format version. Raw holds the
// complete encoded group so it can be written back unchanged.
type OpaqueGroup struct {
	Type     string
	Position Position
	Raw      json.RawMessage

	// Version is the format version the group was read from. It is not
	// part of the group's identity and is not compared by Equal.
	Version string
}

func (g *OpaqueGroup) Kind() Kind              { return Kind(g.Type) }
func (g *OpaqueGroup) GroupPosition() Position { return g.Position }
func (g *OpaqueGroup) sealed()                 {}

// Clone returns a deep copy of the group.
func (g *OpaqueGroup) Clone() Group {
	return &OpaqueGroup{Type: g.Type, Position: g.Position, Raw: bytes.Clone(g.Raw), Version: g.Version}
}

// Equal reports whether other is an opaque group with identical content.
func (g *OpaqueGroup) Equal(other Group) bool {
	o, ok := other.(*OpaqueGroup)
	if !ok || o == nil {
		return false
	}
	return g.Type == o.Type && g.Position == o.Position && bytes.Equal(g.Raw, o.Raw)
}
