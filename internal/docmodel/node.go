package docmodel

import (
	"fmt"

	"github.com/dgallion1/docmap/internal/address"
)

// Kind names a node variant. Its text form is what mapping configs persist.
type Kind int

const (
	KindHeading Kind = iota
	KindParagraph
	KindTableHeader
	KindTableCell
)

var kindNames = [...]string{
	KindHeading:     "heading",
	KindParagraph:   "paragraph",
	KindTableHeader: "table_header",
	KindTableCell:   "table_cell",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, error) {
	for i, name := range kindNames {
		if name == s {
			return Kind(i), nil
		}
	}
	return 0, fmt.Errorf("unknown node type %q", s)
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(b []byte) error {
	parsed, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Meta is the identity every node carries.
type Meta struct {
	Address address.Address `json:"address"`
	Text    string          `json:"text"`
	Section string          `json:"section,omitempty"`
}

func (m Meta) meta() Meta { return m }

// Node is one of Heading, Paragraph, TableHeaderCell or TableCell.
type Node interface {
	meta() Meta
}

// Heading is a paragraph with a heading style or a "Section N" marker.
// Level is 0 when the style carries no trailing digits.
type Heading struct {
	Meta
	Level int
}

type Paragraph struct {
	Meta
}

// TableHeaderCell is a non-empty cell of a table's first row.
type TableHeaderCell struct {
	Meta
	Table  int
	Column int
}

type TableCell struct {
	Meta
	Table  int
	Row    int
	Column int
}

// MetaOf returns the identity of n.
func MetaOf(n Node) Meta {
	return n.meta()
}

// KindOf reports the variant of n.
func KindOf(n Node) Kind {
	switch n.(type) {
	case Heading:
		return KindHeading
	case Paragraph:
		return KindParagraph
	case TableHeaderCell:
		return KindTableHeader
	case TableCell:
		return KindTableCell
	}
	panic(fmt.Sprintf("docmodel: unknown node %T", n))
}

func withText(n Node, text string) Node {
	switch v := n.(type) {
	case Heading:
		v.Text = text
		return v
	case Paragraph:
		v.Text = text
		return v
	case TableHeaderCell:
		v.Text = text
		return v
	case TableCell:
		v.Text = text
		return v
	}
	panic(fmt.Sprintf("docmodel: unknown node %T", n))
}

// NodeInfo is the flat, serializable view of a node.
type NodeInfo struct {
	Type    Kind            `json:"type"`
	Address address.Address `json:"address"`
	Text    string          `json:"text"`
	Section string          `json:"section,omitempty"`
	Level   int             `json:"level,omitempty"`
}

// Info flattens n for display or transport.
func Info(n Node) NodeInfo {
	m := n.meta()
	info := NodeInfo{
		Type:    KindOf(n),
		Address: m.Address,
		Text:    m.Text,
		Section: m.Section,
	}
	if h, ok := n.(Heading); ok {
		info.Level = h.Level
	}
	return info
}
