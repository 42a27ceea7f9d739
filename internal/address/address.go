// Package address implements the canonical string form used to point at one
// text-bearing location inside a parsed document.
//
// Three shapes exist:
//
//	item[n]                  n-th heading/paragraph in body order (tables excluded)
//	table[t]/header[h]       h-th non-empty cell of the first row of table t
//	table[t]/row[r]/cell[c]  any cell of table t
package address

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind discriminates the address shapes.
type Kind int

const (
	KindItem Kind = iota
	KindHeader
	KindCell
)

func (k Kind) String() string {
	switch k {
	case KindItem:
		return "item"
	case KindHeader:
		return "header"
	case KindCell:
		return "cell"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Address identifies one location in a document. Compare with ==.
type Address struct {
	Kind   Kind
	Item   int // KindItem
	Table  int // KindHeader, KindCell
	Header int // KindHeader
	Row    int // KindCell
	Cell   int // KindCell
}

// Item addresses the n-th heading/paragraph.
func Item(n int) Address {
	return Address{Kind: KindItem, Item: n}
}

// Header addresses the h-th non-empty header cell of table t.
func Header(t, h int) Address {
	return Address{Kind: KindHeader, Table: t, Header: h}
}

// Cell addresses row r, column c of table t.
func Cell(t, r, c int) Address {
	return Address{Kind: KindCell, Table: t, Row: r, Cell: c}
}

func (a Address) String() string {
	switch a.Kind {
	case KindHeader:
		return fmt.Sprintf("table[%d]/header[%d]", a.Table, a.Header)
	case KindCell:
		return fmt.Sprintf("table[%d]/row[%d]/cell[%d]", a.Table, a.Row, a.Cell)
	default:
		return fmt.Sprintf("item[%d]", a.Item)
	}
}

// MarshalText writes the canonical string form.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText parses the canonical string form.
func (a *Address) UnmarshalText(b []byte) error {
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Parse reads an address string. Malformed input yields a *FormatError.
func Parse(s string) (Address, error) {
	parts := strings.Split(strings.TrimSpace(s), "/")
	segs := make([]segment, 0, len(parts))
	for _, p := range parts {
		seg, err := parseSegment(p)
		if err != nil {
			return Address{}, &FormatError{Input: s, Reason: err.Error()}
		}
		segs = append(segs, seg)
	}

	switch {
	case len(segs) == 1 && segs[0].name == "item":
		return Item(segs[0].index), nil
	case len(segs) == 2 && segs[0].name == "table" && segs[1].name == "header":
		return Header(segs[0].index, segs[1].index), nil
	case len(segs) == 3 && segs[0].name == "table" && segs[1].name == "row" && segs[2].name == "cell":
		return Cell(segs[0].index, segs[1].index, segs[2].index), nil
	}
	return Address{}, &FormatError{Input: s, Reason: "unknown address shape"}
}

type segment struct {
	name  string
	index int
}

// parseSegment reads name[index] with a non-negative decimal index.
func parseSegment(p string) (segment, error) {
	open := strings.IndexByte(p, '[')
	if open <= 0 {
		return segment{}, fmt.Errorf("segment %q: missing '['", p)
	}
	if !strings.HasSuffix(p, "]") {
		return segment{}, fmt.Errorf("segment %q: missing ']'", p)
	}
	digits := p[open+1 : len(p)-1]
	if digits == "" {
		return segment{}, fmt.Errorf("segment %q: empty index", p)
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return segment{}, fmt.Errorf("segment %q: non-numeric index", p)
		}
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return segment{}, fmt.Errorf("segment %q: %w", p, err)
	}
	return segment{name: p[:open], index: n}, nil
}
