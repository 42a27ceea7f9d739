// Package docmodel turns a .docx body into an ordered, addressable sequence
// of text-bearing nodes and rewrites the text at those addresses in place.
package docmodel

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/dgallion1/docmap/internal/address"
	"github.com/fumiama/go-docx"
)

var sectionPattern = regexp.MustCompile(`(?i)section\s*(\d+)`)

// Model is a parsed document. Addresses stay valid for the lifetime of the
// Model; SetText and SetSpans change run contents only.
type Model struct {
	doc    *docx.Docx
	items  []item
	tables []*table
	nodes  []Node
}

type item struct {
	para *docx.Paragraph
	node Node
}

type table struct {
	src     *docx.Table
	section string
	headers []int // header ordinal -> column in row 0
}

// TableInfo summarizes one top-level table.
type TableInfo struct {
	Index   int      `json:"index"`
	Section string   `json:"section,omitempty"`
	Rows    int      `json:"rows"`
	Headers []string `json:"headers"`
}

// IsSupportedFile reports whether name looks like a document Load can read.
func IsSupportedFile(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".docx")
}

// Load reads a .docx from r.
func Load(r io.Reader) (*Model, error) {
	// go-docx needs a ReaderAt+size.
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read docx: %w", err)
	}
	doc, err := docx.Parse(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("parse docx: %w", err)
	}
	return FromDocx(doc), nil
}

// FromDocx scans the top-level body of doc once, in order.
func FromDocx(doc *docx.Docx) *Model {
	m := &Model{doc: doc}
	section := ""

	for _, it := range doc.Document.Body.Items {
		switch el := it.(type) {
		case *docx.Paragraph:
			text := paragraphText(el)
			if text == "" {
				continue
			}
			style := styleName(el)
			isHeading := strings.HasPrefix(strings.ToLower(style), "heading")
			if sec, ok := sectionMarker(text); ok {
				section = sec
				isHeading = true
			}

			meta := Meta{Address: address.Item(len(m.items)), Text: text, Section: section}
			var n Node
			if isHeading {
				n = Heading{Meta: meta, Level: headingLevel(style)}
			} else {
				n = Paragraph{Meta: meta}
			}
			m.items = append(m.items, item{para: el, node: n})
			m.nodes = append(m.nodes, n)

		case *docx.Table:
			m.addTable(el, section)
		}
	}
	return m
}

func (m *Model) addTable(src *docx.Table, section string) {
	t := &table{src: src, section: section}
	ti := len(m.tables)
	m.tables = append(m.tables, t)

	for r, row := range src.TableRows {
		for c, cell := range row.TableCells {
			text := cellText(cell)
			if text == "" {
				continue
			}
			if r == 0 {
				h := len(t.headers)
				t.headers = append(t.headers, c)
				m.nodes = append(m.nodes, TableHeaderCell{
					Meta:   Meta{Address: address.Header(ti, h), Text: text, Section: section},
					Table:  ti,
					Column: c,
				})
				continue
			}
			m.nodes = append(m.nodes, TableCell{
				Meta:   Meta{Address: address.Cell(ti, r, c), Text: text, Section: section},
				Table:  ti,
				Row:    r,
				Column: c,
			})
		}
	}
}

// Docx returns the underlying document.
func (m *Model) Docx() *docx.Docx {
	return m.doc
}

// WriteTo serializes the (possibly rewritten) document as .docx.
func (m *Model) WriteTo(w io.Writer) (int64, error) {
	return m.doc.WriteTo(w)
}

// Nodes returns every node in reading order: headings and paragraphs, then
// for each table its header cells and non-empty body cells row by row.
// Text is as parsed.
func (m *Model) Nodes() []Node {
	out := make([]Node, len(m.nodes))
	copy(out, m.nodes)
	return out
}

// Items returns the heading/paragraph sequence that item[n] indexes.
func (m *Model) Items() []Node {
	out := make([]Node, len(m.items))
	for i, it := range m.items {
		out[i] = it.node
	}
	return out
}

// Tables lists the top-level tables in document order.
func (m *Model) Tables() []TableInfo {
	out := make([]TableInfo, len(m.tables))
	for i, t := range m.tables {
		headers := make([]string, len(t.headers))
		for h, c := range t.headers {
			headers[h] = cellText(t.src.TableRows[0].TableCells[c])
		}
		out[i] = TableInfo{Index: i, Section: t.section, Rows: len(t.src.TableRows), Headers: headers}
	}
	return out
}

// Locate resolves a and returns its node with the current text.
func (m *Model) Locate(a address.Address) (Node, error) {
	switch a.Kind {
	case address.KindItem:
		if a.Item < 0 || a.Item >= len(m.items) {
			return nil, &address.OutOfRangeError{Addr: a, Len: len(m.items)}
		}
		it := m.items[a.Item]
		return withText(it.node, paragraphText(it.para)), nil

	case address.KindHeader:
		t, err := m.table(a)
		if err != nil {
			return nil, err
		}
		if a.Header < 0 || a.Header >= len(t.headers) {
			return nil, &address.OutOfRangeError{Addr: a, Len: len(t.headers)}
		}
		col := t.headers[a.Header]
		return TableHeaderCell{
			Meta:   Meta{Address: a, Text: cellText(t.src.TableRows[0].TableCells[col]), Section: t.section},
			Table:  a.Table,
			Column: col,
		}, nil

	case address.KindCell:
		t, err := m.table(a)
		if err != nil {
			return nil, err
		}
		cell, err := t.cell(a)
		if err != nil {
			return nil, err
		}
		return TableCell{
			Meta:   Meta{Address: a, Text: cellText(cell), Section: t.section},
			Table:  a.Table,
			Row:    a.Row,
			Column: a.Cell,
		}, nil
	}
	return nil, &address.FormatError{Input: a.String(), Reason: "unknown address kind"}
}

// Text returns the current text at a.
func (m *Model) Text(a address.Address) (string, error) {
	n, err := m.Locate(a)
	if err != nil {
		return "", err
	}
	return MetaOf(n).Text, nil
}

func (m *Model) table(a address.Address) (*table, error) {
	if a.Table < 0 || a.Table >= len(m.tables) {
		return nil, &address.OutOfRangeError{Addr: a, Len: len(m.tables)}
	}
	return m.tables[a.Table], nil
}

func (t *table) cell(a address.Address) (*docx.WTableCell, error) {
	rows := t.src.TableRows
	if a.Row < 0 || a.Row >= len(rows) {
		return nil, &address.OutOfRangeError{Addr: a, Len: len(rows)}
	}
	cells := rows[a.Row].TableCells
	if a.Cell < 0 || a.Cell >= len(cells) {
		return nil, &address.OutOfRangeError{Addr: a, Len: len(cells)}
	}
	return cells[a.Cell], nil
}

// paragraph returns the paragraph whose runs a rewrite at a replaces. For
// cells that is the first paragraph, created if the cell has none.
func (m *Model) paragraph(a address.Address) (*docx.Paragraph, error) {
	switch a.Kind {
	case address.KindItem:
		if a.Item < 0 || a.Item >= len(m.items) {
			return nil, &address.OutOfRangeError{Addr: a, Len: len(m.items)}
		}
		return m.items[a.Item].para, nil

	case address.KindHeader, address.KindCell:
		t, err := m.table(a)
		if err != nil {
			return nil, err
		}
		ca := a
		if a.Kind == address.KindHeader {
			if a.Header < 0 || a.Header >= len(t.headers) {
				return nil, &address.OutOfRangeError{Addr: a, Len: len(t.headers)}
			}
			ca = address.Cell(a.Table, 0, t.headers[a.Header])
		}
		cell, err := t.cell(ca)
		if err != nil {
			return nil, err
		}
		if len(cell.Paragraphs) == 0 {
			cell.Paragraphs = append(cell.Paragraphs, &docx.Paragraph{})
		}
		return cell.Paragraphs[0], nil
	}
	return nil, &address.FormatError{Input: a.String(), Reason: "unknown address kind"}
}

func styleName(p *docx.Paragraph) string {
	if p.Properties == nil || p.Properties.Style == nil {
		return ""
	}
	return p.Properties.Style.Val
}

// headingLevel reads the trailing digits of a heading style ("Heading2",
// "heading 3"). Zero means not derivable.
func headingLevel(style string) int {
	end := len(style)
	start := end
	for start > 0 && style[start-1] >= '0' && style[start-1] <= '9' {
		start--
	}
	if start == end {
		return 0
	}
	n, err := strconv.Atoi(style[start:end])
	if err != nil {
		return 0
	}
	return n
}

// sectionMarker maps "Section 3" to "section_03".
func sectionMarker(text string) (string, bool) {
	sm := sectionPattern.FindStringSubmatch(text)
	if sm == nil {
		return "", false
	}
	num := sm[1]
	if len(num) < 2 {
		num = strings.Repeat("0", 2-len(num)) + num
	}
	return "section_" + num, true
}

func paragraphText(p *docx.Paragraph) string {
	var buf strings.Builder
	for _, child := range p.Children {
		if run, ok := child.(*docx.Run); ok {
			buf.WriteString(runText(run))
		}
	}
	return strings.TrimSpace(buf.String())
}

func runText(r *docx.Run) string {
	var buf strings.Builder
	for _, rc := range r.Children {
		switch c := rc.(type) {
		case *docx.Text:
			buf.WriteString(c.Text)
		case *docx.BarterRabbet:
			buf.WriteString("\n")
		case *docx.Tab:
			buf.WriteString("\t")
		}
	}
	return buf.String()
}

func cellText(c *docx.WTableCell) string {
	parts := make([]string, 0, len(c.Paragraphs))
	for _, p := range c.Paragraphs {
		parts = append(parts, paragraphText(p))
	}
	return strings.TrimSpace(strings.Join(parts, "\n"))
}
