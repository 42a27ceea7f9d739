// Package docmodeltest builds in-memory documents for tests.
package docmodeltest

import (
	"bytes"

	"github.com/dgallion1/docmap/internal/docmodel"
	"github.com/fumiama/go-docx"
)

// Builder appends body elements to a fresh document.
type Builder struct {
	doc *docx.Docx
}

func New() *Builder {
	return &Builder{doc: docx.New()}
}

// Styled adds a paragraph with the given style id ("Heading1", "Title").
func (b *Builder) Styled(style, text string) *Builder {
	p := b.doc.AddParagraph()
	p.Properties = &docx.ParagraphProperties{Style: &docx.Style{Val: style}}
	p.AddText(text)
	return b
}

// Para adds a plain paragraph. An empty text adds a paragraph with no runs.
func (b *Builder) Para(text string) *Builder {
	p := b.doc.AddParagraph()
	if text != "" {
		p.AddText(text)
	}
	return b
}

// Formatted adds a paragraph whose single run carries f.
func (b *Builder) Formatted(text string, f docmodel.RunFormat) *Builder {
	p := b.doc.AddParagraph()
	r := p.AddText(text)
	if r.RunProperties == nil {
		r.RunProperties = &docx.RunProperties{}
	}
	if f.Bold {
		r.Bold()
	}
	if f.Italic {
		r.Italic()
	}
	if f.Underline {
		r.Underline("single")
	}
	if f.FontName != "" {
		r.Font(f.FontName, f.FontName, f.FontName, "")
	}
	if f.FontSize != "" {
		r.Size(f.FontSize)
	}
	return b
}

// Table adds a table; each argument is one row of cell texts. Empty strings
// become cells with an empty paragraph.
func (b *Builder) Table(rows ...[]string) *Builder {
	tbl := &docx.Table{}
	for _, row := range rows {
		tr := &docx.WTableRow{}
		for _, text := range row {
			p := &docx.Paragraph{}
			if text != "" {
				p.AddText(text)
			}
			tr.TableCells = append(tr.TableCells, &docx.WTableCell{Paragraphs: []*docx.Paragraph{p}})
		}
		tbl.TableRows = append(tbl.TableRows, tr)
	}
	b.doc.Document.Body.Items = append(b.doc.Document.Body.Items, tbl)
	return b
}

func (b *Builder) Docx() *docx.Docx {
	return b.doc
}

// Model parses the built document without serializing it.
func (b *Builder) Model() *docmodel.Model {
	return docmodel.FromDocx(b.doc)
}

// Bytes serializes the built document as .docx.
func (b *Builder) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := b.doc.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
