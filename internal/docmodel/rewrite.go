package docmodel

import (
	"github.com/dgallion1/docmap/internal/address"
	"github.com/fumiama/go-docx"
)

// RunFormat is the subset of run formatting that rewrites carry over.
// FontSize is in half-points, as stored in w:sz ("24" is 12pt).
type RunFormat struct {
	Bold      bool   `json:"bold,omitempty"`
	Italic    bool   `json:"italic,omitempty"`
	Underline bool   `json:"underline,omitempty"`
	FontName  string `json:"font_name,omitempty"`
	FontSize  string `json:"font_size,omitempty"`
}

// Run is the text and formatting of one w:r.
type Run struct {
	Text string `json:"text"`
	RunFormat
}

// Span is one formatted piece of a rewritten paragraph.
type Span struct {
	Text      string
	Bold      bool
	Italic    bool
	Underline bool
}

// Runs returns the runs of the paragraph a rewrite at a would target.
func (m *Model) Runs(a address.Address) ([]Run, error) {
	p, err := m.paragraph(a)
	if err != nil {
		return nil, err
	}
	var out []Run
	for _, child := range p.Children {
		if r, ok := child.(*docx.Run); ok {
			out = append(out, Run{Text: runText(r), RunFormat: formatOf(r)})
		}
	}
	return out, nil
}

// SetText replaces the paragraph at a with a single run holding text. Bold,
// italic, font name and size of the previous first run are kept; underline
// is not.
func (m *Model) SetText(a address.Address, text string) error {
	p, err := m.paragraph(a)
	if err != nil {
		return err
	}
	first := firstRun(p)
	p.Children = nil
	r := addRun(p, text)
	if first == nil {
		return nil
	}
	f := formatOf(first)
	if f.Bold {
		r.Bold()
	}
	if f.Italic {
		r.Italic()
	}
	applyFont(r, f)
	return nil
}

// SetSpans replaces the paragraph at a with one run per span. The font name
// and size of the previous first run are applied to every new run.
func (m *Model) SetSpans(a address.Address, spans []Span) error {
	p, err := m.paragraph(a)
	if err != nil {
		return err
	}
	var font RunFormat
	if first := firstRun(p); first != nil {
		font = formatOf(first)
	}
	p.Children = nil

	runs := make([]*docx.Run, 0, len(spans))
	for _, s := range spans {
		r := addRun(p, s.Text)
		if s.Bold {
			r.Bold()
		}
		if s.Italic {
			r.Italic()
		}
		if s.Underline {
			r.Underline("single")
		}
		runs = append(runs, r)
	}
	for _, r := range runs {
		applyFont(r, font)
	}
	return nil
}

func firstRun(p *docx.Paragraph) *docx.Run {
	for _, child := range p.Children {
		if r, ok := child.(*docx.Run); ok {
			return r
		}
	}
	return nil
}

func addRun(p *docx.Paragraph, text string) *docx.Run {
	r := p.AddText(text)
	if r.RunProperties == nil {
		r.RunProperties = &docx.RunProperties{}
	}
	return r
}

func formatOf(r *docx.Run) RunFormat {
	rp := r.RunProperties
	if rp == nil {
		return RunFormat{}
	}
	f := RunFormat{
		Bold:      rp.Bold != nil,
		Italic:    rp.Italic != nil,
		Underline: rp.Underline != nil && rp.Underline.Val != "none",
	}
	if rp.Fonts != nil {
		switch {
		case rp.Fonts.ASCII != "":
			f.FontName = rp.Fonts.ASCII
		case rp.Fonts.HAnsi != "":
			f.FontName = rp.Fonts.HAnsi
		default:
			f.FontName = rp.Fonts.EastAsia
		}
	}
	if rp.Size != nil {
		f.FontSize = rp.Size.Val
	}
	return f
}

func applyFont(r *docx.Run, f RunFormat) {
	if f.FontName != "" {
		r.Font(f.FontName, f.FontName, f.FontName, "")
	}
	if f.FontSize != "" {
		r.Size(f.FontSize)
	}
}
