package docmodel_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"github.com/dgallion1/docmap/internal/address"
	"github.com/dgallion1/docmap/internal/docmodel"
	"github.com/dgallion1/docmap/internal/docmodel/docmodeltest"
)

func locate(t *testing.T, m *docmodel.Model, a address.Address) docmodel.Node {
	t.Helper()
	n, err := m.Locate(a)
	if err != nil {
		t.Fatalf("Locate(%s): unexpected error: %v", a, err)
	}
	return n
}

func TestFromDocx_SectionPropagation(t *testing.T) {
	m := docmodeltest.New().
		Para("Preamble").
		Styled("Heading1", "Section 2").
		Para("x").
		Table([]string{"Name", "Phone No."}, []string{"Alex", "123"}).
		Model()

	pre := locate(t, m, address.Item(0))
	if docmodel.MetaOf(pre).Section != "" {
		t.Errorf("expected no section before first marker, got %q", docmodel.MetaOf(pre).Section)
	}

	heading, ok := locate(t, m, address.Item(1)).(docmodel.Heading)
	if !ok {
		t.Fatalf("expected item[1] to be a Heading")
	}
	if heading.Section != "section_02" || heading.Level != 1 {
		t.Errorf("unexpected heading: %+v", heading)
	}

	para, ok := locate(t, m, address.Item(2)).(docmodel.Paragraph)
	if !ok {
		t.Fatalf("expected item[2] to be a Paragraph")
	}
	if para.Section != "section_02" {
		t.Errorf("expected paragraph section section_02, got %q", para.Section)
	}

	tables := m.Tables()
	if len(tables) != 1 || tables[0].Section != "section_02" {
		t.Fatalf("expected one table in section_02, got %+v", tables)
	}
	if !reflect.DeepEqual(tables[0].Headers, []string{"Name", "Phone No."}) {
		t.Errorf("unexpected headers %v", tables[0].Headers)
	}
	cell := locate(t, m, address.Cell(0, 1, 1))
	if docmodel.MetaOf(cell).Section != "section_02" {
		t.Errorf("expected cell section section_02, got %q", docmodel.MetaOf(cell).Section)
	}
}

func TestFromDocx_OrdinalsSkipTablesAndEmptyParagraphs(t *testing.T) {
	m := docmodeltest.New().
		Para("first").
		Table([]string{"h"}, []string{"v"}).
		Para("").
		Para("   ").
		Para("second").
		Table([]string{"h2"}).
		Para("third").
		Model()

	want := []string{"first", "second", "third"}
	items := m.Items()
	if len(items) != len(want) {
		t.Fatalf("expected %d items, got %d", len(want), len(items))
	}
	for i, w := range want {
		n := locate(t, m, address.Item(i))
		if got := docmodel.MetaOf(n).Text; got != w {
			t.Errorf("item[%d]: expected %q, got %q", i, w, got)
		}
	}

	_, err := m.Locate(address.Item(3))
	var oor *address.OutOfRangeError
	if !errors.As(err, &oor) {
		t.Fatalf("expected *OutOfRangeError, got %v", err)
	}
	if oor.Len != 3 {
		t.Errorf("expected Len=3, got %d", oor.Len)
	}
}

func TestFromDocx_HeadingDetection(t *testing.T) {
	m := docmodeltest.New().
		Styled("Heading2", "Overview").
		Styled("heading 3", "Detail").
		Para("Section 3 - Participants").
		Para("see SECTION12 notes").
		Styled("Title", "Section 123").
		Para("sectional text").
		Model()

	tests := []struct {
		addr    address.Address
		heading bool
		level   int
		section string
	}{
		{address.Item(0), true, 2, ""},
		{address.Item(1), true, 3, ""},
		{address.Item(2), true, 0, "section_03"},
		{address.Item(3), true, 0, "section_12"},
		{address.Item(4), true, 0, "section_123"},
		{address.Item(5), false, 0, "section_123"},
	}
	for _, tc := range tests {
		t.Run(tc.addr.String(), func(t *testing.T) {
			n := locate(t, m, tc.addr)
			h, isHeading := n.(docmodel.Heading)
			if isHeading != tc.heading {
				t.Fatalf("expected heading=%v, got %T", tc.heading, n)
			}
			if isHeading && h.Level != tc.level {
				t.Errorf("expected level %d, got %d", tc.level, h.Level)
			}
			if s := docmodel.MetaOf(n).Section; s != tc.section {
				t.Errorf("expected section %q, got %q", tc.section, s)
			}
		})
	}
}

func TestFromDocx_TableAddressing(t *testing.T) {
	m := docmodeltest.New().
		Table(
			[]string{"Name", "", "Email Address"},
			[]string{"Alex", "x", ""},
			[]string{"Sam"},
		).
		Model()

	h1, ok := locate(t, m, address.Header(0, 1)).(docmodel.TableHeaderCell)
	if !ok {
		t.Fatalf("expected TableHeaderCell")
	}
	if h1.Text != "Email Address" || h1.Column != 2 {
		t.Errorf("expected header[1] to be column 2 Email Address, got %+v", h1)
	}

	c, ok := locate(t, m, address.Cell(0, 0, 0)).(docmodel.TableCell)
	if !ok {
		t.Fatalf("expected TableCell")
	}
	if c.Text != "Name" || c.Row != 0 {
		t.Errorf("unexpected cell %+v", c)
	}

	empty := locate(t, m, address.Cell(0, 1, 2))
	if docmodel.MetaOf(empty).Text != "" {
		t.Errorf("expected empty cell text, got %q", docmodel.MetaOf(empty).Text)
	}

	bad := []address.Address{
		address.Header(0, 2),
		address.Header(1, 0),
		address.Cell(0, 3, 0),
		address.Cell(0, 2, 1),
		address.Cell(4, 0, 0),
	}
	for _, a := range bad {
		_, err := m.Locate(a)
		var oor *address.OutOfRangeError
		if !errors.As(err, &oor) {
			t.Errorf("Locate(%s): expected *OutOfRangeError, got %v", a, err)
		}
	}
}

func TestModel_NodesReadingOrder(t *testing.T) {
	m := docmodeltest.New().
		Styled("Heading1", "Section 1").
		Para("Intro").
		Table([]string{"A", "B"}, []string{"a1", ""}, []string{"", "b2"}).
		Para("Outro").
		Model()

	var got []string
	for _, n := range m.Nodes() {
		info := docmodel.Info(n)
		got = append(got, info.Type.String()+" "+info.Address.String()+" "+info.Text)
	}
	want := []string{
		"heading item[0] Section 1",
		"paragraph item[1] Intro",
		"table_header table[0]/header[0] A",
		"table_header table[0]/header[1] B",
		"table_cell table[0]/row[1]/cell[0] a1",
		"table_cell table[0]/row[2]/cell[1] b2",
		"paragraph item[2] Outro",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected node order:\n got  %q\n want %q", got, want)
	}
}

func TestModel_SetTextPreservesFormatting(t *testing.T) {
	m := docmodeltest.New().
		Formatted("Old title", docmodel.RunFormat{Bold: true, FontName: "Calibri", FontSize: "24"}).
		Model()

	if err := m.SetText(address.Item(0), "Hello"); err != nil {
		t.Fatalf("SetText: %v", err)
	}
	runs, err := m.Runs(address.Item(0))
	if err != nil {
		t.Fatalf("Runs: %v", err)
	}
	want := []docmodel.Run{{Text: "Hello", RunFormat: docmodel.RunFormat{Bold: true, FontName: "Calibri", FontSize: "24"}}}
	if !reflect.DeepEqual(runs, want) {
		t.Errorf("expected %+v, got %+v", want, runs)
	}
	if text, _ := m.Text(address.Item(0)); text != "Hello" {
		t.Errorf("expected live text Hello, got %q", text)
	}
}

func TestModel_SetTextDropsUnderline(t *testing.T) {
	m := docmodeltest.New().
		Formatted("u", docmodel.RunFormat{Italic: true, Underline: true}).
		Model()

	if err := m.SetText(address.Item(0), "plain"); err != nil {
		t.Fatalf("SetText: %v", err)
	}
	runs, _ := m.Runs(address.Item(0))
	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}
	if !runs[0].Italic || runs[0].Underline {
		t.Errorf("expected italic without underline, got %+v", runs[0].RunFormat)
	}
}

func TestModel_SetTextOnCellsKeepsStructure(t *testing.T) {
	m := docmodeltest.New().
		Para("p").
		Table([]string{"Name", "Phone"}, []string{"", ""}).
		Model()
	before := len(m.Nodes())

	if err := m.SetText(address.Cell(0, 1, 1), "555"); err != nil {
		t.Fatalf("SetText cell: %v", err)
	}
	if err := m.SetText(address.Header(0, 0), "Full Name"); err != nil {
		t.Fatalf("SetText header: %v", err)
	}

	if text, _ := m.Text(address.Cell(0, 1, 1)); text != "555" {
		t.Errorf("expected 555, got %q", text)
	}
	if text, _ := m.Text(address.Cell(0, 0, 0)); text != "Full Name" {
		t.Errorf("expected header rewrite visible at row[0]/cell[0], got %q", text)
	}
	if len(m.Nodes()) != before || len(m.Items()) != 1 {
		t.Errorf("node structure changed after SetText")
	}

	var oor *address.OutOfRangeError
	if err := m.SetText(address.Item(1), "x"); !errors.As(err, &oor) {
		t.Errorf("expected *OutOfRangeError, got %v", err)
	}
}

func TestModel_SetSpansReappliesFont(t *testing.T) {
	m := docmodeltest.New().
		Formatted("old", docmodel.RunFormat{Bold: true, FontName: "Arial", FontSize: "20"}).
		Model()

	spans := []docmodel.Span{{Text: "a "}, {Text: "b", Bold: true}, {Text: "c", Underline: true}}
	if err := m.SetSpans(address.Item(0), spans); err != nil {
		t.Fatalf("SetSpans: %v", err)
	}
	runs, _ := m.Runs(address.Item(0))
	want := []docmodel.Run{
		{Text: "a ", RunFormat: docmodel.RunFormat{FontName: "Arial", FontSize: "20"}},
		{Text: "b", RunFormat: docmodel.RunFormat{Bold: true, FontName: "Arial", FontSize: "20"}},
		{Text: "c", RunFormat: docmodel.RunFormat{Underline: true, FontName: "Arial", FontSize: "20"}},
	}
	if !reflect.DeepEqual(runs, want) {
		t.Errorf("unexpected runs:\n got  %+v\n want %+v", runs, want)
	}
}

func TestModel_BreaksAndTabsReadBack(t *testing.T) {
	m := docmodeltest.New().Para("placeholder").Table([]string{"Head", ""}).Model()

	tests := []struct {
		name string
		addr address.Address
		in   string
	}{
		{"paragraph break", address.Item(0), "line one\nline two"},
		{"paragraph tab", address.Item(0), "a\tb"},
		{"cell break", address.Cell(0, 0, 1), "x\ny"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if err := m.SetText(tc.addr, tc.in); err != nil {
				t.Fatalf("SetText: %v", err)
			}
			got, err := m.Text(tc.addr)
			if err != nil || got != tc.in {
				t.Errorf("expected %q, got %q (%v)", tc.in, got, err)
			}
		})
	}

	spans := []docmodel.Span{{Text: "a"}, {Text: "\n"}, {Text: "b"}}
	if err := m.SetSpans(address.Item(0), spans); err != nil {
		t.Fatalf("SetSpans: %v", err)
	}
	runs, _ := m.Runs(address.Item(0))
	if len(runs) != 3 || runs[1].Text != "\n" {
		t.Errorf("expected break run to read back as newline, got %+v", runs)
	}
}

func TestKind_JSON(t *testing.T) {
	data, err := json.Marshal(docmodel.KindTableHeader)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `"table_header"` {
		t.Errorf("unexpected json %s", data)
	}
	var k docmodel.Kind
	if err := json.Unmarshal([]byte(`"heading"`), &k); err != nil || k != docmodel.KindHeading {
		t.Errorf("expected KindHeading, got %v (err %v)", k, err)
	}
	if err := json.Unmarshal([]byte(`"figure"`), &k); err == nil {
		t.Error("expected error for unknown kind")
	}
}

func TestLoad_RoundTrip(t *testing.T) {
	data, err := docmodeltest.New().
		Styled("Heading1", "Section 1").
		Para("Title").
		Bytes()
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}

	m, err := docmodel.Load(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	items := m.Items()
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if docmodel.MetaOf(items[1]).Text != "Title" || docmodel.MetaOf(items[1]).Section != "section_01" {
		t.Errorf("unexpected item[1]: %+v", docmodel.Info(items[1]))
	}
}

func TestLoad_NotADocx(t *testing.T) {
	if _, err := docmodel.Load(bytes.NewReader([]byte("plain text"))); err == nil {
		t.Error("expected error for non-docx input")
	}
}

func TestIsSupportedFile(t *testing.T) {
	for name, want := range map[string]bool{
		"report.docx": true,
		"REPORT.DOCX": true,
		"report.doc":  false,
		"report.pdf":  false,
		"docx":        false,
	} {
		if got := docmodel.IsSupportedFile(name); got != want {
			t.Errorf("IsSupportedFile(%q) = %v, want %v", name, got, want)
		}
	}
}
