package inject

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"

	"github.com/dgallion1/docmap/internal/address"
	"github.com/dgallion1/docmap/internal/docmodel"
	"github.com/dgallion1/docmap/internal/docmodel/docmodeltest"
	"github.com/dgallion1/docmap/internal/mapping"
)

func entry(a address.Address) mapping.Entry {
	return mapping.Entry{Location: mapping.Location{Address: a}}
}

func TestHasMarkup(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"plain", false},
		{"a < b", false},
		{"<b>x</b>", true},
		{"line<BR>", true},
		{"<span>x</span>", true},
	}
	for _, tc := range tests {
		if got := HasMarkup(tc.in); got != tc.want {
			t.Errorf("HasMarkup(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestParseMarkup(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []docmodel.Span
	}{
		{
			name: "bold italic break",
			in:   "A <b>bold</b> and <i>italic</i> word<br>next line",
			want: []docmodel.Span{
				{Text: "A "},
				{Text: "bold", Bold: true},
				{Text: " and "},
				{Text: "italic", Italic: true},
				{Text: " word"},
				{Text: "\n"},
				{Text: "next line"},
			},
		},
		{
			name: "aliases and case",
			in:   "<STRONG>s</STRONG><em>e</em><u>u</u>",
			want: []docmodel.Span{
				{Text: "s", Bold: true},
				{Text: "e", Italic: true},
				{Text: "u", Underline: true},
			},
		},
		{
			name: "nested",
			in:   "<b>a<i>b</i></b>",
			want: []docmodel.Span{
				{Text: "a", Bold: true},
				{Text: "b", Bold: true, Italic: true},
			},
		},
		{
			name: "unknown and attributed tags stay literal",
			in:   `<span class="x">Fish &amp; Chips</span>`,
			want: []docmodel.Span{
				{Text: `<span class="x">Fish & Chips</span>`},
			},
		},
		{
			name: "attributed tag in plain text",
			in:   "see <foo bar> now",
			want: []docmodel.Span{{Text: "see <foo bar> now"}},
		},
		{
			name: "attributed bold is not bold",
			in:   `x <b class="a">y</b>`,
			want: []docmodel.Span{{Text: `x <b class="a">y`}},
		},
		{
			name: "break forms",
			in:   "a<br/>b</br>c",
			want: []docmodel.Span{
				{Text: "a"},
				{Text: "\n"},
				{Text: "b"},
				{Text: "\n"},
				{Text: "c"},
			},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := ParseMarkup(tc.in)
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("unexpected spans:\n got  %+v\n want %+v", got, tc.want)
			}
		})
	}
}

func TestInject_PreservesFormatting(t *testing.T) {
	doc := docmodeltest.New().
		Formatted("placeholder", docmodel.RunFormat{Bold: true, FontName: "Calibri", FontSize: "24"}).
		Model()
	m := mapping.Mapping{"greeting": entry(address.Item(0))}

	res := Inject(doc, m, map[string]string{"greeting": "Hello"})
	if res.Applied != 1 {
		t.Fatalf("expected 1 applied, got %+v", res)
	}

	runs, err := doc.Runs(address.Item(0))
	if err != nil {
		t.Fatalf("runs: %v", err)
	}
	want := []docmodel.Run{{Text: "Hello", RunFormat: docmodel.RunFormat{Bold: true, FontName: "Calibri", FontSize: "24"}}}
	if !reflect.DeepEqual(runs, want) {
		t.Errorf("unexpected runs:\n got  %+v\n want %+v", runs, want)
	}
}

func TestInject_MarkupRuns(t *testing.T) {
	doc := docmodeltest.New().
		Formatted("placeholder", docmodel.RunFormat{FontName: "Arial", FontSize: "20"}).
		Model()
	m := mapping.Mapping{"body": entry(address.Item(0))}

	res := Inject(doc, m, map[string]string{"body": "A <b>bold</b> and <i>italic</i> word<br>next line"})
	if res.Applied != 1 {
		t.Fatalf("expected 1 applied, got %+v", res)
	}

	runs, err := doc.Runs(address.Item(0))
	if err != nil {
		t.Fatalf("runs: %v", err)
	}
	var texts []string
	for _, r := range runs {
		texts = append(texts, r.Text)
		if r.FontName != "Arial" || r.FontSize != "20" {
			t.Errorf("run %q lost font: %+v", r.Text, r.RunFormat)
		}
	}
	wantTexts := []string{"A ", "bold", " and ", "italic", " word", "\n", "next line"}
	if !reflect.DeepEqual(texts, wantTexts) {
		t.Fatalf("expected %q, got %q", wantTexts, texts)
	}
	if !runs[1].Bold || runs[0].Bold || runs[2].Bold {
		t.Error("expected only the second run bold")
	}
	if !runs[3].Italic || runs[1].Italic {
		t.Error("expected only the fourth run italic")
	}
}

func TestInject_PerFieldOutcomes(t *testing.T) {
	doc := docmodeltest.New().
		Para("Name").
		Para("Due").
		Table([]string{"Email", ""}).
		Model()
	m := mapping.Mapping{
		"name":  entry(address.Item(0)),
		"due":   {Format: "date", Location: mapping.Location{Address: address.Item(1)}},
		"email": {Format: "email", Location: mapping.Location{Address: address.Cell(0, 0, 1)}},
		"gone":  entry(address.Item(9)),
	}
	values := map[string]string{
		"name":     "Alex",
		"due":      "soon",
		"email":    "alex@example.com",
		"gone":     "x",
		"unmapped": "ignored",
		"blank":    "",
	}

	res := Inject(doc, m, values)

	if res.Applied != 3 || !reflect.DeepEqual(res.Succeeded, []string{"due", "email", "name"}) {
		t.Errorf("unexpected success: %d %v", res.Applied, res.Succeeded)
	}
	if len(res.Failed) != 1 || res.Failed[0].Path != "gone" {
		t.Errorf("expected gone to fail, got %+v", res.Failed)
	}
	if len(res.Warnings) != 1 || res.Warnings[0].Path != "due" {
		t.Errorf("expected a date warning for due, got %+v", res.Warnings)
	}

	for addr, want := range map[address.Address]string{
		address.Item(0):       "Alex",
		address.Item(1):       "soon",
		address.Cell(0, 0, 1): "alex@example.com",
	} {
		got, err := doc.Text(addr)
		if err != nil || got != want {
			t.Errorf("%s: expected %q, got %q (%v)", addr, want, got, err)
		}
	}
}

func TestValuesFromData(t *testing.T) {
	var data any
	if err := json.Unmarshal([]byte(`{
	  "title": "Report",
	  "active": false,
	  "count": 4,
	  "note": null,
	  "section_02": {"participants": [{"name": "Alex"}, {"name": "Sam"}]}
	}`), &data); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	m := mapping.Mapping{
		"title":                          entry(address.Item(0)),
		"active":                         entry(address.Item(1)),
		"count":                          entry(address.Item(2)),
		"note":                           entry(address.Item(3)),
		"missing":                        entry(address.Item(4)),
		"section_02.participants[].name": entry(address.Item(5)),
	}

	got := ValuesFromData(data, m)
	want := map[string]string{
		"title":                          "Report",
		"active":                         "false",
		"count":                          "4",
		"section_02.participants[].name": "Alex",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestInject_MalformedIndexFailsOnlyItsField(t *testing.T) {
	doc := docmodeltest.New().Para("Name").Para("Role").Model()
	m, err := mapping.Load(strings.NewReader(`{
	  "name": {"field_name": "name", "document_location": {"index": "item[0]", "type": "paragraph"}},
	  "role": {"field_name": "role", "document_location": {"index": "item[zz", "type": "paragraph"}}
	}`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	res := Inject(doc, m, map[string]string{"name": "Alex", "role": "Lead"})
	if res.Applied != 1 || !reflect.DeepEqual(res.Succeeded, []string{"name"}) {
		t.Errorf("expected only name applied, got %+v", res)
	}
	if len(res.Failed) != 1 || res.Failed[0].Path != "role" || !strings.Contains(res.Failed[0].Reason, "malformed address") {
		t.Errorf("expected role to fail with a malformed address, got %+v", res.Failed)
	}
	if got, _ := doc.Text(address.Item(1)); got != "Role" {
		t.Errorf("expected item[1] untouched, got %q", got)
	}
}
