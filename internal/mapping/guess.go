package mapping

import (
	"regexp"
	"strings"

	"github.com/dgallion1/docmap/internal/docmodel"
	"github.com/dgallion1/docmap/internal/schema"
)

var (
	nonWordRe   = regexp.MustCompile(`[^a-z0-9_\s]`)
	separatorRe = regexp.MustCompile(`[\s_]+`)
)

// Normalize folds header or field text into a snake_case key:
// "Phone No." -> "phone_no", "Active Employee?" -> "active_employee".
// Underscores count as separators so snake_case names map to themselves.
func Normalize(s string) string {
	s = strings.ToLower(s)
	s = nonWordRe.ReplaceAllString(s, "")
	s = separatorRe.ReplaceAllString(s, "_")
	return strings.Trim(s, "_")
}

// AutoGuess maps each field to the first heading, paragraph or table header
// whose normalized text equals the normalized field name.
func AutoGuess(fields []schema.Field, nodes []docmodel.Node) Mapping {
	return Guess(nil, fields, nodes)
}

// Guess returns a copy of existing with unmapped fields filled by
// auto-guess. Existing entries are never replaced. A field only matches nodes
// in its own section; a field outside any section only matches nodes that
// precede the first section marker.
func Guess(existing Mapping, fields []schema.Field, nodes []docmodel.Node) Mapping {
	out := existing.Clone()

	type candidate struct {
		node docmodel.Node
		key  string
	}
	var candidates []candidate
	for _, n := range nodes {
		switch n.(type) {
		case docmodel.Heading, docmodel.Paragraph, docmodel.TableHeaderCell:
			candidates = append(candidates, candidate{node: n, key: Normalize(docmodel.MetaOf(n).Text)})
		}
	}

	for _, f := range fields {
		if _, ok := out[f.Path]; ok {
			continue
		}
		key := Normalize(f.Name)
		if key == "" {
			continue
		}
		for _, c := range candidates {
			if c.key != key {
				continue
			}
			if docmodel.MetaOf(c.node).Section != f.Section {
				continue
			}
			out[f.Path] = EntryFor(f, LocationOf(c.node))
			break
		}
	}
	return out
}
