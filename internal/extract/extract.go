// Package extract reads mapped fields out of a filled document into a nested
// JSON object.
package extract

import (
	"github.com/dgallion1/docmap/internal/docmodel"
	"github.com/dgallion1/docmap/internal/fieldpath"
	"github.com/dgallion1/docmap/internal/mapping"
)

// Report lists per-field outcomes side by side. A non-empty Failed is the
// normal partial-success case, not an error.
type Report struct {
	Succeeded []string               `json:"succeeded"`
	Failed    []mapping.FieldFailure `json:"failed"`
}

// Extract reads the text at every mapped location, in sorted path order, and
// sets it into the result at the field's path.
func Extract(doc *docmodel.Model, m mapping.Mapping) (map[string]any, Report) {
	out := make(map[string]any)
	rep := Report{Succeeded: []string{}, Failed: []mapping.FieldFailure{}}

	for _, path := range m.Paths() {
		addr, err := m[path].Location.Resolve()
		if err != nil {
			rep.Failed = append(rep.Failed, mapping.FieldFailure{Path: path, Reason: err.Error()})
			continue
		}
		text, err := doc.Text(addr)
		if err != nil {
			rep.Failed = append(rep.Failed, mapping.FieldFailure{Path: path, Reason: err.Error()})
			continue
		}
		if err := fieldpath.Set(out, path, text); err != nil {
			rep.Failed = append(rep.Failed, mapping.FieldFailure{Path: path, Reason: err.Error()})
			continue
		}
		rep.Succeeded = append(rep.Succeeded, path)
	}
	return out, rep
}
