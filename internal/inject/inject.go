// Package inject writes field values into a template document at their
// mapped locations.
package inject

import (
	"errors"
	"fmt"
	"sort"

	"github.com/dgallion1/docmap/internal/docmodel"
	"github.com/dgallion1/docmap/internal/fieldpath"
	"github.com/dgallion1/docmap/internal/mapping"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"golang.org/x/net/html"
)

// Warning flags a value that was injected but looks wrong for its field.
type Warning struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// Result reports what one injection pass did. Applied counts rewritten
// locations and always equals len(Succeeded).
type Result struct {
	Applied   int                    `json:"applied"`
	Succeeded []string               `json:"succeeded"`
	Failed    []mapping.FieldFailure `json:"failed"`
	Warnings  []Warning              `json:"warnings"`
}

// Inject rewrites the mapped location of every field with a non-empty value,
// in sorted path order. Fields without a mapping entry are skipped; a field
// whose location does not resolve is recorded in Failed and the pass goes on.
func Inject(doc *docmodel.Model, m mapping.Mapping, values map[string]string) Result {
	res := Result{Succeeded: []string{}, Failed: []mapping.FieldFailure{}, Warnings: []Warning{}}

	paths := make([]string, 0, len(values))
	for p := range values {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, path := range paths {
		value := values[path]
		if value == "" {
			continue
		}
		e, err := m.Lookup(path)
		if errors.Is(err, mapping.ErrNotMapped) {
			continue
		}
		if w, ok := checkFormat(path, e.Format, value); !ok {
			res.Warnings = append(res.Warnings, w)
		}
		if err := write(doc, e, value); err != nil {
			res.Failed = append(res.Failed, mapping.FieldFailure{Path: path, Reason: err.Error()})
			continue
		}
		res.Applied++
		res.Succeeded = append(res.Succeeded, path)
	}
	return res
}

func write(doc *docmodel.Model, e mapping.Entry, value string) error {
	addr, err := e.Location.Resolve()
	if err != nil {
		return err
	}
	if !HasMarkup(value) {
		return doc.SetText(addr, value)
	}
	spans := ParseMarkup(value)
	if len(spans) == 0 {
		return doc.SetText(addr, html.UnescapeString(value))
	}
	return doc.SetSpans(addr, spans)
}

// checkFormat validates value against the field's JSON Schema format, for
// the formats the validator knows. Unknown formats always pass.
func checkFormat(path, format, value string) (Warning, bool) {
	if format == "" {
		return Warning{}, true
	}
	valid, ok := jsonschema.Formats[format]
	if !ok || valid(value) {
		return Warning{}, true
	}
	return Warning{Path: path, Message: fmt.Sprintf("value %q is not a valid %s", value, format)}, false
}

// ValuesFromData flattens nested data (a previously extracted JSON object,
// for instance) into per-field values for every mapped path. Only the first
// element of any array is read.
func ValuesFromData(data any, m mapping.Mapping) map[string]string {
	out := make(map[string]string, len(m))
	for _, path := range m.Paths() {
		v, ok := fieldpath.Get(data, path)
		if !ok {
			continue
		}
		if s := fieldpath.Format(v); s != "" {
			out[path] = s
		}
	}
	return out
}
