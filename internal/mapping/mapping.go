// Package mapping holds the correspondence between schema field paths and
// document locations, its persisted JSON form, and the auto-guess heuristic.
package mapping

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/dgallion1/docmap/internal/address"
	"github.com/dgallion1/docmap/internal/docmodel"
	"github.com/dgallion1/docmap/internal/schema"
)

// ErrNotMapped is returned by Lookup for fields without an entry.
var ErrNotMapped = errors.New("field not mapped")

// Location is a snapshot of the node a field points at. It stands on its own
// once persisted; the live document is only needed to resolve Address.
//
// A persisted index that does not parse is kept, so the rest of the mapping
// still loads; Resolve reports it for this entry only.
type Location struct {
	Address address.Address
	Text    string
	Type    docmodel.Kind
	Section string

	raw    string
	badIdx error
}

type locationJSON struct {
	Index   json.RawMessage `json:"index"`
	Text    string          `json:"text"`
	Type    docmodel.Kind   `json:"type"`
	Section *string         `json:"section"`
}

// Resolve returns the location's address, or the error its persisted index
// failed to parse with.
func (l Location) Resolve() (address.Address, error) {
	if l.badIdx != nil {
		return address.Address{}, l.badIdx
	}
	return l.Address, nil
}

// MarshalJSON writes {index, text, type, section}; an empty section is null.
// An index that failed to parse is written back unchanged.
func (l Location) MarshalJSON() ([]byte, error) {
	idx := l.Address.String()
	if l.badIdx != nil {
		idx = l.raw
	}
	rawIdx, err := json.Marshal(idx)
	if err != nil {
		return nil, err
	}
	out := locationJSON{Index: rawIdx, Text: l.Text, Type: l.Type}
	if l.Section != "" {
		s := l.Section
		out.Section = &s
	}
	return json.Marshal(out)
}

func (l *Location) UnmarshalJSON(b []byte) error {
	var in locationJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	*l = Location{Text: in.Text, Type: in.Type}
	if in.Section != nil {
		l.Section = *in.Section
	}

	var idx string
	if err := json.Unmarshal(in.Index, &idx); err != nil {
		l.raw = string(in.Index)
		l.badIdx = &address.FormatError{Input: l.raw, Reason: "index must be an address string"}
		return nil
	}
	a, err := address.Parse(idx)
	if err != nil {
		l.raw = idx
		l.badIdx = err
		return nil
	}
	l.Address = a
	return nil
}

// LocationOf snapshots n.
func LocationOf(n docmodel.Node) Location {
	m := docmodel.MetaOf(n)
	return Location{
		Address: m.Address,
		Text:    m.Text,
		Type:    docmodel.KindOf(n),
		Section: m.Section,
	}
}

// Entry is one persisted field mapping.
type Entry struct {
	FieldName string   `json:"field_name"`
	Group     string   `json:"group"`
	Format    string   `json:"format,omitempty"`
	Location  Location `json:"document_location"`
}

// EntryFor builds the entry mapping f onto loc.
func EntryFor(f schema.Field, loc Location) Entry {
	return Entry{
		FieldName: f.Name,
		Group:     f.Group,
		Format:    f.Format,
		Location:  loc,
	}
}

// Mapping is keyed by schema field path. It is a partial function: fields
// without an entry are simply unmapped.
type Mapping map[string]Entry

// Load decodes a persisted mapping configuration.
func Load(r io.Reader) (Mapping, error) {
	var m Mapping
	if err := json.NewDecoder(r).Decode(&m); err != nil {
		return nil, fmt.Errorf("decode mapping: %w", err)
	}
	if m == nil {
		m = Mapping{}
	}
	return m, nil
}

// Save writes m as indented JSON.
func (m Mapping) Save(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(m)
}

// Lookup returns the entry for path or ErrNotMapped.
func (m Mapping) Lookup(path string) (Entry, error) {
	e, ok := m[path]
	if !ok {
		return Entry{}, fmt.Errorf("%s: %w", path, ErrNotMapped)
	}
	return e, nil
}

// Paths returns the mapped field paths in sorted order.
func (m Mapping) Paths() []string {
	paths := make([]string, 0, len(m))
	for p := range m {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Clone returns a shallow copy; entries are values so the copy is
// independent.
func (m Mapping) Clone() Mapping {
	out := make(Mapping, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Conflict is a document location targeted by more than one field.
type Conflict struct {
	Address address.Address `json:"address"`
	Fields  []string        `json:"fields"`
}

// Conflicts lists non-injective targets, ordered by address string. Entries
// whose index did not parse target nothing and are left out.
func (m Mapping) Conflicts() []Conflict {
	byAddr := make(map[address.Address][]string)
	for _, path := range m.Paths() {
		a, err := m[path].Location.Resolve()
		if err != nil {
			continue
		}
		byAddr[a] = append(byAddr[a], path)
	}
	var out []Conflict
	for a, fields := range byAddr {
		if len(fields) > 1 {
			out = append(out, Conflict{Address: a, Fields: fields})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Address.String() < out[j].Address.String()
	})
	return out
}

// FieldFailure records why one field could not be transferred.
type FieldFailure struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}
