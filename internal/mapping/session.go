package mapping

import (
	"errors"
	"fmt"

	"github.com/dgallion1/docmap/internal/docmodel"
	"github.com/dgallion1/docmap/internal/schema"
)

// ErrUnknownField is returned when a session operation names a path that is
// not among the session's schema fields.
var ErrUnknownField = errors.New("unknown schema field")

// Session is the state of one interactive mapping pass. It is owned by the
// caller and passed by value: every method returns an updated copy and
// leaves the receiver untouched.
type Session struct {
	ID       string
	Fields   []schema.Field
	Nodes    []docmodel.Node
	Mapping  Mapping
	Selected string
	Values   map[string]string
}

// NewSession starts a session with the auto-guessed mapping, or with
// existing plus guesses for whatever it leaves unmapped.
func NewSession(id string, fields []schema.Field, nodes []docmodel.Node, existing Mapping) Session {
	return Session{
		ID:      id,
		Fields:  fields,
		Nodes:   nodes,
		Mapping: Guess(existing, fields, nodes),
		Values:  map[string]string{},
	}
}

func (s Session) field(path string) (schema.Field, error) {
	for _, f := range s.Fields {
		if f.Path == path {
			return f, nil
		}
	}
	return schema.Field{}, fmt.Errorf("%s: %w", path, ErrUnknownField)
}

// Select marks path as the field being edited.
func (s Session) Select(path string) (Session, error) {
	if _, err := s.field(path); err != nil {
		return s, err
	}
	s.Selected = path
	return s, nil
}

// Assign maps path onto loc, replacing any earlier entry for path.
func (s Session) Assign(path string, loc Location) (Session, error) {
	f, err := s.field(path)
	if err != nil {
		return s, err
	}
	s.Mapping = s.Mapping.Clone()
	s.Mapping[path] = EntryFor(f, loc)
	return s, nil
}

// Unassign removes the entry for path, if any.
func (s Session) Unassign(path string) Session {
	if _, ok := s.Mapping[path]; !ok {
		return s
	}
	s.Mapping = s.Mapping.Clone()
	delete(s.Mapping, path)
	return s
}

// AutoGuess fills fields that are still unmapped.
func (s Session) AutoGuess() Session {
	s.Mapping = Guess(s.Mapping, s.Fields, s.Nodes)
	return s
}

// SetValue records the in-progress value for path.
func (s Session) SetValue(path, value string) (Session, error) {
	if _, err := s.field(path); err != nil {
		return s, err
	}
	values := make(map[string]string, len(s.Values)+1)
	for k, v := range s.Values {
		values[k] = v
	}
	values[path] = value
	s.Values = values
	return s, nil
}

// Progress reports how many of the session's fields are mapped.
type Progress struct {
	Mapped int `json:"mapped"`
	Total  int `json:"total"`
}

func (s Session) Progress() Progress {
	p := Progress{Total: len(s.Fields)}
	for _, f := range s.Fields {
		if _, ok := s.Mapping[f.Path]; ok {
			p.Mapped++
		}
	}
	return p
}

// PreviewRow pairs a document node with the fields mapped onto it.
type PreviewRow struct {
	Node   docmodel.NodeInfo `json:"node"`
	Fields []string          `json:"fields,omitempty"`
}

// Preview lists every node in reading order with its mapped fields.
func (s Session) Preview() []PreviewRow {
	byAddr := make(map[string][]string)
	for _, path := range s.Mapping.Paths() {
		a, err := s.Mapping[path].Location.Resolve()
		if err != nil {
			continue
		}
		byAddr[a.String()] = append(byAddr[a.String()], path)
	}
	rows := make([]PreviewRow, len(s.Nodes))
	for i, n := range s.Nodes {
		info := docmodel.Info(n)
		rows[i] = PreviewRow{Node: info, Fields: byAddr[info.Address.String()]}
	}
	return rows
}
