// Package schema flattens a JSON Schema into the ordered list of leaf fields
// a document mapping is built against.
package schema

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// Field is one leaf of a flattened schema.
type Field struct {
	Path    string `json:"path"`
	Name    string `json:"field_name"`
	Section string `json:"section,omitempty"`
	Group   string `json:"group"`
	Type    string `json:"type"`
	Format  string `json:"format,omitempty"`
}

// Options tunes Resolve.
type Options struct {
	// IncludeOptional keeps properties that a non-empty "required" list
	// would otherwise filter out.
	IncludeOptional bool
}

// Document is a parsed JSON Schema. Property order is preserved as written.
type Document struct {
	root gjson.Result
}

// Parse checks that data is a JSON object and wraps it for resolution.
func Parse(data []byte) (*Document, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("schema is not valid JSON")
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return nil, fmt.Errorf("schema root must be an object, got %s", root.Type)
	}
	return &Document{root: root}, nil
}

// Resolve parses data and returns its leaf fields.
func Resolve(data []byte, opts Options) ([]Field, error) {
	doc, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return doc.Fields(opts)
}

// Fields walks the schema from its root properties. A $ref chain that loops
// back on itself yields a *CycleError; an unresolvable $ref contributes no
// fields.
func (d *Document) Fields(opts Options) ([]Field, error) {
	w := &walker{
		root: d.root,
		opts: opts,
		seen: make(map[string]bool),
	}
	if err := w.walkObject(d.root, scope{}); err != nil {
		return nil, err
	}
	return w.fields, nil
}

type walker struct {
	root   gjson.Result
	opts   Options
	seen   map[string]bool
	fields []Field
}

// scope is the per-branch recursion context.
type scope struct {
	path    string
	name    string
	section string
	group   string
	refs    []string
}

func (s scope) property(key string) scope {
	next := s
	if s.path == "" {
		next.path = key
	} else {
		next.path = s.path + "." + key
	}
	next.name = key
	if strings.HasPrefix(key, "section_") {
		next.section = key
	}
	if next.group == "" {
		next.group = key
	}
	return next
}

func (s scope) items() scope {
	next := s
	next.path = s.path + "[]"
	return next
}

func (s scope) withRef(ref string) scope {
	next := s
	next.refs = make([]string, len(s.refs), len(s.refs)+1)
	copy(next.refs, s.refs)
	next.refs = append(next.refs, ref)
	return next
}

func (w *walker) walkObject(node gjson.Result, sc scope) error {
	props := node.Get("properties")
	if !props.IsObject() {
		return nil
	}
	required := requiredSet(node)
	filter := len(required) > 0 && !w.opts.IncludeOptional

	var err error
	props.ForEach(func(k, v gjson.Result) bool {
		key := k.String()
		if filter && !required[key] {
			return true
		}
		err = w.walkValue(v, sc.property(key))
		return err == nil
	})
	return err
}

// walkValue handles the schema of one property.
func (w *walker) walkValue(v gjson.Result, sc scope) error {
	if !v.IsObject() {
		return nil
	}
	if opts := combinator(v); opts != nil {
		return w.walkOptions(opts, sc)
	}
	if ref, ok := child(v, "$ref"); ok {
		return w.followRef(ref.String(), sc)
	}

	switch typ := schemaType(v); typ {
	case "object":
		return w.walkObject(v, sc)
	case "array":
		w.leaf(sc, "array", v)
		return w.walkItems(v.Get("items"), sc.items())
	case "":
		w.leaf(sc, "unknown", v)
		return nil
	default:
		w.leaf(sc, typ, v)
		return nil
	}
}

// walkOptions handles the members of an anyOf/allOf/oneOf list. A member
// with a concrete non-object type, or an object type without properties, is
// one leaf; anything else is walked for its properties.
func (w *walker) walkOptions(opts []gjson.Result, sc scope) error {
	for _, opt := range opts {
		if !opt.IsObject() {
			continue
		}
		typ := schemaType(opt)
		if typ == "null" {
			continue
		}
		if ref, ok := child(opt, "$ref"); ok {
			if err := w.followRef(ref.String(), sc); err != nil {
				return err
			}
			continue
		}
		hasProps := opt.Get("properties").IsObject()
		if (typ != "" && typ != "object") || (typ == "object" && !hasProps) {
			w.leaf(sc, typ, opt)
			continue
		}
		if err := w.walkObject(opt, sc); err != nil {
			return err
		}
	}
	return nil
}

// walkItems handles an array's items schema at the suffixed path. Items
// given as a combinator list are treated like a property's options.
func (w *walker) walkItems(items gjson.Result, sc scope) error {
	if !items.IsObject() {
		return nil
	}
	if ref, ok := child(items, "$ref"); ok {
		return w.followRef(ref.String(), sc)
	}
	if opts := combinator(items); opts != nil {
		return w.walkOptions(opts, sc)
	}
	typ := schemaType(items)
	switch {
	case typ == "object" || (typ == "" && items.Get("properties").IsObject()):
		return w.walkObject(items, sc)
	case typ != "" && typ != "null":
		w.leaf(sc, typ, items)
	}
	return nil
}

// followRef walks the properties of the schema ref points at. Refs that do
// not resolve contribute nothing.
func (w *walker) followRef(ref string, sc scope) error {
	for _, r := range sc.refs {
		if r == ref {
			chain := append(append([]string{}, sc.refs...), ref)
			return &CycleError{Path: sc.path, Chain: chain}
		}
	}
	target, err := ResolveRef(w.root, ref)
	if err != nil {
		return nil
	}
	return w.walkObject(target, sc.withRef(ref))
}

func (w *walker) leaf(sc scope, typ string, v gjson.Result) {
	if w.seen[sc.path] {
		return
	}
	w.seen[sc.path] = true
	w.fields = append(w.fields, Field{
		Path:    sc.path,
		Name:    sc.name,
		Section: sc.section,
		Group:   sc.group,
		Type:    typ,
		Format:  v.Get("format").String(),
	})
}

func requiredSet(node gjson.Result) map[string]bool {
	req := node.Get("required")
	if !req.IsArray() {
		return nil
	}
	set := make(map[string]bool)
	for _, r := range req.Array() {
		if r.Type == gjson.String {
			set[r.String()] = true
		}
	}
	return set
}

// combinator returns the first non-empty anyOf, allOf or oneOf list.
func combinator(v gjson.Result) []gjson.Result {
	for _, key := range []string{"anyOf", "allOf", "oneOf"} {
		if c := v.Get(key); c.IsArray() {
			if opts := c.Array(); len(opts) > 0 {
				return opts
			}
		}
	}
	return nil
}

// schemaType returns the declared type. For type lists the first non-null
// entry wins; a list of only "null" reports "null".
func schemaType(v gjson.Result) string {
	t := v.Get("type")
	if t.Type == gjson.String {
		return t.String()
	}
	if !t.IsArray() {
		return ""
	}
	sawNull := false
	for _, e := range t.Array() {
		s := e.String()
		if s == "null" {
			sawNull = true
			continue
		}
		if s != "" {
			return s
		}
	}
	if sawNull {
		return "null"
	}
	return ""
}
