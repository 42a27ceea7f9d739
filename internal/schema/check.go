package schema

import (
	"bytes"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Check compiles data as a JSON Schema. It is stricter than Resolve: refs
// that Resolve would silently skip fail compilation here.
func Check(data []byte) error {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(data)); err != nil {
		return fmt.Errorf("load schema: %w", err)
	}
	if _, err := compiler.Compile("schema.json"); err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	return nil
}

// Group is a named partition of fields, used for UI tabs.
type Group struct {
	Name   string  `json:"name"`
	Fields []Field `json:"fields"`
}

// GroupFields partitions fields by Group, keeping first-seen group order and
// field order within each group.
func GroupFields(fields []Field) []Group {
	var groups []Group
	index := make(map[string]int)
	for _, f := range fields {
		name := f.Group
		if name == "" {
			name = "other"
		}
		i, ok := index[name]
		if !ok {
			i = len(groups)
			index[name] = i
			groups = append(groups, Group{Name: name})
		}
		groups[i].Fields = append(groups[i].Fields, f)
	}
	return groups
}
