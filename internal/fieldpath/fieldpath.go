// Package fieldpath reads and writes nested JSON objects addressed by the
// dotted field paths the schema resolver emits ("a.b[].c").
package fieldpath

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ConflictError reports a path that runs through, or onto, a value of the
// wrong shape.
type ConflictError struct {
	Path    string
	Segment string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("path %q conflicts with existing value at %q", e.Path, e.Segment)
}

// Segments splits path on dots with every [] array marker stripped.
func Segments(path string) []string {
	return strings.Split(strings.ReplaceAll(path, "[]", ""), ".")
}

// Set stores value at path in obj, creating intermediate objects. Arrays are
// not reconstructed: "a[].b" is stored as {"a": {"b": value}}. A path whose
// key is already set, such as "a[]" after "a", yields a *ConflictError and the
// first value stays.
func Set(obj map[string]any, path string, value any) error {
	parts := Segments(path)
	cur := obj
	for _, part := range parts[:len(parts)-1] {
		next, ok := cur[part]
		if !ok {
			m := make(map[string]any)
			cur[part] = m
			cur = m
			continue
		}
		m, ok := next.(map[string]any)
		if !ok {
			return &ConflictError{Path: path, Segment: part}
		}
		cur = m
	}
	last := parts[len(parts)-1]
	if _, taken := cur[last]; taken {
		return &ConflictError{Path: path, Segment: last}
	}
	cur[last] = value
	return nil
}

// Get reads path from data. Wherever an array is met mid-path only its first
// element is followed; a trailing [] marker selects the first element of the
// final array too.
func Get(data any, path string) (any, bool) {
	cur := data
	for _, part := range Segments(path) {
		if arr, ok := cur.([]any); ok {
			if len(arr) == 0 {
				return nil, false
			}
			cur = arr[0]
		}
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		v, ok := m[part]
		if !ok {
			return nil, false
		}
		cur = v
	}
	if strings.HasSuffix(path, "[]") {
		if arr, ok := cur.([]any); ok {
			if len(arr) == 0 {
				return nil, false
			}
			cur = arr[0]
		}
	}
	return cur, true
}

// Format renders a decoded JSON value as field text. Objects and arrays are
// written as compact JSON.
func Format(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case json.Number:
		return x.String()
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(b)
	}
}
