package schema

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// RefError reports a $ref that cannot be followed. The resolver treats it as
// "no fields" for that branch.
type RefError struct {
	Ref    string
	Reason string
}

func (e *RefError) Error() string {
	return fmt.Sprintf("cannot resolve $ref %q: %s", e.Ref, e.Reason)
}

// CycleError reports a $ref chain that revisits a reference already being
// expanded on the same branch.
type CycleError struct {
	Path  string
	Chain []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("schema $ref cycle at %q: %s", e.Path, strings.Join(e.Chain, " -> "))
}

// ResolveRef follows a root-relative fragment ref of the form #/a/b/c.
// JSON-pointer escapes (~0, ~1) are honored; any other ref form is rejected.
func ResolveRef(root gjson.Result, ref string) (gjson.Result, error) {
	if !strings.HasPrefix(ref, "#/") {
		return gjson.Result{}, &RefError{Ref: ref, Reason: "only #/ fragment refs are supported"}
	}
	cur := root
	for _, raw := range strings.Split(ref[2:], "/") {
		part := strings.ReplaceAll(strings.ReplaceAll(raw, "~1", "/"), "~0", "~")
		next, ok := child(cur, part)
		if !ok {
			return gjson.Result{}, &RefError{Ref: ref, Reason: fmt.Sprintf("no member %q", part)}
		}
		cur = next
	}
	return cur, nil
}

// child looks up key without going through gjson path syntax, so keys such
// as "$defs" or "a.b" need no escaping.
func child(r gjson.Result, key string) (gjson.Result, bool) {
	switch {
	case r.IsObject():
		var found gjson.Result
		ok := false
		r.ForEach(func(k, v gjson.Result) bool {
			if k.String() == key {
				found, ok = v, true
				return false
			}
			return true
		})
		return found, ok
	case r.IsArray():
		i, err := strconv.Atoi(key)
		if err != nil || i < 0 {
			return gjson.Result{}, false
		}
		arr := r.Array()
		if i >= len(arr) {
			return gjson.Result{}, false
		}
		return arr[i], true
	}
	return gjson.Result{}, false
}
