package domain

import (
	"reflect"
	"strings"
)

// Draft is the in-progress entity being built across wizard steps.
// Nested sub-objects (affiliate settings, SEO metadata, availability) are
// stored as map[string]any values.
type Draft map[string]any

// NewDraft creates a draft seeded with a deep copy of the given defaults.
func NewDraft(defaults map[string]any) Draft {
	if defaults == nil {
		return make(Draft)
	}
	return Draft(defaults).Clone()
}

// Clone returns a deep copy of the draft. Nested maps and slices are copied;
// scalar values are shared.
func (d Draft) Clone() Draft {
	if d == nil {
		return nil
	}
	out := make(Draft, len(d))
	for k, v := range d {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, inner := range t {
			m[k] = cloneValue(inner)
		}
		return m
	case Draft:
		return map[string]any(t.Clone())
	case []any:
		s := make([]any, len(t))
		for i, inner := range t {
			s[i] = cloneValue(inner)
		}
		return s
	case []string:
		return append([]string(nil), t...)
	case []map[string]any:
		s := make([]any, len(t))
		for i, inner := range t {
			s[i] = cloneValue(inner)
		}
		return s
	default:
		return v
	}
}

// Merge shallow-merges partial into the draft: top-level keys in partial
// replace the existing values.
func (d Draft) Merge(partial map[string]any) {
	for k, v := range partial {
		d[k] = cloneValue(v)
	}
}

// Lookup resolves a dotted path (e.g. "seo.title") against the draft.
func (d Draft) Lookup(path string) (any, bool) {
	if d == nil || path == "" {
		return nil, false
	}
	var current any = map[string]any(d)
	for _, segment := range strings.Split(path, ".") {
		m, ok := asMap(current)
		if !ok {
			return nil, false
		}
		current, ok = m[segment]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// String returns the value at path as a trimmed string, or "" when absent or not a string.
func (d Draft) String(path string) string {
	v, ok := d.Lookup(path)
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(s)
}

// Bool returns the value at path interpreted as a flag.
func (d Draft) Bool(path string) bool {
	v, ok := d.Lookup(path)
	if !ok {
		return false
	}
	switch t := v.(type) {
	case bool:
		return t
	case string:
		clean := strings.ToLower(strings.TrimSpace(t))
		return clean == "true" || clean == "yes" || clean == "1" || clean == "on"
	}
	return false
}

// Section returns the nested sub-object stored at key, or nil.
func (d Draft) Section(key string) map[string]any {
	v, ok := d.Lookup(key)
	if !ok {
		return nil
	}
	m, _ := asMap(v)
	return m
}

func asMap(v any) (map[string]any, bool) {
	switch t := v.(type) {
	case map[string]any:
		return t, true
	case Draft:
		return map[string]any(t), true
	}
	return nil, false
}

// IsEmptyValue reports whether v counts as "not filled in" for the purposes
// of required checks and template merging.
func IsEmptyValue(v any) bool {
	if v == nil {
		return true
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t) == ""
	case map[string]any:
		return len(t) == 0
	case Draft:
		return len(t) == 0
	case []any:
		return len(t) == 0
	case []string:
		return len(t) == 0
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() == 0
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
