package registry

import (
	"slices"
	"sort"
)

// Args holds arguments bound to their schema names, with defaults filled.
// Values are normalized: floats are float64, ints are int, string lists are
// []string.
type Args struct {
	values map[string]any
}

// NewArgs wraps already-bound values. Used by tests and by callers that
// invoke a Func directly.
func NewArgs(values map[string]any) Args {
	a := Args{values: make(map[string]any, len(values))}
	for k, v := range values {
		a.values[k] = v
	}
	return a
}

// Has reports whether name is bound, either explicitly or by default.
func (a Args) Has(name string) bool {
	_, ok := a.values[name]
	return ok
}

// Get returns the raw bound value.
func (a Args) Get(name string) (any, bool) {
	v, ok := a.values[name]
	return v, ok
}

// String returns a bound string, or "".
func (a Args) String(name string) string {
	s, _ := a.values[name].(string)
	return s
}

// Float returns a bound float, or 0.
func (a Args) Float(name string) float64 {
	switch v := a.values[name].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return 0
}

// Int returns a bound int, or 0.
func (a Args) Int(name string) int {
	switch v := a.values[name].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return 0
}

// Bool returns a bound bool, or false.
func (a Args) Bool(name string) bool {
	b, _ := a.values[name].(bool)
	return b
}

// Strings returns a copy of a bound string list.
func (a Args) Strings(name string) []string {
	s, _ := a.values[name].([]string)
	return slices.Clone(s)
}

// Names returns the bound names, sorted.
func (a Args) Names() []string {
	names := make([]string, 0, len(a.values))
	for k := range a.values {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Map returns a copy of the bound values.
func (a Args) Map() map[string]any {
	out := make(map[string]any, len(a.values))
	for k, v := range a.values {
		out[k] = v
	}
	return out
}

// Len returns the number of bound values.
func (a Args) Len() int { return len(a.values) }
