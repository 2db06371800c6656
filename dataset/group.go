package dataset

import (
	"math"
	"reflect"
	"slices"
	"sort"
)

// Group is an immutable set of named arrays and scalar attributes.
type Group struct {
	arrays map[string][]float64
	attrs  map[string]any
}

// NewGroup creates a Group, copying the given arrays and attributes.
func NewGroup(arrays map[string][]float64, attrs map[string]any) Group {
	g := Group{
		arrays: make(map[string][]float64, len(arrays)),
		attrs:  make(map[string]any, len(attrs)),
	}
	for name, a := range arrays {
		g.arrays[name] = slices.Clone(a)
	}
	for k, v := range attrs {
		g.attrs[k] = cloneAttr(v)
	}
	return g
}

// With returns a new Group with the given arrays and attributes added or
// replaced. Arrays not named are shared with the receiver.
func (g Group) With(arrays map[string][]float64, attrs map[string]any) Group {
	out := Group{
		arrays: make(map[string][]float64, len(g.arrays)+len(arrays)),
		attrs:  make(map[string]any, len(g.attrs)+len(attrs)),
	}
	for name, a := range g.arrays {
		out.arrays[name] = a
	}
	for k, v := range g.attrs {
		out.attrs[k] = v
	}
	for name, a := range arrays {
		out.arrays[name] = slices.Clone(a)
	}
	for k, v := range attrs {
		out.attrs[k] = cloneAttr(v)
	}
	return out
}

// Array returns a copy of the named array.
func (g Group) Array(name string) ([]float64, bool) {
	a, ok := g.arrays[name]
	if !ok {
		return nil, false
	}
	return slices.Clone(a), true
}

// Has reports whether the group holds the named array.
func (g Group) Has(name string) bool {
	_, ok := g.arrays[name]
	return ok
}

// Len returns the length of the named array, or -1 if it is absent.
func (g Group) Len(name string) int {
	a, ok := g.arrays[name]
	if !ok {
		return -1
	}
	return len(a)
}

// ArrayNames returns the sorted array names.
func (g Group) ArrayNames() []string {
	names := make([]string, 0, len(g.arrays))
	for name := range g.arrays {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Attr returns the named attribute. Slice values are copies.
func (g Group) Attr(name string) (any, bool) {
	v, ok := g.attrs[name]
	return cloneAttr(v), ok
}

// FloatAttr returns the named attribute as a float64.
func (g Group) FloatAttr(name string) (float64, bool) {
	switch v := g.attrs[name].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

// AttrNames returns the sorted attribute names.
func (g Group) AttrNames() []string {
	names := make([]string, 0, len(g.attrs))
	for name := range g.attrs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Equal reports whether both groups hold equal arrays and attributes.
// NaN compares equal to NaN.
func (g Group) Equal(o Group) bool {
	if len(g.arrays) != len(o.arrays) || len(g.attrs) != len(o.attrs) {
		return false
	}
	for name, a := range g.arrays {
		b, ok := o.arrays[name]
		if !ok || !floatsEqual(a, b) {
			return false
		}
	}
	for k, v := range g.attrs {
		w, ok := o.attrs[k]
		if !ok || !reflect.DeepEqual(v, w) {
			return false
		}
	}
	return true
}

func floatsEqual(a, b []float64) bool {
	return slices.EqualFunc(a, b, func(x, y float64) bool {
		return x == y || (math.IsNaN(x) && math.IsNaN(y))
	})
}

// cloneAttr copies slice-valued attributes so callers cannot reach a
// group's storage.
func cloneAttr(v any) any {
	switch x := v.(type) {
	case []string:
		return slices.Clone(x)
	case []float64:
		return slices.Clone(x)
	case []int:
		return slices.Clone(x)
	case []any:
		return slices.Clone(x)
	default:
		return v
	}
}
