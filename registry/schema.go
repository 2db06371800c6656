package registry

import (
	"fmt"
	"math"
	"slices"

	"github.com/kbukum/hollowfoot/validation"
)

// Param declares one argument. Positional arguments bind to params in
// schema order.
type Param struct {
	Name     string   `yaml:"name" validate:"required"`
	Kind     Kind     `yaml:"kind" validate:"required"`
	Required bool     `yaml:"required"`
	Default  any      `yaml:"default"`
	Min      *float64 `yaml:"min"`
	Max      *float64 `yaml:"max"`
	OneOf    []string `yaml:"one_of" validate:"omitempty,unique"`
	Doc      string   `yaml:"doc"`
}

// Schema is the ordered parameter list of an operation.
type Schema []Param

// Bound returns a pointer to v, for Param.Min and Param.Max literals.
func Bound(v float64) *float64 { return &v }

// Names returns the parameter names in order.
func (s Schema) Names() []string {
	names := make([]string, len(s))
	for i, p := range s {
		names[i] = p.Name
	}
	return names
}

// Lookup returns the named parameter and its position.
func (s Schema) Lookup(name string) (Param, int, bool) {
	for i, p := range s {
		if p.Name == name {
			return p, i, true
		}
	}
	return Param{}, -1, false
}

// check reports the first structural problem with the schema.
func (s Schema) check() *validation.FieldError {
	v := validation.New()
	seen := make(map[string]bool, len(s))
	for i, p := range s {
		field := fmt.Sprintf("schema[%d]", i)
		if p.Name != "" {
			field = p.Name
		}
		v.Custom(p.Name != "", field, "has no name")
		v.Custom(!seen[p.Name], field, "is declared twice")
		seen[p.Name] = true
		v.Custom(p.Kind.valid(), field, fmt.Sprintf("has unknown kind %s", p.Kind))
		v.Custom(!(p.Required && p.Default != nil), field, "is required and has a default")
		v.Custom((p.Min == nil && p.Max == nil) || p.Kind.numeric(), field, "has bounds but is not numeric")
		v.Custom(p.Min == nil || p.Max == nil || *p.Min <= *p.Max, field, "has min greater than max")
		v.Custom(len(p.OneOf) == 0 || p.Kind == KindString, field, "has allowed values but is not a string")
		if p.Default != nil && p.Kind.valid() {
			def, ok := p.Kind.coerce(p.Default)
			v.Custom(ok, field, fmt.Sprintf("has a default that is not a %s", p.Kind))
			if ok {
				if reason := p.constrain(def); reason != "" {
					v.Custom(false, field, "has a default that "+reason)
				}
			}
		}
		if first := v.First(); first != nil {
			return first
		}
	}
	return nil
}

// constrain checks a coerced value against the param's bounds and allowed
// set and returns the violation, or "".
func (p Param) constrain(v any) string {
	if p.Kind.numeric() {
		f := asFloat(v)
		if math.IsNaN(f) {
			return "must be a number (got NaN)"
		}
		if math.IsInf(f, 0) && (p.Min != nil || p.Max != nil) {
			return fmt.Sprintf("must be finite (got %v)", v)
		}
		if p.Min != nil && f < *p.Min {
			return fmt.Sprintf("must be >= %g (got %v)", *p.Min, v)
		}
		if p.Max != nil && f > *p.Max {
			return fmt.Sprintf("must be <= %g (got %v)", *p.Max, v)
		}
	}
	if len(p.OneOf) > 0 {
		if s, ok := v.(string); ok && !slices.Contains(p.OneOf, s) {
			return fmt.Sprintf("must be one of %v (got %q)", p.OneOf, s)
		}
	}
	return ""
}
