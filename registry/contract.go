package registry

import (
	"context"
	"fmt"
	"strings"

	"github.com/kbukum/hollowfoot/dataset"
	"github.com/kbukum/hollowfoot/errors"
)

// Func is a domain callable. It receives the input Dataset and the bound
// arguments and returns a new Dataset. For source contracts the input is nil.
type Func func(ctx context.Context, in *dataset.Dataset, args Args) (*dataset.Dataset, error)

// OutputKind declares what a contract returns.
type OutputKind int

const (
	// OutputAny allows any number of groups.
	OutputAny OutputKind = iota
	// OutputSingle requires exactly one group.
	OutputSingle
	// OutputPassthrough requires the input Dataset itself. Used by steps
	// that only have side effects, such as plots.
	OutputPassthrough
)

func (o OutputKind) String() string {
	switch o {
	case OutputSingle:
		return "single"
	case OutputPassthrough:
		return "passthrough"
	default:
		return "any"
	}
}

// InputSpec declares the shape a contract needs from its input Dataset.
type InputSpec struct {
	// Arrays must be present in every group.
	Arrays []string
	// Attrs must be present in every group.
	Attrs []string
	// MinGroups is the minimum number of groups.
	MinGroups int `validate:"gte=0"`
}

// Check returns a TYPE_MISMATCH error when ds does not have the declared shape.
func (s InputSpec) Check(op string, ds *dataset.Dataset) error {
	if ds.Len() < s.MinGroups {
		return errors.TypeMismatch(op, fmt.Sprintf("needs at least %d groups, dataset has %d", s.MinGroups, ds.Len()))
	}
	for _, name := range ds.GroupNames() {
		g, _ := ds.Group(name)
		var missing []string
		for _, a := range s.Arrays {
			if !g.Has(a) {
				missing = append(missing, a)
			}
		}
		for _, a := range s.Attrs {
			if _, ok := g.Attr(a); !ok {
				missing = append(missing, a)
			}
		}
		if len(missing) > 0 {
			return errors.TypeMismatch(op, fmt.Sprintf("group %q is missing %s", name, strings.Join(missing, ", "))).
				WithDetail("group", name)
		}
	}
	return nil
}

// Contract is everything the engine knows about an operation.
type Contract struct {
	Name        string `validate:"required"`
	Description string
	Schema      Schema `validate:"unique=Name,dive"`
	Func        Func   `validate:"required"`
	Input       InputSpec
	Output      OutputKind `validate:"gte=0,lte=2"`
	// Source marks a loader: it takes no input and may only be the first step.
	Source bool
	// Eager evaluates the step as soon as it is appended.
	Eager bool
}

// CheckOutput returns a TYPE_MISMATCH error when out breaks the output contract.
func (c Contract) CheckOutput(in, out *dataset.Dataset) error {
	if out == nil {
		return errors.TypeMismatch(c.Name, "returned no dataset")
	}
	switch c.Output {
	case OutputSingle:
		if out.Len() != 1 {
			return errors.TypeMismatch(c.Name, fmt.Sprintf("must return exactly one group, returned %d", out.Len()))
		}
	case OutputPassthrough:
		if out != in {
			return errors.TypeMismatch(c.Name, "must return its input unchanged")
		}
	}
	return nil
}
