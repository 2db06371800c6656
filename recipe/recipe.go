package recipe

import (
	"fmt"

	"go.yaml.in/yaml/v3"

	"github.com/kbukum/hollowfoot/validation"
	"github.com/kbukum/hollowfoot/workflow"
)

// Recipe is a named, serializable step sequence.
type Recipe struct {
	// Name is the recipe identifier used by includes.
	Name string `yaml:"name" validate:"required"`
	// Includes lists recipes whose steps run before this recipe's steps.
	Includes []string `yaml:"includes,omitempty" validate:"dive,required"`
	// Steps are the operations in order.
	Steps []StepDef `yaml:"steps" validate:"dive"`
}

// StepDef is one operation call.
type StepDef struct {
	// Op is the registered operation name.
	Op string `yaml:"op" validate:"required"`
	// Args are bound to the operation's parameters in order.
	Args []any `yaml:"args,omitempty"`
	// Kwargs are bound by parameter name.
	Kwargs map[string]any `yaml:"kwargs,omitempty"`
}

// Unmarshal decodes and validates a YAML recipe.
func Unmarshal(data []byte) (*Recipe, error) {
	var r Recipe
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("recipe: parsing: %w", err)
	}
	if err := validation.Validate(&r); err != nil {
		return nil, fmt.Errorf("recipe: %w", err)
	}
	return &r, nil
}

// Marshal encodes r as YAML.
func Marshal(r *Recipe) ([]byte, error) {
	data, err := yaml.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("recipe: encoding %q: %w", r.Name, err)
	}
	return data, nil
}

// Encode captures p's step sequence as a recipe. The initial dataset is
// not part of a recipe.
func Encode(name string, p *workflow.Pipeline) *Recipe {
	r := &Recipe{Name: name, Steps: make([]StepDef, 0, p.Len())}
	for _, s := range p.Steps() {
		def := StepDef{Op: s.Name()}
		if args := s.Args(); len(args) > 0 {
			def.Args = args
		}
		if kwargs := s.Kwargs(); len(kwargs) > 0 {
			def.Kwargs = kwargs
		}
		r.Steps = append(r.Steps, def)
	}
	return r
}
