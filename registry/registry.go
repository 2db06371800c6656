package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/kbukum/hollowfoot/errors"
	"github.com/kbukum/hollowfoot/logger"
	"github.com/kbukum/hollowfoot/validation"
)

// Registry maps operation names to contracts. It is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	contracts map[string]Contract
	frozen    bool
	log       *logger.Logger
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{
		contracts: make(map[string]Contract),
		log:       logger.Nop(),
	}
}

// SetLogger sets the logger used for registration events.
func (r *Registry) SetLogger(l *logger.Logger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if l == nil {
		l = logger.Nop()
	}
	r.log = l.WithComponent("registry")
}

var (
	defaultOnce sync.Once
	defaultReg  *Registry
)

// Default returns the process-wide registry.
func Default() *Registry {
	defaultOnce.Do(func() {
		defaultReg = New()
		defaultReg.log = logger.Get("registry")
	})
	return defaultReg
}

// Register adds a contract. It fails with FROZEN_REGISTRY after Freeze,
// DUPLICATE_OPERATION if the name is taken and INVALID_SCHEMA if the
// contract is malformed.
func (r *Registry) Register(c Contract) error {
	if err := checkContract(c); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen {
		return errors.FrozenRegistry(c.Name)
	}
	if _, exists := r.contracts[c.Name]; exists {
		return errors.DuplicateOperation(c.Name)
	}
	c.Schema = cloneSchema(c.Schema)
	r.contracts[c.Name] = c
	r.log.Debug("operation registered", logger.Fields(
		logger.FieldOperation, c.Name,
		"params", len(c.Schema),
		"source", c.Source,
	))
	return nil
}

// MustRegister registers c and panics on error. For init-time use.
func (r *Registry) MustRegister(c Contract) {
	if err := r.Register(c); err != nil {
		panic(err)
	}
}

// Freeze makes the registry read-only.
func (r *Registry) Freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen = true
}

// Frozen reports whether Freeze was called.
func (r *Registry) Frozen() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.frozen
}

// Resolve returns the named contract.
func (r *Registry) Resolve(name string) (Contract, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.contracts[name]
	if !ok {
		return Contract{}, errors.UnknownOperation(name)
	}
	return c, nil
}

// List returns sorted names of all registered operations.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.contracts))
	for name := range r.contracts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate binds args and kwargs to the named operation's schema and
// returns the bound Args. The error describes the first violated constraint.
func (r *Registry) Validate(name string, args []any, kwargs map[string]any) (Args, error) {
	c, err := r.Resolve(name)
	if err != nil {
		return Args{}, err
	}
	return c.Bind(args, kwargs)
}

// Bind checks args and kwargs against the contract's schema. Positional
// args bind in schema order; named args bind by name. Checks run in this
// order: arity, unknown names, duplicates, then per param in schema order
// presence, kind, range and allowed set.
func (c Contract) Bind(args []any, kwargs map[string]any) (Args, error) {
	if len(args) > len(c.Schema) {
		return Args{}, errors.ArgumentValidation(c.Name, "",
			fmt.Sprintf("takes at most %d positional arguments, got %d", len(c.Schema), len(args)))
	}

	raw := make(map[string]any, len(c.Schema))
	for i, v := range args {
		raw[c.Schema[i].Name] = v
	}

	named := make([]string, 0, len(kwargs))
	for k := range kwargs {
		named = append(named, k)
	}
	sort.Strings(named)
	for _, k := range named {
		if _, _, ok := c.Schema.Lookup(k); !ok {
			return Args{}, errors.ArgumentValidation(c.Name, k, "is not a parameter")
		}
		if _, dup := raw[k]; dup {
			return Args{}, errors.ArgumentValidation(c.Name, k, "is given both positionally and by name")
		}
		raw[k] = kwargs[k]
	}

	bound := make(map[string]any, len(c.Schema))
	for _, p := range c.Schema {
		v, given := raw[p.Name]
		if !given || v == nil {
			if p.Required {
				return Args{}, errors.ArgumentValidation(c.Name, p.Name, "is required")
			}
			if p.Default != nil {
				def, _ := p.Kind.coerce(p.Default)
				bound[p.Name] = def
			}
			continue
		}
		cv, ok := p.Kind.coerce(v)
		if !ok {
			return Args{}, errors.ArgumentValidation(c.Name, p.Name, fmt.Sprintf("must be a %s (got %T)", p.Kind, v))
		}
		if reason := p.constrain(cv); reason != "" {
			return Args{}, errors.ArgumentValidation(c.Name, p.Name, reason)
		}
		bound[p.Name] = cv
	}
	return Args{values: bound}, nil
}

func checkContract(c Contract) error {
	if c.Name == "" {
		return errors.InvalidSchema(c.Name, "name is required")
	}
	if c.Func == nil {
		return errors.InvalidSchema(c.Name, "func is required")
	}
	if fe := c.Schema.check(); fe != nil {
		return errors.InvalidSchema(c.Name, fe.String())
	}
	if fes := validation.StructErrors(c); len(fes) > 0 {
		return errors.InvalidSchema(c.Name, fes[0].String())
	}
	if c.Source && len(c.Input.Arrays)+len(c.Input.Attrs)+c.Input.MinGroups > 0 {
		return errors.InvalidSchema(c.Name, "source operations take no input")
	}
	if c.Source && c.Output == OutputPassthrough {
		return errors.InvalidSchema(c.Name, "source operations cannot pass their input through")
	}
	return nil
}

func cloneSchema(s Schema) Schema {
	out := make(Schema, len(s))
	for i, p := range s {
		p.OneOf = append([]string(nil), p.OneOf...)
		out[i] = p
	}
	return out
}
