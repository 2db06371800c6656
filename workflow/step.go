package workflow

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/kbukum/hollowfoot/dataset"
	"github.com/kbukum/hollowfoot/errors"
	"github.com/kbukum/hollowfoot/logger"
	"github.com/kbukum/hollowfoot/registry"
)

// Step is one validated call of a registered operation. Its operation and
// arguments never change; only its memo grows.
//
// The memo holds one result per distinct input identity and is never
// evicted, so each operation runs at most once per input. It lives as long
// as the Step: a Step shared by long-lived pipelines that are edited many
// times keeps every upstream variant's output reachable. Build a fresh
// pipeline to release them.
type Step struct {
	name     string
	args     []any
	kwargs   map[string]any
	bound    registry.Args
	contract registry.Contract
	desc     string

	mu   sync.Mutex
	memo map[uuid.UUID]*dataset.Dataset
}

// NewStep validates args and kwargs through reg and builds a Step. The
// registry's error is returned unchanged on failure.
func NewStep(reg *registry.Registry, name string, args []any, kwargs map[string]any) (*Step, error) {
	contract, err := reg.Resolve(name)
	if err != nil {
		return nil, err
	}
	bound, err := contract.Bind(args, kwargs)
	if err != nil {
		return nil, err
	}
	s := &Step{
		name:     name,
		args:     slices.Clone(args),
		kwargs:   maps.Clone(kwargs),
		bound:    bound,
		contract: contract,
		memo:     make(map[uuid.UUID]*dataset.Dataset),
	}
	s.desc = describe(name, s.args, s.kwargs)
	return s, nil
}

// Name returns the operation name.
func (s *Step) Name() string { return s.name }

// Args returns a copy of the positional arguments as given.
func (s *Step) Args() []any { return slices.Clone(s.args) }

// Kwargs returns a copy of the named arguments as given.
func (s *Step) Kwargs() map[string]any { return maps.Clone(s.kwargs) }

// Bound returns the schema-bound arguments, defaults included.
func (s *Step) Bound() registry.Args { return s.bound }

// Contract returns the operation's contract.
func (s *Step) Contract() registry.Contract { return s.contract }

// IsSource reports whether the step loads the initial dataset.
func (s *Step) IsSource() bool { return s.contract.Source }

// Describe renders the step as name(p1, p2, k1=v1). Named arguments are
// sorted by key.
func (s *Step) Describe() string { return s.desc }

func (s *Step) String() string { return s.desc }

// Evaluated reports whether a result for in is memoized. Pass nil for
// source steps.
func (s *Step) Evaluated(in *dataset.Dataset) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.memo[memoKey(in)]
	return ok
}

// Evaluate runs the operation on in, or returns the memoized result for
// in's identity. Source steps take a nil input. Shape violations are
// TYPE_MISMATCH errors; operation failures are EVALUATION_FAILED errors
// wrapping the operation's error.
//
// The step lock is held while the operation runs, so the operation is
// invoked at most once per input identity even under concurrent callers.
func (s *Step) Evaluate(ctx context.Context, in *dataset.Dataset) (*dataset.Dataset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := memoKey(in)
	if out, ok := s.memo[key]; ok {
		return out, nil
	}

	if err := s.checkInput(in); err != nil {
		return nil, err
	}

	out, err := s.contract.Func(ctx, in, s.bound)
	if err != nil {
		return nil, errors.StepFailed(s.desc, err)
	}
	if err := s.contract.CheckOutput(in, out); err != nil {
		return nil, err
	}
	if s.contract.Output != registry.OutputPassthrough {
		out = out.Derive(in, s.name)
	}
	if out.Len() == 0 {
		logger.Get("workflow").Warn("step produced no groups", logger.Fields(
			logger.FieldStep, s.desc,
			logger.FieldDatasetID, out.ID().String(),
		))
	}

	s.memo[key] = out
	return out, nil
}

func (s *Step) checkInput(in *dataset.Dataset) error {
	if s.contract.Source {
		if in != nil {
			return errors.TypeMismatch(s.name, "source operations must be the first step")
		}
		return nil
	}
	if in == nil {
		return errors.TypeMismatch(s.name, "no input dataset: attach an initial dataset or start with a source step")
	}
	return s.contract.Input.Check(s.name, in)
}

// memoKey is the input identity; source steps use the nil UUID.
func memoKey(in *dataset.Dataset) uuid.UUID {
	if in == nil {
		return uuid.Nil
	}
	return in.ID()
}

func describe(name string, args []any, kwargs map[string]any) string {
	parts := make([]string, 0, len(args)+len(kwargs))
	for _, a := range args {
		parts = append(parts, formatValue(a))
	}
	keys := make([]string, 0, len(kwargs))
	for k := range kwargs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		parts = append(parts, k+"="+formatValue(kwargs[k]))
	}
	return name + "(" + strings.Join(parts, ", ") + ")"
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "none"
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'g', -1, 32)
	case bool:
		return strconv.FormatBool(x)
	case []string:
		return "[" + strings.Join(x, " ") + "]"
	case []any:
		items := make([]string, len(x))
		for i, e := range x {
			items[i] = formatValue(e)
		}
		return "[" + strings.Join(items, " ") + "]"
	default:
		return fmt.Sprint(x)
	}
}
