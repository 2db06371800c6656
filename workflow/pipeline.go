package workflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/hollowfoot/dataset"
	"github.com/kbukum/hollowfoot/errors"
	"github.com/kbukum/hollowfoot/logger"
	"github.com/kbukum/hollowfoot/observability"
	"github.com/kbukum/hollowfoot/registry"
	"github.com/kbukum/hollowfoot/stream"
)

// Pipeline is an immutable ordered list of Steps with an optional initial
// Dataset. Methods that edit return a new Pipeline and leave the receiver
// unchanged. Steps are shared between Pipelines, never copied.
type Pipeline struct {
	steps   []*Step
	initial *dataset.Dataset
}

// Entry is one line of a pipeline's history.
type Entry struct {
	Index       int
	Description string
}

func (e Entry) String() string {
	return fmt.Sprintf("%d: %s", e.Index, e.Description)
}

// New returns an empty Pipeline.
func New() *Pipeline {
	return &Pipeline{}
}

// FromDataset returns an empty Pipeline seeded with ds.
func FromDataset(ds *dataset.Dataset) *Pipeline {
	return &Pipeline{initial: ds}
}

// WithInitial returns a copy of p seeded with ds. Downstream memoized
// results do not carry over because ds has its own identity.
func (p *Pipeline) WithInitial(ds *dataset.Dataset) *Pipeline {
	return &Pipeline{steps: p.steps, initial: ds}
}

// Initial returns the seed Dataset, or nil.
func (p *Pipeline) Initial() *dataset.Dataset { return p.initial }

// Len returns the number of steps.
func (p *Pipeline) Len() int { return len(p.steps) }

// Steps returns a copy of the step list.
func (p *Pipeline) Steps() []*Step {
	out := make([]*Step, len(p.steps))
	copy(out, p.steps)
	return out
}

// Step returns the step at index i.
func (p *Pipeline) Step(i int) (*Step, error) {
	if i < 0 || i >= len(p.steps) {
		return nil, errors.InvalidInput("index", fmt.Sprintf("step index %d out of range [0, %d)", i, len(p.steps)))
	}
	return p.steps[i], nil
}

// Append returns a new Pipeline with step added at the end. Shape
// compatibility is checked at evaluation time.
func (p *Pipeline) Append(step *Step) *Pipeline {
	steps := make([]*Step, len(p.steps), len(p.steps)+1)
	copy(steps, p.steps)
	return &Pipeline{steps: append(steps, step), initial: p.initial}
}

// Then validates the call through reg and appends the new step. On
// failure it returns the receiver itself and the registry's error.
func (p *Pipeline) Then(reg *registry.Registry, name string, args []any, kwargs map[string]any) (*Pipeline, error) {
	step, err := NewStep(reg, name, args, kwargs)
	if err != nil {
		return p, err
	}
	return p.Append(step), nil
}

// Truncate returns a Pipeline holding the first n steps.
func (p *Pipeline) Truncate(n int) (*Pipeline, error) {
	if n < 0 || n > len(p.steps) {
		return p, errors.InvalidInput("n", fmt.Sprintf("cannot truncate %d steps to %d", len(p.steps), n))
	}
	return &Pipeline{steps: p.steps[:n:n], initial: p.initial}, nil
}

// Remove returns a Pipeline without the step at index i. Steps after i are
// evaluated against the new effective input, never against memoized
// results of the removed step.
func (p *Pipeline) Remove(i int) (*Pipeline, error) {
	if i < 0 || i >= len(p.steps) {
		return p, errors.InvalidInput("index", fmt.Sprintf("step index %d out of range [0, %d)", i, len(p.steps)))
	}
	steps := make([]*Step, 0, len(p.steps)-1)
	steps = append(steps, p.steps[:i]...)
	steps = append(steps, p.steps[i+1:]...)
	return &Pipeline{steps: steps, initial: p.initial}, nil
}

// Reorder returns a Pipeline whose step k is the receiver's step perm[k].
// perm must be a permutation of 0..Len()-1.
func (p *Pipeline) Reorder(perm []int) (*Pipeline, error) {
	if len(perm) != len(p.steps) {
		return p, errors.InvalidInput("perm", fmt.Sprintf("permutation has %d entries, pipeline has %d steps", len(perm), len(p.steps)))
	}
	seen := make([]bool, len(perm))
	steps := make([]*Step, len(perm))
	for k, i := range perm {
		if i < 0 || i >= len(perm) || seen[i] {
			return p, errors.InvalidInput("perm", fmt.Sprintf("%v is not a permutation of 0..%d", perm, len(perm)-1))
		}
		seen[i] = true
		steps[k] = p.steps[i]
	}
	return &Pipeline{steps: steps, initial: p.initial}, nil
}

// Evaluate folds the steps over the initial Dataset and returns the final
// Dataset. The first step may be a source step instead of an initial
// Dataset. The first failure stops the fold and is returned as an
// EVALUATION_FAILED error carrying the failing step's index and
// description, with the underlying error as cause. Context cancellation is
// checked between steps.
func (p *Pipeline) Evaluate(ctx context.Context, opts ...Option) (*dataset.Dataset, error) {
	o := newEvalOptions(opts)

	if o.tracing {
		var span trace.Span
		ctx, span = observability.StartSpan(ctx, observability.SpanPipelineEvaluate)
		defer span.End()
		observability.SetSpanAttribute(ctx, observability.AttrSteps, len(p.steps))
	}

	start := time.Now()
	out, err := p.fold(ctx, Chain(o.middlewares...)(baseEvaluator))
	duration := time.Since(start)

	status := observability.StatusOK
	if err != nil {
		status = observability.StatusError
		if o.tracing {
			observability.SetSpanError(ctx, err)
		}
	}
	if o.metrics != nil {
		o.metrics.RecordPipeline(ctx, status, len(p.steps), duration)
	}
	if o.log != nil {
		fields := logger.Fields(logger.FieldPipelineSz, len(p.steps), logger.FieldStatus, status)
		if err != nil {
			o.log.WithContext(ctx).Error("pipeline evaluation failed", logger.MergeWithError(fields, err))
		} else {
			fields[logger.FieldDatasetID] = out.ID().String()
			o.log.WithContext(ctx).Info("pipeline evaluated", logger.MergeWithDuration(fields, duration))
		}
	}
	return out, err
}

func (p *Pipeline) fold(ctx context.Context, eval Evaluator) (*dataset.Dataset, error) {
	if len(p.steps) == 0 {
		if p.initial == nil {
			return nil, errors.TypeMismatch("pipeline", "no initial dataset and no steps")
		}
		return p.initial, nil
	}

	current := p.initial
	for i, step := range p.steps {
		if err := ctx.Err(); err != nil {
			return nil, errors.Evaluation(i, step.Describe(), err)
		}
		next, err := eval(ctx, i, step, current)
		if err != nil {
			return nil, atStep(i, step, err)
		}
		current = next
	}
	return current, nil
}

// atStep indexes a step failure. A bare step failure is replaced rather
// than wrapped so the chain holds one EVALUATION_FAILED error.
func atStep(i int, step *Step, err error) error {
	cause := err
	if appErr, ok := err.(*errors.AppError); ok && appErr.Code == errors.ErrCodeEvaluation {
		if _, indexed := appErr.Details[errors.DetailStepIndex]; indexed {
			return err
		}
		cause = appErr.Cause
	}
	return errors.Evaluation(i, step.Describe(), cause)
}

// History returns a lazy, restartable sequence of (index, description)
// entries in pipeline order. It does not evaluate anything.
func (p *Pipeline) History() *stream.Stream[Entry] {
	steps := p.steps
	return stream.Generate(len(steps), func(i int) (Entry, error) {
		return Entry{Index: i, Description: steps[i].Describe()}, nil
	})
}

// Summary renders History as "<index>: <description>" lines. Rendering
// ignores cancellation of ctx so a failed or cancelled run still reports
// its history.
func (p *Pipeline) Summary(ctx context.Context) (string, error) {
	lines, err := stream.Collect(context.WithoutCancel(ctx), stream.Map(p.History(), func(_ context.Context, e Entry) (string, error) {
		return e.String(), nil
	}))
	if err != nil {
		return "", err
	}
	return strings.Join(lines, "\n"), nil
}
