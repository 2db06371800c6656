package analysis

import (
	"context"
	"maps"

	"github.com/kbukum/hollowfoot/dataset"
	"github.com/kbukum/hollowfoot/logger"
	"github.com/kbukum/hollowfoot/registry"
	"github.com/kbukum/hollowfoot/source"
	"github.com/kbukum/hollowfoot/workflow"
	"github.com/kbukum/hollowfoot/xafs"
)

// Kwargs are named arguments of a chain call.
type Kwargs = map[string]any

// Analysis is an immutable pipeline under construction.
type Analysis struct {
	reg      *registry.Registry
	pipeline *workflow.Pipeline
	eager    bool
	log      *logger.Logger
	evalOpts []workflow.Option
	err      error
}

// Option configures an Analysis.
type Option func(*Analysis)

// WithRegistry resolves operations in reg instead of DefaultRegistry.
func WithRegistry(reg *registry.Registry) Option {
	return func(a *Analysis) { a.reg = reg }
}

// WithEager evaluates the pipeline after every appended step.
func WithEager(eager bool) Option {
	return func(a *Analysis) { a.eager = eager }
}

// WithLogger logs appended steps and every evaluation to l.
func WithLogger(l *logger.Logger) Option {
	return func(a *Analysis) { a.log = l }
}

// WithEvaluation passes opts, such as workflow.WithTracing, to every
// evaluation.
func WithEvaluation(opts ...workflow.Option) Option {
	return func(a *Analysis) { a.evalOpts = append(a.evalOpts, opts...) }
}

// New returns an empty Analysis resolving operations in reg. A nil reg
// selects DefaultRegistry.
func New(reg *registry.Registry, opts ...Option) *Analysis {
	a := &Analysis{reg: reg, pipeline: workflow.New()}
	for _, opt := range opts {
		opt(a)
	}
	if a.reg == nil {
		a.reg, a.err = DefaultRegistry()
	}
	if a.log == nil {
		a.log = logger.Get("analysis")
	}
	return a
}

// FromSource starts an Analysis with a from_source step loading path.
func FromSource(path string, opts ...Option) *Analysis {
	return New(nil, opts...).chain(source.OpFromSource, []any{path}, nil)
}

// FromAPS20BMB starts an Analysis loading 20-BM-B scans from path.
func FromAPS20BMB(path string, opts ...Option) *Analysis {
	return New(nil, opts...).chain(source.OpFromAPS20BMB, []any{path}, nil)
}

// FromDataset starts an Analysis over an existing Dataset.
func FromDataset(ds *dataset.Dataset, opts ...Option) *Analysis {
	a := New(nil, opts...)
	a.pipeline = workflow.FromDataset(ds)
	return a
}

// FromPipeline wraps an already built Pipeline, such as one resolved from a
// recipe.
func FromPipeline(p *workflow.Pipeline, opts ...Option) *Analysis {
	a := New(nil, opts...)
	a.pipeline = p
	return a
}

func (a *Analysis) with(p *workflow.Pipeline) *Analysis {
	next := *a
	next.pipeline = p
	return &next
}

func (a *Analysis) withErr(err error) *Analysis {
	next := *a
	next.err = err
	return &next
}

// Apply appends a validated call of the named operation. On a validation
// error the receiver is returned unchanged. Eager operations, or every
// operation under WithEager, are evaluated at once; an evaluation error is
// returned together with the extended Analysis.
func (a *Analysis) Apply(name string, args []any, kwargs map[string]any) (*Analysis, error) {
	return a.ApplyContext(context.Background(), name, args, kwargs)
}

// ApplyContext is Apply with a context for eager evaluation.
func (a *Analysis) ApplyContext(ctx context.Context, name string, args []any, kwargs map[string]any) (*Analysis, error) {
	if a.err != nil {
		return a, a.err
	}
	p, err := a.pipeline.Then(a.reg, name, args, kwargs)
	if err != nil {
		a.log.Warn("step rejected", logger.ErrorFields(name, err))
		return a, err
	}
	next := a.with(p)
	step, _ := p.Step(p.Len() - 1)
	a.log.Debug("step appended", logger.Fields(
		logger.FieldStep, step.Describe(),
		logger.FieldStepIndex, p.Len()-1,
	))

	if a.eager || step.Contract().Eager {
		if _, err := next.Calculate(ctx); err != nil {
			return next, err
		}
	}
	return next, nil
}

// chain is Apply with a sticky error.
func (a *Analysis) chain(name string, args []any, kwargs map[string]any) *Analysis {
	if a.err != nil {
		return a
	}
	next, err := a.Apply(name, args, kwargs)
	if err != nil {
		return next.withErr(err)
	}
	return next
}

func merged(kw []Kwargs) map[string]any {
	if len(kw) == 0 {
		return nil
	}
	out := make(map[string]any)
	for _, m := range kw {
		maps.Copy(out, m)
	}
	return out
}

// ToMu appends to_mu. Pass "reference" and "is_transmission" as kwargs.
func (a *Analysis) ToMu(energy, signal string, kw ...Kwargs) *Analysis {
	return a.chain(xafs.OpToMu, []any{energy, signal}, merged(kw))
}

// Merge appends merge.
func (a *Analysis) Merge() *Analysis {
	return a.chain(xafs.OpMerge, nil, nil)
}

// FitEdgeJump appends fit_edge_jump.
func (a *Analysis) FitEdgeJump(kw ...Kwargs) *Analysis {
	return a.chain(xafs.OpFitEdgeJump, nil, merged(kw))
}

// SubtractBackground appends subtract_background.
func (a *Analysis) SubtractBackground(kw ...Kwargs) *Analysis {
	return a.chain(xafs.OpSubtractBackground, nil, merged(kw))
}

// PlotMu appends plot_mu, which draws as soon as it is appended.
func (a *Analysis) PlotMu(kw ...Kwargs) *Analysis {
	return a.chain(xafs.OpPlotMu, nil, merged(kw))
}

// PlotChiK appends plot_chik, which draws as soon as it is appended.
func (a *Analysis) PlotChiK(kw ...Kwargs) *Analysis {
	return a.chain(xafs.OpPlotChiK, nil, merged(kw))
}

// SaveXDI appends save_xdi, which writes as soon as it is appended.
func (a *Analysis) SaveXDI(dir string) *Analysis {
	return a.chain(xafs.OpSaveXDI, []any{dir}, nil)
}

// Err returns the first error recorded by a chain method.
func (a *Analysis) Err() error { return a.err }

// Pipeline returns the underlying Pipeline.
func (a *Analysis) Pipeline() *workflow.Pipeline { return a.pipeline }

// Registry returns the registry operations are resolved in.
func (a *Analysis) Registry() *registry.Registry { return a.reg }

// Calculate evaluates the pipeline. Steps already evaluated against the
// same input are not run again.
func (a *Analysis) Calculate(ctx context.Context) (*dataset.Dataset, error) {
	if a.err != nil {
		return nil, a.err
	}
	opts := append([]workflow.Option{workflow.WithLogger(a.log)}, a.evalOpts...)
	return a.pipeline.Evaluate(ctx, opts...)
}

// Summarize evaluates the pipeline and renders its history, one
// "<index>: <step>" line per step. The history is returned even when
// evaluation fails.
func (a *Analysis) Summarize(ctx context.Context) (string, error) {
	_, evalErr := a.Calculate(ctx)
	summary, _ := a.pipeline.Summary(ctx)
	return summary, evalErr
}

// Remove returns an Analysis without step i.
func (a *Analysis) Remove(i int) (*Analysis, error) {
	p, err := a.pipeline.Remove(i)
	if err != nil {
		return a, err
	}
	return a.with(p), nil
}

// Truncate returns an Analysis keeping the first n steps.
func (a *Analysis) Truncate(n int) (*Analysis, error) {
	p, err := a.pipeline.Truncate(n)
	if err != nil {
		return a, err
	}
	return a.with(p), nil
}

// Reorder returns an Analysis whose step k is the receiver's step perm[k].
func (a *Analysis) Reorder(perm []int) (*Analysis, error) {
	p, err := a.pipeline.Reorder(perm)
	if err != nil {
		return a, err
	}
	return a.with(p), nil
}
