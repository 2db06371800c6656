// Package workflow is the step engine: memoized Steps composed into
// immutable Pipelines.
//
// A Step is one validated call of a registered operation. Evaluating it
// against an input Dataset runs the operation once and remembers the result
// under the input's identity, so repeated evaluation is free and evaluation
// against a different input (after the pipeline was edited) recomputes.
//
// A Pipeline is an ordered list of Steps plus an optional initial Dataset.
// Every edit returns a new Pipeline; the Steps themselves are shared, which
// is how two branches built from a common prefix reuse each other's work.
//
//	p, err := workflow.FromDataset(ds).Then(reg, "merge", nil, nil)
//	out, err := p.Evaluate(ctx, workflow.WithLogger(log))
//	summary, _ := p.Summary(ctx)
package workflow
