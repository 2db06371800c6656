package workflow

import (
	"bytes"
	"context"
	stderrors "errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/kbukum/hollowfoot/dataset"
	"github.com/kbukum/hollowfoot/errors"
	"github.com/kbukum/hollowfoot/logger"
	"github.com/kbukum/hollowfoot/observability"
	"github.com/kbukum/hollowfoot/registry"
)

var errBoom = stderrors.New("boom")

type counters struct {
	mu    sync.Mutex
	calls map[string]int
}

func (c *counters) inc(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls[name]++
}

func (c *counters) get(name string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[name]
}

func seed() *dataset.Dataset {
	return dataset.New(map[string]dataset.Group{
		"A": dataset.NewGroup(map[string][]float64{"x": {1, 2}, "y": {1, 1}}, nil),
		"B": dataset.NewGroup(map[string][]float64{"x": {1, 2}, "y": {3, 3}}, nil),
	}, nil)
}

// testRegistry registers load, scale, offset, merge, plot and fail.
func testRegistry(t *testing.T) (*registry.Registry, *counters) {
	t.Helper()
	c := &counters{calls: map[string]int{}}
	reg := registry.New()

	transform := func(name string, fn func(y float64, args registry.Args) float64) registry.Func {
		return func(_ context.Context, in *dataset.Dataset, args registry.Args) (*dataset.Dataset, error) {
			c.inc(name)
			b := dataset.From(in)
			for _, gname := range in.GroupNames() {
				g, _ := in.Group(gname)
				y, _ := g.Array("y")
				for i := range y {
					y[i] = fn(y[i], args)
				}
				b.SetGroup(gname, g.With(map[string][]float64{"y": y}, nil))
			}
			return b.Build(), nil
		}
	}

	reg.MustRegister(registry.Contract{
		Name:   "load",
		Schema: registry.Schema{{Name: "path", Kind: registry.KindString, Required: true}},
		Source: true,
		Func: func(context.Context, *dataset.Dataset, registry.Args) (*dataset.Dataset, error) {
			c.inc("load")
			return seed(), nil
		},
	})
	reg.MustRegister(registry.Contract{
		Name:   "scale",
		Schema: registry.Schema{{Name: "factor", Kind: registry.KindFloat, Required: true, Min: registry.Bound(0)}},
		Input:  registry.InputSpec{Arrays: []string{"y"}},
		Func:   transform("scale", func(y float64, a registry.Args) float64 { return y * a.Float("factor") }),
	})
	reg.MustRegister(registry.Contract{
		Name:   "offset",
		Schema: registry.Schema{{Name: "by", Kind: registry.KindFloat, Default: 1.0}},
		Input:  registry.InputSpec{Arrays: []string{"y"}},
		Func:   transform("offset", func(y float64, a registry.Args) float64 { return y + a.Float("by") }),
	})
	reg.MustRegister(registry.Contract{
		Name:   "merge",
		Input:  registry.InputSpec{Arrays: []string{"x", "y"}, MinGroups: 1},
		Output: registry.OutputSingle,
		Func: func(_ context.Context, in *dataset.Dataset, _ registry.Args) (*dataset.Dataset, error) {
			c.inc("merge")
			var x, sum []float64
			for _, name := range in.GroupNames() {
				g, _ := in.Group(name)
				y, _ := g.Array("y")
				if sum == nil {
					x, _ = g.Array("x")
					sum = make([]float64, len(y))
				}
				for i := range y {
					sum[i] += y[i] / float64(in.Len())
				}
			}
			merged := dataset.NewGroup(map[string][]float64{"x": x, "y": sum}, nil)
			return dataset.From(in).ClearGroups().SetGroup("merged", merged).Build(), nil
		},
	})
	reg.MustRegister(registry.Contract{
		Name:   "plot",
		Output: registry.OutputPassthrough,
		Schema: registry.Schema{{Name: "title", Kind: registry.KindString}},
		Func: func(_ context.Context, in *dataset.Dataset, _ registry.Args) (*dataset.Dataset, error) {
			c.inc("plot")
			return in, nil
		},
	})
	reg.MustRegister(registry.Contract{
		Name: "fail",
		Func: func(context.Context, *dataset.Dataset, registry.Args) (*dataset.Dataset, error) {
			c.inc("fail")
			return nil, errBoom
		},
	})
	return reg, c
}

func mustThen(t *testing.T, p *Pipeline, reg *registry.Registry, name string, args []any, kwargs map[string]any) *Pipeline {
	t.Helper()
	next, err := p.Then(reg, name, args, kwargs)
	if err != nil {
		t.Fatalf("Then(%s): %v", name, err)
	}
	return next
}

func yOf(t *testing.T, ds *dataset.Dataset, group string) []float64 {
	t.Helper()
	g, ok := ds.Group(group)
	if !ok {
		t.Fatalf("group %q missing; have %v", group, ds.GroupNames())
	}
	y, _ := g.Array("y")
	return y
}

func TestStepDescribe(t *testing.T) {
	reg, _ := testRegistry(t)

	tests := []struct {
		name   string
		op     string
		args   []any
		kwargs map[string]any
		want   string
	}{
		{"no args", "merge", nil, nil, "merge()"},
		{"positional string", "load", []any{"/data/fe"}, nil, "load(/data/fe)"},
		{"float", "scale", []any{2.5}, nil, "scale(2.5)"},
		{"int for float", "scale", []any{2}, nil, "scale(2)"},
		{"named", "offset", nil, map[string]any{"by": -0.5}, "offset(by=-0.5)"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s, err := NewStep(reg, tc.op, tc.args, tc.kwargs)
			if err != nil {
				t.Fatalf("NewStep: %v", err)
			}
			if got := s.Describe(); got != tc.want {
				t.Errorf("expected %q, got %q", tc.want, got)
			}
			if s.Describe() != s.Describe() {
				t.Error("Describe is not stable")
			}
		})
	}
}

func TestDescribeSortsNamedArgs(t *testing.T) {
	got := describe("fit", []any{"mu"}, map[string]any{"pre2": -50.0, "e0": 7112.0, "norm": true, "cols": []string{"a", "b"}})
	want := "fit(mu, cols=[a b], e0=7112, norm=true, pre2=-50)"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestNewStepValidationError(t *testing.T) {
	reg, _ := testRegistry(t)
	if _, err := NewStep(reg, "scale", nil, map[string]any{"bad_col": 1}); !errors.HasCode(err, errors.ErrCodeArgumentValidation) {
		t.Errorf("expected ARGUMENT_VALIDATION, got %v", err)
	}
	if _, err := NewStep(reg, "nope", nil, nil); !errors.HasCode(err, errors.ErrCodeUnknownOperation) {
		t.Errorf("expected UNKNOWN_OPERATION, got %v", err)
	}
}

func TestStepMemoizesByIdentity(t *testing.T) {
	reg, c := testRegistry(t)
	s, _ := NewStep(reg, "scale", []any{2}, nil)
	in := seed()

	first, err := s.Evaluate(context.Background(), in)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !s.Evaluated(in) {
		t.Error("expected memo entry")
	}
	second, _ := s.Evaluate(context.Background(), in)
	if first != second {
		t.Error("memoized evaluation returned a different instance")
	}
	if c.get("scale") != 1 {
		t.Errorf("expected 1 call, got %d", c.get("scale"))
	}

	// Equal contents, different identity: recomputed.
	other := seed()
	third, _ := s.Evaluate(context.Background(), other)
	if c.get("scale") != 2 {
		t.Errorf("expected 2 calls, got %d", c.get("scale"))
	}
	if !third.Equal(first) {
		t.Error("expected equal results for equal inputs")
	}
	if first.Version() != in.Version()+1 {
		t.Errorf("version = %d, want %d", first.Version(), in.Version()+1)
	}
	if lin := first.Lineage(); len(lin) != 1 || lin[0] != "scale" {
		t.Errorf("lineage = %v", lin)
	}
}

func TestStepMemoKeepsEveryInput(t *testing.T) {
	reg, c := testRegistry(t)
	s, _ := NewStep(reg, "scale", []any{2}, nil)
	a, b := seed(), seed()
	ctx := context.Background()

	outA, _ := s.Evaluate(ctx, a)
	if _, err := s.Evaluate(ctx, b); err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	again, _ := s.Evaluate(ctx, a)
	if again != outA {
		t.Error("result for the first input was not retained")
	}
	if !s.Evaluated(a) || !s.Evaluated(b) {
		t.Error("expected a memo entry per input")
	}
	if c.get("scale") != 2 {
		t.Errorf("expected 2 calls, got %d", c.get("scale"))
	}
}

func TestStepConcurrentEvaluateCallsOnce(t *testing.T) {
	reg, c := testRegistry(t)
	s, _ := NewStep(reg, "scale", []any{3}, nil)
	in := seed()

	var wg sync.WaitGroup
	results := make([]*dataset.Dataset, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = s.Evaluate(context.Background(), in)
		}(i)
	}
	wg.Wait()

	if c.get("scale") != 1 {
		t.Errorf("expected 1 call, got %d", c.get("scale"))
	}
	for _, r := range results {
		if r != results[0] {
			t.Fatal("goroutines saw different results")
		}
	}
}

func TestStepContractChecks(t *testing.T) {
	reg, _ := testRegistry(t)
	ctx := context.Background()

	load, _ := NewStep(reg, "load", []any{"p"}, nil)
	if _, err := load.Evaluate(ctx, seed()); !errors.HasCode(err, errors.ErrCodeTypeMismatch) {
		t.Errorf("source with input: expected TYPE_MISMATCH, got %v", err)
	}

	scale, _ := NewStep(reg, "scale", []any{1}, nil)
	if _, err := scale.Evaluate(ctx, nil); !errors.HasCode(err, errors.ErrCodeTypeMismatch) {
		t.Errorf("nil input: expected TYPE_MISMATCH, got %v", err)
	}
	noY := dataset.New(map[string]dataset.Group{"A": dataset.NewGroup(map[string][]float64{"x": {1}}, nil)}, nil)
	if _, err := scale.Evaluate(ctx, noY); !errors.HasCode(err, errors.ErrCodeTypeMismatch) {
		t.Errorf("missing array: expected TYPE_MISMATCH, got %v", err)
	}
	if scale.Evaluated(noY) {
		t.Error("failed evaluation must not be memoized")
	}

	plot, _ := NewStep(reg, "plot", nil, nil)
	in := seed()
	out, err := plot.Evaluate(ctx, in)
	if err != nil || out != in {
		t.Errorf("passthrough returned %v, %v", out, err)
	}
}

func TestStepWrapsCallableError(t *testing.T) {
	reg, _ := testRegistry(t)
	s, _ := NewStep(reg, "fail", nil, nil)
	_, err := s.Evaluate(context.Background(), seed())
	if !errors.HasCode(err, errors.ErrCodeEvaluation) {
		t.Fatalf("expected EVALUATION_FAILED, got %v", err)
	}
	if !stderrors.Is(err, errBoom) {
		t.Error("original cause not preserved")
	}
}

func TestPipelineSourceAndFold(t *testing.T) {
	reg, c := testRegistry(t)
	p := mustThen(t, New(), reg, "load", []any{"/data"}, nil)
	p = mustThen(t, p, reg, "scale", []any{2}, nil)
	p = mustThen(t, p, reg, "merge", nil, nil)

	out, err := p.Evaluate(context.Background())
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if out.Len() != 1 {
		t.Fatalf("expected one merged group, got %v", out.GroupNames())
	}
	if y := yOf(t, out, "merged"); y[0] != 4 {
		t.Errorf("merged y = %v, want [4 4]", y)
	}
	if out.Version() != 2 {
		t.Errorf("version = %d, want 2", out.Version())
	}
	if lin := out.Lineage(); strings.Join(lin, ",") != "load,scale,merge" {
		t.Errorf("lineage = %v", lin)
	}
	if c.get("load") != 1 {
		t.Errorf("load calls = %d", c.get("load"))
	}
}

func TestIdempotentMemoization(t *testing.T) {
	reg, c := testRegistry(t)
	p := mustThen(t, FromDataset(seed()), reg, "scale", []any{2}, nil)
	p = mustThen(t, p, reg, "offset", nil, nil)

	first, err := p.Evaluate(context.Background())
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	second, err := p.Evaluate(context.Background())
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !first.Equal(second) {
		t.Error("repeated evaluation changed the result")
	}
	if c.get("scale") != 1 || c.get("offset") != 1 {
		t.Errorf("calls: scale=%d offset=%d, want 1 each", c.get("scale"), c.get("offset"))
	}
}

func TestStructuralSharing(t *testing.T) {
	reg, c := testRegistry(t)
	p := mustThen(t, FromDataset(seed()), reg, "scale", []any{2}, nil)
	extended := mustThen(t, p, reg, "offset", []any{10}, nil)

	if p.Len() != 1 || extended.Len() != 2 {
		t.Fatalf("lengths: p=%d extended=%d", p.Len(), extended.Len())
	}

	base, err := p.Evaluate(context.Background())
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if y := yOf(t, base, "A"); y[0] != 2 {
		t.Errorf("base observed appended step: %v", y)
	}
	if c.get("offset") != 0 {
		t.Error("evaluating the prefix ran the appended step")
	}

	out, err := extended.Evaluate(context.Background())
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if y := yOf(t, out, "A"); y[0] != 12 {
		t.Errorf("extended y = %v, want 12", y)
	}
	if c.get("scale") != 1 {
		t.Errorf("prefix recomputed: scale calls = %d", c.get("scale"))
	}

	// Two branches from one prefix.
	branch := mustThen(t, p, reg, "offset", []any{-1}, nil)
	bout, _ := branch.Evaluate(context.Background())
	if y := yOf(t, bout, "A"); y[0] != 1 {
		t.Errorf("branch y = %v, want 1", y)
	}
	if c.get("scale") != 1 {
		t.Errorf("branch recomputed prefix: scale calls = %d", c.get("scale"))
	}
}

func TestEditInvalidation(t *testing.T) {
	reg, c := testRegistry(t)
	p := mustThen(t, FromDataset(seed()), reg, "offset", []any{1}, nil) // A
	p = mustThen(t, p, reg, "scale", []any{10}, nil)                    // B
	p = mustThen(t, p, reg, "offset", []any{5}, nil)                    // C

	full, err := p.Evaluate(context.Background())
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if y := yOf(t, full, "A"); y[0] != 25 {
		t.Fatalf("full y = %v, want 25", y)
	}

	removed, err := p.Remove(1)
	if err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if p.Len() != 3 || removed.Len() != 2 {
		t.Fatalf("lengths: p=%d removed=%d", p.Len(), removed.Len())
	}

	out, err := removed.Evaluate(context.Background())
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if y := yOf(t, out, "A"); y[0] != 7 {
		t.Errorf("C not recomputed against A: y = %v, want 7", y)
	}
	if c.get("offset") != 3 {
		t.Errorf("offset calls = %d, want 3 (A once, C twice)", c.get("offset"))
	}
	if c.get("scale") != 1 {
		t.Errorf("removed step ran again: scale calls = %d", c.get("scale"))
	}
}

func TestReorderAndTruncate(t *testing.T) {
	reg, _ := testRegistry(t)
	p := mustThen(t, FromDataset(seed()), reg, "offset", []any{1}, nil)
	p = mustThen(t, p, reg, "scale", []any{10}, nil)

	swapped, err := p.Reorder([]int{1, 0})
	if err != nil {
		t.Fatalf("Reorder: %v", err)
	}
	out, _ := swapped.Evaluate(context.Background())
	if y := yOf(t, out, "A"); y[0] != 11 {
		t.Errorf("reordered y = %v, want 11", y)
	}
	summary, _ := swapped.Summary(context.Background())
	if summary != "0: scale(10)\n1: offset(1)" {
		t.Errorf("unexpected summary %q", summary)
	}

	short, err := p.Truncate(1)
	if err != nil {
		t.Fatalf("Truncate: %v", err)
	}
	out, _ = short.Evaluate(context.Background())
	if y := yOf(t, out, "A"); y[0] != 2 {
		t.Errorf("truncated y = %v, want 2", y)
	}
	// Appending to a truncated pipeline must not clobber the original.
	_ = mustThen(t, short, reg, "offset", []any{100}, nil)
	if s, _ := p.Step(1); s.Name() != "scale" {
		t.Errorf("original step 1 changed to %s", s.Name())
	}

	for _, perm := range [][]int{{0}, {0, 0}, {0, 2}, {-1, 0}} {
		if _, err := p.Reorder(perm); !errors.HasCode(err, errors.ErrCodeInvalidInput) {
			t.Errorf("Reorder(%v): expected INVALID_INPUT, got %v", perm, err)
		}
	}
	if _, err := p.Truncate(3); !errors.HasCode(err, errors.ErrCodeInvalidInput) {
		t.Errorf("expected INVALID_INPUT, got %v", err)
	}
	if _, err := p.Remove(2); !errors.HasCode(err, errors.ErrCodeInvalidInput) {
		t.Errorf("expected INVALID_INPUT, got %v", err)
	}
}

func TestHistoryDeterminism(t *testing.T) {
	reg, _ := testRegistry(t)
	p := mustThen(t, New(), reg, "load", []any{"/data"}, nil)
	p = mustThen(t, p, reg, "scale", nil, map[string]any{"factor": 0.5})
	p = mustThen(t, p, reg, "merge", nil, nil)

	before, err := p.Summary(context.Background())
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if _, err := p.Evaluate(context.Background()); err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	after, _ := p.Summary(context.Background())
	if before != after {
		t.Errorf("summary changed after evaluation:\n%s\n---\n%s", before, after)
	}
	want := "0: load(/data)\n1: scale(factor=0.5)\n2: merge()"
	if before != want {
		t.Errorf("expected %q, got %q", want, before)
	}
}

func TestSummaryIgnoresCancellation(t *testing.T) {
	reg, _ := testRegistry(t)
	p := mustThen(t, New(), reg, "load", []any{"/data"}, nil)
	p = mustThen(t, p, reg, "merge", nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.Evaluate(ctx); err == nil {
		t.Fatal("expected evaluation under a cancelled context to fail")
	}
	summary, err := p.Summary(ctx)
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if summary != "0: load(/data)\n1: merge()" {
		t.Errorf("unexpected summary %q", summary)
	}
}

func TestValidationAtomicity(t *testing.T) {
	reg, _ := testRegistry(t)
	p := mustThen(t, FromDataset(seed()), reg, "scale", []any{1}, nil)

	next, err := p.Then(reg, "scale", nil, map[string]any{"bad_col": 1})
	if !errors.HasCode(err, errors.ErrCodeArgumentValidation) {
		t.Fatalf("expected ARGUMENT_VALIDATION, got %v", err)
	}
	if next != p {
		t.Error("failed Then must return the receiver")
	}
	if p.Len() != 1 {
		t.Errorf("pipeline length changed to %d", p.Len())
	}
}

func TestFailureScenario(t *testing.T) {
	reg, c := testRegistry(t)
	p := mustThen(t, FromDataset(seed()), reg, "scale", []any{2}, nil)
	p = mustThen(t, p, reg, "fail", nil, nil)
	p = mustThen(t, p, reg, "offset", nil, nil)

	out, err := p.Evaluate(context.Background())
	if out != nil {
		t.Error("failed evaluation returned a dataset")
	}
	if !errors.HasCode(err, errors.ErrCodeEvaluation) {
		t.Fatalf("expected EVALUATION_FAILED, got %v", err)
	}
	if idx, ok := errors.StepIndex(err); !ok || idx != 1 {
		t.Errorf("step index = %d (%v), want 1", idx, ok)
	}
	appErr, _ := errors.AsAppError(err)
	if appErr.Details[errors.DetailStep] != "fail()" {
		t.Errorf("step detail = %v", appErr.Details[errors.DetailStep])
	}
	if !stderrors.Is(err, errBoom) {
		t.Error("cause chain lost")
	}
	if c.get("offset") != 0 {
		t.Error("step after the failure was evaluated")
	}
	summary, _ := p.Summary(context.Background())
	if summary != "0: scale(2)\n1: fail()\n2: offset()" {
		t.Errorf("unexpected summary %q", summary)
	}
}

func TestSeedAndSourceErrors(t *testing.T) {
	reg, _ := testRegistry(t)
	ctx := context.Background()

	if _, err := New().Evaluate(ctx); !errors.HasCode(err, errors.ErrCodeTypeMismatch) {
		t.Errorf("empty pipeline: expected TYPE_MISMATCH, got %v", err)
	}

	unseeded := mustThen(t, New(), reg, "scale", []any{1}, nil)
	_, err := unseeded.Evaluate(ctx)
	if !errors.HasCode(err, errors.ErrCodeTypeMismatch) || !errors.HasCode(err, errors.ErrCodeEvaluation) {
		t.Errorf("no seed: expected TYPE_MISMATCH at step 0, got %v", err)
	}
	if idx, _ := errors.StepIndex(err); idx != 0 {
		t.Errorf("index = %d, want 0", idx)
	}

	lateSource := mustThen(t, FromDataset(seed()), reg, "load", []any{"x"}, nil)
	if _, err := lateSource.Evaluate(ctx); !errors.HasCode(err, errors.ErrCodeTypeMismatch) {
		t.Errorf("seed plus source: expected TYPE_MISMATCH, got %v", err)
	}

	seeded := unseeded.WithInitial(seed())
	if _, err := seeded.Evaluate(ctx); err != nil {
		t.Errorf("WithInitial: %v", err)
	}
	if unseeded.Initial() != nil {
		t.Error("WithInitial changed the receiver")
	}

	only, err := FromDataset(seed()).Evaluate(ctx)
	if err != nil || only.Len() != 2 {
		t.Errorf("seed only: %v, %v", only, err)
	}
}

func TestEvaluateCanceled(t *testing.T) {
	reg, c := testRegistry(t)
	p := mustThen(t, FromDataset(seed()), reg, "scale", []any{1}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Evaluate(ctx)
	if !stderrors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled in chain, got %v", err)
	}
	if c.get("scale") != 0 {
		t.Error("step ran after cancellation")
	}
}

func TestPassthroughKeepsIdentity(t *testing.T) {
	reg, c := testRegistry(t)
	p := mustThen(t, FromDataset(seed()), reg, "scale", []any{2}, nil)
	withPlot := mustThen(t, p, reg, "plot", nil, nil)
	withPlot = mustThen(t, withPlot, reg, "offset", nil, nil)

	plain := mustThen(t, p, reg, "offset", nil, nil)
	a, _ := plain.Evaluate(context.Background())
	b, _ := withPlot.Evaluate(context.Background())
	if !a.Equal(b) {
		t.Error("plot step altered data")
	}
	if c.get("plot") != 1 {
		t.Errorf("plot calls = %d", c.get("plot"))
	}
}

func TestLoggingMiddleware(t *testing.T) {
	reg, _ := testRegistry(t)
	var buf bytes.Buffer
	log := logger.NewWithWriter(&logger.Config{Level: "debug", Format: "json", Output: "stderr"}, "test", &buf)

	p := mustThen(t, FromDataset(seed()), reg, "scale", []any{2}, nil)
	p = mustThen(t, p, reg, "fail", nil, nil)
	_, _ = p.Evaluate(context.Background(), WithLogger(log))

	out := buf.String()
	for _, want := range []string{`"step evaluated"`, `"step failed"`, `"pipeline evaluation failed"`, `"step":"scale(2)"`, `"component":"workflow"`} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %s:\n%s", want, out)
		}
	}
}

func TestEmptyOutputWarns(t *testing.T) {
	var buf bytes.Buffer
	prev := logger.Get("workflow")
	logger.Register("workflow", logger.NewWithWriter(&logger.Config{Level: "debug", Format: "json"}, "test", &buf).WithComponent("workflow"))
	t.Cleanup(func() { logger.Register("workflow", prev) })

	reg, _ := testRegistry(t)
	reg.MustRegister(registry.Contract{
		Name: "drop_all",
		Func: func(context.Context, *dataset.Dataset, registry.Args) (*dataset.Dataset, error) {
			return dataset.Empty(), nil
		},
	})
	p := mustThen(t, FromDataset(seed()), reg, "drop_all", nil, nil)

	out, err := p.Evaluate(context.Background())
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if out.Len() != 0 {
		t.Fatalf("expected no groups, got %v", out.GroupNames())
	}
	logged := buf.String()
	for _, want := range []string{`"level":"warn"`, `"step produced no groups"`, `"step":"drop_all()"`} {
		if !strings.Contains(logged, want) {
			t.Errorf("log output missing %s:\n%s", want, logged)
		}
	}
}

func TestTracingMiddleware(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	defer func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	}()

	reg, _ := testRegistry(t)
	p := mustThen(t, FromDataset(seed()), reg, "scale", []any{2}, nil)
	p = mustThen(t, p, reg, "merge", nil, nil)
	if _, err := p.Evaluate(context.Background(), WithTracing("")); err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	names := map[string]bool{}
	for _, s := range rec.Ended() {
		names[s.Name()] = true
	}
	for _, want := range []string{observability.SpanPipelineEvaluate, "hollowfoot.step.scale", "hollowfoot.step.merge"} {
		if !names[want] {
			t.Errorf("missing span %s; have %v", want, names)
		}
	}
}

func TestMetricsMiddleware(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer mp.Shutdown(context.Background())
	metrics, err := observability.NewMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}

	reg, _ := testRegistry(t)
	p := mustThen(t, FromDataset(seed()), reg, "scale", []any{2}, nil)
	ctx := context.Background()
	_, _ = p.Evaluate(ctx, WithMetrics(metrics))
	_, _ = p.Evaluate(ctx, WithMetrics(metrics))

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	sums := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if data, ok := m.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range data.DataPoints {
					sums[m.Name] += dp.Value
				}
			}
		}
	}
	if sums["hollowfoot.step.evaluations"] != 1 {
		t.Errorf("step evaluations = %d, want 1", sums["hollowfoot.step.evaluations"])
	}
	if sums["hollowfoot.step.memo_hits"] != 1 {
		t.Errorf("memo hits = %d, want 1", sums["hollowfoot.step.memo_hits"])
	}
	if sums["hollowfoot.pipeline.evaluations"] != 2 {
		t.Errorf("pipeline evaluations = %d, want 2", sums["hollowfoot.pipeline.evaluations"])
	}
}

func TestChainOrder(t *testing.T) {
	var order []string
	mark := func(name string) Middleware {
		return func(next Evaluator) Evaluator {
			return func(ctx context.Context, i int, s *Step, in *dataset.Dataset) (*dataset.Dataset, error) {
				order = append(order, name)
				return next(ctx, i, s, in)
			}
		}
	}

	reg, _ := testRegistry(t)
	p := mustThen(t, FromDataset(seed()), reg, "plot", nil, nil)
	if _, err := p.Evaluate(context.Background(), WithMiddleware(mark("a"), mark("b"))); err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if strings.Join(order, "") != "ab" {
		t.Errorf("middleware order = %v", order)
	}
}

func TestHistoryIsRestartable(t *testing.T) {
	reg, _ := testRegistry(t)
	p := mustThen(t, FromDataset(seed()), reg, "scale", []any{2}, nil)
	var pulls atomic.Int32
	h := p.History()
	for range 2 {
		iter := h.Iter(context.Background())
		for {
			e, ok, err := iter.Next(context.Background())
			if err != nil || !ok {
				break
			}
			if e.String() != "0: scale(2)" {
				t.Errorf("entry = %q", e.String())
			}
			pulls.Add(1)
		}
		_ = iter.Close()
	}
	if pulls.Load() != 2 {
		t.Errorf("pulls = %d, want 2", pulls.Load())
	}
}
