package xafs

import (
	"context"
	"fmt"
	"math"

	"github.com/kbukum/hollowfoot/dataset"
	"github.com/kbukum/hollowfoot/registry"
)

func fitEdgeJumpContract() registry.Contract {
	return registry.Contract{
		Name:        OpFitEdgeJump,
		Description: "fit edge jump in µ(E)",
		Schema: registry.Schema{
			{Name: "e0", Kind: registry.KindFloat, Min: registry.Bound(0), Doc: "edge energy; found from the steepest rise when omitted"},
			{Name: "pre1", Kind: registry.KindFloat, Default: -150.0, Doc: "pre-edge range start, relative to e0"},
			{Name: "pre2", Kind: registry.KindFloat, Default: -30.0, Doc: "pre-edge range end, relative to e0"},
			{Name: "norm1", Kind: registry.KindFloat, Default: 150.0, Doc: "post-edge range start, relative to e0"},
			{Name: "norm2", Kind: registry.KindFloat, Default: 800.0, Doc: "post-edge range end, relative to e0"},
		},
		Func:  fitEdgeJump,
		Input: registry.InputSpec{Arrays: []string{ArrayEnergy, ArrayMu}, MinGroups: 1},
	}
}

// edgeFit is the result of normalizing one spectrum.
type edgeFit struct {
	e0, step   float64
	pre, post  []float64
	norm, flat []float64
}

// fitEdgeJump fits a line below the edge and a quadratic above it, and
// normalizes mu by the jump between them at e0.
func fitEdgeJump(ctx context.Context, in *dataset.Dataset, args registry.Args) (*dataset.Dataset, error) {
	pre1, pre2 := args.Float("pre1"), args.Float("pre2")
	norm1, norm2 := args.Float("norm1"), args.Float("norm2")
	if pre1 >= pre2 || norm1 >= norm2 {
		return nil, fmt.Errorf("fit ranges must be increasing: pre [%g, %g], norm [%g, %g]", pre1, pre2, norm1, norm2)
	}

	b := dataset.From(in)
	for _, name := range in.GroupNames() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		g, _ := in.Group(name)
		if err := requireArrays(OpFitEdgeJump, g, name, ArrayEnergy, ArrayMu); err != nil {
			return nil, err
		}
		energy, _ := g.Array(ArrayEnergy)
		mu, _ := g.Array(ArrayMu)

		e0 := args.Float("e0")
		if !args.Has("e0") {
			var err error
			if e0, err = findE0(energy, mu); err != nil {
				return nil, fmt.Errorf("group %q: %w", name, err)
			}
		}
		fit, err := normalize(energy, mu, e0, pre1, pre2, norm1, norm2)
		if err != nil {
			return nil, fmt.Errorf("group %q: %w", name, err)
		}
		b.SetGroup(name, g.With(map[string][]float64{
			ArrayPreEdge:  fit.pre,
			ArrayPostEdge: fit.post,
			ArrayNorm:     fit.norm,
			ArrayFlat:     fit.flat,
		}, map[string]any{
			AttrE0:       fit.e0,
			AttrEdgeStep: fit.step,
		}))
	}
	return b.Build(), nil
}

func normalize(energy, mu []float64, e0, pre1, pre2, norm1, norm2 float64) (*edgeFit, error) {
	px, py := window(energy, mu, e0+pre1, e0+pre2)
	preC, err := linearFit(px, py)
	if err != nil {
		return nil, fmt.Errorf("pre-edge: %w", err)
	}
	nx, ny := window(energy, mu, e0+norm1, e0+norm2)
	postC, err := polyFit(nx, ny, 2)
	if err != nil {
		return nil, fmt.Errorf("post-edge: %w", err)
	}

	step := polyEval(postC, e0) - polyEval(preC, e0)
	if step == 0 || math.IsNaN(step) {
		return nil, fmt.Errorf("edge step at %g is %g", e0, step)
	}

	fit := &edgeFit{
		e0:   e0,
		step: step,
		pre:  make([]float64, len(energy)),
		post: make([]float64, len(energy)),
		norm: make([]float64, len(energy)),
		flat: make([]float64, len(energy)),
	}
	for i, e := range energy {
		fit.pre[i] = polyEval(preC, e)
		fit.post[i] = polyEval(postC, e)
		fit.norm[i] = (mu[i] - fit.pre[i]) / step
		fit.flat[i] = fit.norm[i]
		if e >= e0 {
			fit.flat[i] = (mu[i]-fit.post[i])/step + 1
		}
	}
	return fit, nil
}
