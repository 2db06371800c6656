package xafs

import (
	"context"
	"fmt"
	"math"

	"github.com/kbukum/hollowfoot/dataset"
	"github.com/kbukum/hollowfoot/registry"
)

// kStep is the spacing of the uniform k grid in Å⁻¹.
const kStep = 0.05

func subtractBackgroundContract() registry.Contract {
	return registry.Contract{
		Name:        OpSubtractBackground,
		Description: "subtract background to produce χ(k)",
		Schema: registry.Schema{
			{Name: "kweight", Kind: registry.KindInt, Default: 2, Min: registry.Bound(0), Max: registry.Bound(3), Doc: "k weight used when plotting χ(k)"},
			{Name: "window", Kind: registry.KindFloat, Default: 1.0, Min: registry.Bound(0.1), Max: registry.Bound(10), Doc: "background smoothing width in Å⁻¹"},
		},
		Func: subtractBackground,
		Input: registry.InputSpec{
			Arrays:    []string{ArrayEnergy, ArrayFlat},
			Attrs:     []string{AttrE0},
			MinGroups: 1,
		},
	}
}

// subtractBackground maps the flattened spectrum above e0 onto a uniform k
// grid and removes a smooth background, leaving the oscillations χ(k).
func subtractBackground(ctx context.Context, in *dataset.Dataset, args registry.Args) (*dataset.Dataset, error) {
	kweight, width := args.Int("kweight"), args.Float("window")

	b := dataset.From(in)
	for _, name := range in.GroupNames() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		g, _ := in.Group(name)
		if err := requireArrays(OpSubtractBackground, g, name, ArrayEnergy, ArrayFlat); err != nil {
			return nil, err
		}
		e0, ok := g.FloatAttr(AttrE0)
		if !ok {
			return nil, fmt.Errorf("group %q: e0 is not a number", name)
		}
		energy, _ := g.Array(ArrayEnergy)
		flat, _ := g.Array(ArrayFlat)

		k, chi, bkg, err := extractChi(energy, flat, e0, width)
		if err != nil {
			return nil, fmt.Errorf("group %q: %w", name, err)
		}
		b.SetGroup(name, g.With(map[string][]float64{
			ArrayK:   k,
			ArrayChi: chi,
			ArrayBkg: bkg,
		}, map[string]any{
			AttrKWeight: kweight,
			AttrWindow:  width,
		}))
	}
	return b.Build(), nil
}

func extractChi(energy, flat []float64, e0, width float64) (k, chi, bkg []float64, err error) {
	var ks, ys []float64
	for i, e := range energy {
		if e > e0 {
			ks = append(ks, math.Sqrt(etok*(e-e0)))
			ys = append(ys, flat[i])
		}
	}
	if len(ks) < 2 {
		return nil, nil, nil, fmt.Errorf("fewer than 2 points above e0 = %g", e0)
	}

	kmax := ks[len(ks)-1]
	for _, v := range ks {
		kmax = math.Max(kmax, v)
	}
	n := int(math.Floor(kmax/kStep)) + 1
	k = make([]float64, n)
	for i := range k {
		k[i] = float64(i) * kStep
	}
	onGrid, err := resample(ks, ys, k)
	if err != nil {
		return nil, nil, nil, err
	}
	bkg = smooth(k, onGrid, width)
	chi = make([]float64, n)
	for i := range chi {
		chi[i] = onGrid[i] - bkg[i]
	}
	return k, chi, bkg, nil
}

// weighted returns chi * k^kweight.
func weighted(k, chi []float64, kweight int) []float64 {
	out := make([]float64, len(chi))
	for i := range chi {
		out[i] = chi[i] * math.Pow(k[i], float64(kweight))
	}
	return out
}
