package xafs

import (
	"context"
	"fmt"
	"math"

	"github.com/kbukum/hollowfoot/dataset"
	"github.com/kbukum/hollowfoot/errors"
	"github.com/kbukum/hollowfoot/registry"
	"github.com/kbukum/hollowfoot/source"
)

// Array and attribute names written by the operations.
const (
	ArrayEnergy   = "energy"
	ArrayMu       = "mu"
	ArrayMuStd    = "mu_std"
	ArrayPreEdge  = "pre_edge"
	ArrayPostEdge = "post_edge"
	ArrayNorm     = "norm"
	ArrayFlat     = "flat"
	ArrayK        = "k"
	ArrayChi      = "chi"
	ArrayBkg      = "bkg"

	AttrE0       = "e0"
	AttrEdgeStep = "edge_step"
	AttrKWeight  = "kweight"
	AttrWindow   = "window"
	AttrMerged   = "merged_from"
)

func toMuContract() registry.Contract {
	return registry.Contract{
		Name:        OpToMu,
		Description: "Calculate µ(E)",
		Schema: registry.Schema{
			{Name: "energy", Kind: registry.KindString, Required: true, Doc: "energy column"},
			{Name: "signal", Kind: registry.KindString, Required: true, Doc: "signal column"},
			{Name: "reference", Kind: registry.KindString, Doc: "reference column the signal is divided by"},
			{Name: "is_transmission", Kind: registry.KindBool, Default: false, Doc: "take -ln of the ratio"},
		},
		Func:  toMu,
		Input: registry.InputSpec{MinGroups: 1},
	}
}

// toMu replaces every group's arrays with energy and mu = signal/reference,
// or -ln(signal/reference) for transmission data. Attributes are kept.
func toMu(ctx context.Context, in *dataset.Dataset, args registry.Args) (*dataset.Dataset, error) {
	energyCol, signalCol := args.String("energy"), args.String("signal")
	refCol := args.String("reference")
	transmission := args.Bool("is_transmission")

	b := dataset.From(in).ClearGroups()
	for _, name := range in.GroupNames() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		g, _ := in.Group(name)
		cols := []string{energyCol, signalCol}
		if refCol != "" {
			cols = append(cols, refCol)
		}
		if err := requireArrays(OpToMu, g, name, cols...); err != nil {
			return nil, err
		}

		energy, _ := g.Array(energyCol)
		signal, _ := g.Array(signalCol)
		ref, hasRef := g.Array(refCol)
		mu := make([]float64, len(signal))
		for i, s := range signal {
			r := 1.0
			if hasRef {
				r = ref[i]
			}
			mu[i] = s / r
			if transmission {
				mu[i] = -math.Log(mu[i])
			}
		}

		attrs := attrsOf(g)
		attrs[source.AttrColumns] = []string{ArrayEnergy, ArrayMu}
		attrs[source.AttrCoordinate] = ArrayEnergy
		b.SetGroup(name, dataset.NewGroup(map[string][]float64{
			ArrayEnergy: energy,
			ArrayMu:     mu,
		}, attrs))
	}
	return b.Build(), nil
}

// requireArrays returns a TYPE_MISMATCH error naming the first missing
// array, or an error when the arrays differ in length.
func requireArrays(op string, g dataset.Group, group string, names ...string) error {
	n := -1
	for _, a := range names {
		if !g.Has(a) {
			return errors.TypeMismatch(op, fmt.Sprintf("group %q has no array %q", group, a)).
				WithDetail("group", group)
		}
		if n >= 0 && g.Len(a) != n {
			return errors.TypeMismatch(op, fmt.Sprintf("group %q: array %q has %d values, expected %d", group, a, g.Len(a), n)).
				WithDetail("group", group)
		}
		n = g.Len(a)
	}
	return nil
}

func attrsOf(g dataset.Group) map[string]any {
	attrs := make(map[string]any)
	for _, k := range g.AttrNames() {
		attrs[k], _ = g.Attr(k)
	}
	return attrs
}
