package xafs

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/kbukum/hollowfoot/dataset"
	"github.com/kbukum/hollowfoot/registry"
	"github.com/kbukum/hollowfoot/source"
)

// MergedGroup is the name of the single group merge returns.
const MergedGroup = "merged"

func mergeContract() registry.Contract {
	return registry.Contract{
		Name:        OpMerge,
		Description: "merge data groups",
		Func:        merge,
		Input:       registry.InputSpec{Arrays: []string{ArrayEnergy, ArrayMu}, MinGroups: 1},
		Output:      registry.OutputSingle,
	}
}

// merge averages mu over all groups on the energy grid of the first group
// (by name). mu_std holds the spread between groups.
func merge(ctx context.Context, in *dataset.Dataset, _ registry.Args) (*dataset.Dataset, error) {
	names := in.GroupNames()
	first, _ := in.Group(names[0])
	e, _ := first.Array(ArrayEnergy)
	m, _ := first.Array(ArrayMu)
	grid, _ := sortedXY(e, m)
	if len(grid) < 2 {
		return nil, fmt.Errorf("group %q has fewer than 2 usable points", names[0])
	}

	curves := make([][]float64, 0, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		g, _ := in.Group(name)
		energy, _ := g.Array(ArrayEnergy)
		mu, _ := g.Array(ArrayMu)
		onGrid, err := resample(energy, mu, grid)
		if err != nil {
			return nil, fmt.Errorf("group %q: %w", name, err)
		}
		curves = append(curves, onGrid)
	}

	mean := make([]float64, len(grid))
	std := make([]float64, len(grid))
	col := make([]float64, len(curves))
	for i := range grid {
		for j, c := range curves {
			col[j] = c[i]
		}
		if len(col) > 1 {
			mean[i], std[i] = stat.MeanStdDev(col, nil)
		} else {
			mean[i] = col[0]
		}
		if math.IsNaN(std[i]) {
			std[i] = 0
		}
	}

	attrs := attrsOf(first)
	attrs[AttrMerged] = names
	attrs[source.AttrColumns] = []string{ArrayEnergy, ArrayMu, ArrayMuStd}
	attrs[source.AttrCoordinate] = ArrayEnergy
	delete(attrs, source.AttrFile)

	return dataset.From(in).ClearGroups().SetGroup(MergedGroup, dataset.NewGroup(map[string][]float64{
		ArrayEnergy: grid,
		ArrayMu:     mean,
		ArrayMuStd:  std,
	}, attrs)).Build(), nil
}
