package xafs

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/interp"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// etok converts an energy above the edge in eV to k² in Å⁻².
const etok = 0.2624682917

// sortedXY returns x and y ordered by x with non-finite and repeated x
// values dropped, as interpolation needs strictly increasing abscissae.
func sortedXY(x, y []float64) ([]float64, []float64) {
	idx := make([]int, 0, len(x))
	for i := range x {
		if i < len(y) && isFinite(x[i]) && isFinite(y[i]) {
			idx = append(idx, i)
		}
	}
	sort.SliceStable(idx, func(a, b int) bool { return x[idx[a]] < x[idx[b]] })
	xs := make([]float64, 0, len(idx))
	ys := make([]float64, 0, len(idx))
	for _, i := range idx {
		if n := len(xs); n > 0 && x[i] == xs[n-1] {
			continue
		}
		xs = append(xs, x[i])
		ys = append(ys, y[i])
	}
	return xs, ys
}

// resample interpolates y(x) onto grid, holding the end values outside
// the data range.
func resample(x, y, grid []float64) ([]float64, error) {
	xs, ys := sortedXY(x, y)
	if len(xs) < 2 {
		return nil, fmt.Errorf("need at least 2 finite points to interpolate, have %d", len(xs))
	}
	var pl interp.PiecewiseLinear
	if err := pl.Fit(xs, ys); err != nil {
		return nil, err
	}
	out := make([]float64, len(grid))
	for i, g := range grid {
		out[i] = pl.Predict(g)
	}
	return out, nil
}

// gradient is the centred finite difference dy/dx.
func gradient(x, y []float64) []float64 {
	n := len(x)
	d := make([]float64, n)
	if n < 2 {
		return d
	}
	d[0] = (y[1] - y[0]) / (x[1] - x[0])
	d[n-1] = (y[n-1] - y[n-2]) / (x[n-1] - x[n-2])
	for i := 1; i < n-1; i++ {
		d[i] = (y[i+1] - y[i-1]) / (x[i+1] - x[i-1])
	}
	return d
}

// findE0 returns the energy of the steepest rise of mu.
func findE0(energy, mu []float64) (float64, error) {
	x, y := sortedXY(energy, mu)
	if len(x) < 3 {
		return 0, fmt.Errorf("need at least 3 points to find e0, have %d", len(x))
	}
	d := gradient(x, y)
	// the end points are one-sided differences and too noisy to trust
	i := floats.MaxIdx(d[1:len(d)-1]) + 1
	return x[i], nil
}

// window returns the finite points with lo <= x <= hi.
func window(x, y []float64, lo, hi float64) ([]float64, []float64) {
	var wx, wy []float64
	for i := range x {
		if x[i] >= lo && x[i] <= hi && isFinite(y[i]) {
			wx = append(wx, x[i])
			wy = append(wy, y[i])
		}
	}
	return wx, wy
}

// linearFit returns the coefficients of y = c[0] + c[1]*x.
func linearFit(x, y []float64) ([]float64, error) {
	if len(x) < 2 {
		return nil, fmt.Errorf("need at least 2 points for a line, have %d", len(x))
	}
	alpha, beta := stat.LinearRegression(x, y, nil, false)
	return []float64{alpha, beta}, nil
}

// polyFit returns the least squares polynomial coefficients of y(x), lowest
// order first. The degree is reduced when there are too few points.
func polyFit(x, y []float64, degree int) ([]float64, error) {
	if degree > len(x)-1 {
		degree = len(x) - 1
	}
	if degree < 1 {
		return nil, fmt.Errorf("need at least 2 points for a fit, have %d", len(x))
	}
	if degree == 1 {
		return linearFit(x, y)
	}
	// centre x to keep the normal equations well conditioned
	x0 := stat.Mean(x, nil)
	a := mat.NewDense(len(x), degree+1, nil)
	for i, xi := range x {
		p := 1.0
		for j := 0; j <= degree; j++ {
			a.Set(i, j, p)
			p *= xi - x0
		}
	}
	var c mat.VecDense
	if err := c.SolveVec(a, mat.NewVecDense(len(y), append([]float64(nil), y...))); err != nil {
		return nil, fmt.Errorf("polynomial fit: %w", err)
	}
	return shiftPoly(c.RawVector().Data, x0), nil
}

// shiftPoly rewrites the coefficients of p(x - x0) as coefficients in x.
func shiftPoly(c []float64, x0 float64) []float64 {
	out := make([]float64, len(c))
	for k := range c {
		// expand c[k] * (x - x0)^k with binomial coefficients
		binom := 1.0
		for j := 0; j <= k; j++ {
			out[j] += c[k] * binom * math.Pow(-x0, float64(k-j))
			binom = binom * float64(k-j) / float64(j+1)
		}
	}
	return out
}

func polyEval(c []float64, x float64) float64 {
	v := 0.0
	for i := len(c) - 1; i >= 0; i-- {
		v = v*x + c[i]
	}
	return v
}

// smooth is a centred moving average over a window of the given width in
// x units. x must be evenly spaced.
func smooth(x, y []float64, width float64) []float64 {
	out := make([]float64, len(y))
	if len(x) < 2 {
		copy(out, y)
		return out
	}
	half := int(math.Round(width / (x[1] - x[0]) / 2))
	for i := range y {
		lo, hi := max(0, i-half), min(len(y), i+half+1)
		out[i] = stat.Mean(y[lo:hi], nil)
	}
	return out
}

func isFinite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
