package xafs

import (
	"context"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/kbukum/hollowfoot/dataset"
	"github.com/kbukum/hollowfoot/logger"
	"github.com/kbukum/hollowfoot/registry"
)

// Series is one named curve.
type Series struct {
	Name string
	X, Y []float64
}

// Figure is a set of curves sharing axes.
type Figure struct {
	Title  string
	XLabel string
	YLabel string
	Series []Series
}

// Plotter displays figures.
type Plotter interface {
	Plot(ctx context.Context, fig Figure) error
}

// PlotterFunc adapts a function to Plotter.
type PlotterFunc func(ctx context.Context, fig Figure) error

func (f PlotterFunc) Plot(ctx context.Context, fig Figure) error { return f(ctx, fig) }

// TextPlotter draws figures as character plots.
type TextPlotter struct {
	Out    io.Writer
	Width  int
	Height int
}

// NewTextPlotter returns a 64x16 TextPlotter writing to w.
func NewTextPlotter(w io.Writer) *TextPlotter {
	return &TextPlotter{Out: w, Width: 64, Height: 16}
}

func (p *TextPlotter) Plot(_ context.Context, fig Figure) error {
	_, err := io.WriteString(p.Out, RenderText(fig, p.Width, p.Height)+"\n")
	return err
}

var (
	seriesColors = []lipgloss.Color{"#5B8DEF", "#FF6B6B", "#50C878", "#F5A623", "#B57EDC", "#4FC1E9"}
	markers      = []rune{'*', '+', 'o', 'x', '#', '@'}

	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	axisStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	frameStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#444444"))
)

// RenderText draws fig on a width x height character canvas with a
// legend and the axis ranges.
func RenderText(fig Figure, width, height int) string {
	width, height = max(width, 8), max(height, 4)
	xmin, xmax, ymin, ymax, ok := bounds(fig.Series)
	if !ok {
		return lipgloss.JoinVertical(lipgloss.Left,
			titleStyle.Render(fig.Title),
			axisStyle.Render("(no data)"))
	}

	canvas := make([][]int, height)
	for r := range canvas {
		canvas[r] = make([]int, width)
		for c := range canvas[r] {
			canvas[r][c] = -1
		}
	}
	for s, series := range fig.Series {
		for i := range series.X {
			if i >= len(series.Y) || !isFinite(series.X[i]) || !isFinite(series.Y[i]) {
				continue
			}
			c := int(math.Round((series.X[i] - xmin) / (xmax - xmin) * float64(width-1)))
			r := height - 1 - int(math.Round((series.Y[i]-ymin)/(ymax-ymin)*float64(height-1)))
			canvas[r][c] = s
		}
	}

	rows := make([]string, height)
	for r, line := range canvas {
		var b strings.Builder
		for _, s := range line {
			if s < 0 {
				b.WriteByte(' ')
				continue
			}
			b.WriteString(seriesStyle(s).Render(string(markers[s%len(markers)])))
		}
		rows[r] = b.String()
	}

	legend := make([]string, len(fig.Series))
	for s, series := range fig.Series {
		legend[s] = seriesStyle(s).Render(string(markers[s%len(markers)]) + " " + series.Name)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render(fig.Title),
		axisStyle.Render(fmt.Sprintf("%s: %.6g .. %.6g", fig.YLabel, ymin, ymax)),
		frameStyle.Render(strings.Join(rows, "\n")),
		axisStyle.Render(fmt.Sprintf("%s: %.6g .. %.6g", fig.XLabel, xmin, xmax)),
		strings.Join(legend, "  "),
	)
}

func seriesStyle(i int) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(seriesColors[i%len(seriesColors)])
}

func bounds(series []Series) (xmin, xmax, ymin, ymax float64, ok bool) {
	xmin, ymin = math.Inf(1), math.Inf(1)
	xmax, ymax = math.Inf(-1), math.Inf(-1)
	for _, s := range series {
		for i := range s.X {
			if i >= len(s.Y) || !isFinite(s.X[i]) || !isFinite(s.Y[i]) {
				continue
			}
			xmin, xmax = math.Min(xmin, s.X[i]), math.Max(xmax, s.X[i])
			ymin, ymax = math.Min(ymin, s.Y[i]), math.Max(ymax, s.Y[i])
			ok = true
		}
	}
	if xmin == xmax {
		xmin, xmax = xmin-0.5, xmax+0.5
	}
	if ymin == ymax {
		ymin, ymax = ymin-0.5, ymax+0.5
	}
	return xmin, xmax, ymin, ymax, ok
}

// SaveFigure writes fig as an image. The extension of path selects the
// format: .png, .svg, .pdf, .eps, .jpg or .tif.
func SaveFigure(fig Figure, path string) error {
	p := plot.New()
	p.Title.Text = fig.Title
	p.X.Label.Text = fig.XLabel
	p.Y.Label.Text = fig.YLabel
	p.Add(plotter.NewGrid())

	for i, s := range fig.Series {
		pts := make(plotter.XYs, 0, len(s.X))
		for j := range s.X {
			if j < len(s.Y) && isFinite(s.X[j]) && isFinite(s.Y[j]) {
				pts = append(pts, plotter.XY{X: s.X[j], Y: s.Y[j]})
			}
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return fmt.Errorf("series %q: %w", s.Name, err)
		}
		line.Color = plotutil.Color(i)
		line.Width = vg.Points(1.5)
		p.Add(line)
		p.Legend.Add(s.Name, line)
	}

	if err := p.Save(6*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("saving plot to %s: %w", path, err)
	}
	return nil
}

func plotMuContract(o *options) registry.Contract {
	return registry.Contract{
		Name:        OpPlotMu,
		Description: "plot µ(E)",
		Schema: registry.Schema{
			{Name: "show_flat", Kind: registry.KindBool, Doc: "plot the flattened spectrum; defaults to true once fit_edge_jump has run"},
			{Name: "file", Kind: registry.KindString, Doc: "also save the figure to this image file"},
		},
		Func: func(ctx context.Context, in *dataset.Dataset, args registry.Args) (*dataset.Dataset, error) {
			showFlat := in.HasApplied(OpFitEdgeJump)
			if args.Has("show_flat") {
				showFlat = args.Bool("show_flat")
			}
			fig := Figure{Title: "µ(E)", XLabel: "energy (eV)", YLabel: "µ(E)"}
			if showFlat {
				fig.Title, fig.YLabel = "flattened µ(E)", "flat µ(E)"
			}
			for _, name := range in.GroupNames() {
				g, _ := in.Group(name)
				y := ArrayMu
				if showFlat && g.Has(ArrayFlat) {
					y = ArrayFlat
				}
				x, _ := g.Array(ArrayEnergy)
				ys, _ := g.Array(y)
				fig.Series = append(fig.Series, Series{Name: name, X: x, Y: ys})
			}
			return in, o.render(ctx, fig, args.String("file"))
		},
		Input:  registry.InputSpec{Arrays: []string{ArrayEnergy, ArrayMu}, MinGroups: 1},
		Output: registry.OutputPassthrough,
		Eager:  true,
	}
}

func plotChiKContract(o *options) registry.Contract {
	return registry.Contract{
		Name:        OpPlotChiK,
		Description: "plot χ(k)",
		Schema: registry.Schema{
			{Name: "kweight", Kind: registry.KindInt, Default: 2, Min: registry.Bound(0), Max: registry.Bound(3)},
			{Name: "file", Kind: registry.KindString, Doc: "also save the figure to this image file"},
		},
		Func: func(ctx context.Context, in *dataset.Dataset, args registry.Args) (*dataset.Dataset, error) {
			kw := args.Int("kweight")
			label := fmt.Sprintf("k^%d χ(k)", kw)
			fig := Figure{Title: label, XLabel: "k (Å⁻¹)", YLabel: label}
			for _, name := range in.GroupNames() {
				g, _ := in.Group(name)
				k, _ := g.Array(ArrayK)
				chi, _ := g.Array(ArrayChi)
				if len(k) != len(chi) {
					return nil, fmt.Errorf("group %q: k has %d values, chi has %d", name, len(k), len(chi))
				}
				fig.Series = append(fig.Series, Series{Name: name, X: k, Y: weighted(k, chi, kw)})
			}
			return in, o.render(ctx, fig, args.String("file"))
		},
		Input:  registry.InputSpec{Arrays: []string{ArrayK, ArrayChi}, MinGroups: 1},
		Output: registry.OutputPassthrough,
		Eager:  true,
	}
}

func (o *options) render(ctx context.Context, fig Figure, file string) error {
	if err := o.plotter.Plot(ctx, fig); err != nil {
		return err
	}
	if file == "" {
		return nil
	}
	if err := SaveFigure(fig, file); err != nil {
		return err
	}
	logger.Get("xafs").Info("figure saved", logger.Fields("file", file, "title", fig.Title))
	return nil
}
