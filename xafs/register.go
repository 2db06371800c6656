package xafs

import (
	"os"

	"github.com/kbukum/hollowfoot/registry"
)

// Operation names registered by this package.
const (
	OpToMu               = "to_mu"
	OpMerge              = "merge"
	OpFitEdgeJump        = "fit_edge_jump"
	OpSubtractBackground = "subtract_background"
	OpPlotMu             = "plot_mu"
	OpPlotChiK           = "plot_chik"
	OpSaveXDI            = "save_xdi"
)

type options struct {
	plotter Plotter
}

// Option configures the registered operations.
type Option func(*options)

// WithPlotter sets where plot_mu and plot_chik draw. The default is a
// TextPlotter on stdout.
func WithPlotter(p Plotter) Option {
	return func(o *options) { o.plotter = p }
}

// Contracts returns the XAFS operation contracts.
func Contracts(opts ...Option) []registry.Contract {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.plotter == nil {
		o.plotter = NewTextPlotter(os.Stdout)
	}
	return []registry.Contract{
		toMuContract(),
		mergeContract(),
		fitEdgeJumpContract(),
		subtractBackgroundContract(),
		plotMuContract(o),
		plotChiKContract(o),
		saveXDIContract(),
	}
}

// Register adds the XAFS operations to reg.
func Register(reg *registry.Registry, opts ...Option) error {
	for _, c := range Contracts(opts...) {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
