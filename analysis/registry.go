package analysis

import (
	"sync"

	"github.com/kbukum/hollowfoot/registry"
	"github.com/kbukum/hollowfoot/source"
	"github.com/kbukum/hollowfoot/xafs"
)

var (
	defaultOnce sync.Once
	defaultErr  error
)

// DefaultRegistry returns the process-wide registry with the loader and
// XAFS operations registered.
func DefaultRegistry() (*registry.Registry, error) {
	reg := registry.Default()
	defaultOnce.Do(func() {
		if defaultErr = source.Register(reg); defaultErr != nil {
			return
		}
		defaultErr = xafs.Register(reg)
	})
	return reg, defaultErr
}
