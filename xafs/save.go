package xafs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kbukum/hollowfoot/dataset"
	"github.com/kbukum/hollowfoot/logger"
	"github.com/kbukum/hollowfoot/registry"
	"github.com/kbukum/hollowfoot/source"
)

func saveXDIContract() registry.Contract {
	return registry.Contract{
		Name:        OpSaveXDI,
		Description: "write each group to an XDI file",
		Schema: registry.Schema{
			{Name: "dir", Kind: registry.KindString, Required: true, Doc: "output directory, created if missing"},
		},
		Func:   saveXDI,
		Input:  registry.InputSpec{MinGroups: 1},
		Output: registry.OutputPassthrough,
		Eager:  true,
	}
}

// saveXDI writes <dir>/<group>.xdi for every group. Arrays that are not on
// the group's coordinate grid are left out.
func saveXDI(ctx context.Context, in *dataset.Dataset, args registry.Args) (*dataset.Dataset, error) {
	dir := args.String("dir")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", dir, err)
	}
	log := logger.Get("xafs")
	for _, name := range in.GroupNames() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		g, _ := in.Group(name)
		text, err := source.Dump(source.DocumentFromGroup(g))
		if err != nil {
			return nil, fmt.Errorf("group %q: %w", name, err)
		}
		path := filepath.Join(dir, filepath.Base(name)+".xdi")
		if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
			return nil, fmt.Errorf("writing %s: %w", path, err)
		}
		log.Info("xdi file written", logger.Fields("file", path, "group", name))
	}
	return in, nil
}
