package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kbukum/hollowfoot/dataset"
	"github.com/kbukum/hollowfoot/errors"
	"github.com/kbukum/hollowfoot/logger"
	"github.com/kbukum/hollowfoot/registry"
)

// Operation names registered by this package.
const (
	OpFromSource   = "from_source"
	OpFromAPS20BMB = "from_aps_20bmb"
)

// File formats accepted by from_source.
const (
	FormatAuto  = "auto"
	FormatXDI   = "xdi"
	FormatASCII = "ascii"
)

// Dataset metadata keys set by the loaders.
const (
	MetaSource = "source"
	MetaFiles  = "files"
)

// Group attributes set by the loaders.
const (
	// AttrFile holds the file a group was read from.
	AttrFile = "file"
	// AttrComments holds the comment lines of an ASCII file.
	AttrComments = "comments"
)

// Contracts returns the loader contracts.
func Contracts() []registry.Contract {
	return []registry.Contract{
		{
			Name:        OpFromSource,
			Description: "Load every data file matching a path, directory or file stub",
			Schema: registry.Schema{
				{Name: "path", Kind: registry.KindString, Required: true, Doc: "file, directory or file name stub"},
				{Name: "glob", Kind: registry.KindString, Default: "", Doc: "keep file names matching this pattern"},
				{Name: "regex", Kind: registry.KindString, Default: "", Doc: "keep file names fully matching this expression"},
				{Name: "format", Kind: registry.KindString, Default: FormatAuto, OneOf: []string{FormatAuto, FormatXDI, FormatASCII}},
			},
			Func: func(ctx context.Context, _ *dataset.Dataset, args registry.Args) (*dataset.Dataset, error) {
				path := args.String("path")
				var opts []ResolveOption
				if g := args.String("glob"); g != "" {
					opts = append(opts, WithGlob(g))
				}
				if re := args.String("regex"); re != "" {
					opts = append(opts, WithRegex(re))
				}
				return Load(ctx, path, args.String("format"), opts...)
			},
			Source: true,
		},
		{
			Name:        OpFromAPS20BMB,
			Description: "Load ASCII scans written at APS beamline 20-BM-B",
			Schema: registry.Schema{
				{Name: "path", Kind: registry.KindString, Required: true, Doc: "file, directory or file name stub"},
			},
			Func: func(ctx context.Context, _ *dataset.Dataset, args registry.Args) (*dataset.Dataset, error) {
				return Load(ctx, args.String("path"), FormatASCII, WithSkipExt(".last"))
			},
			Source: true,
		},
	}
}

// Register adds the loader operations to reg.
func Register(reg *registry.Registry) error {
	for _, c := range Contracts() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Load reads every file resolved from path into one Dataset, one group per
// file. Groups are named after the file without its extension. Any failure
// is a SOURCE_LOAD_FAILED error for path.
func Load(ctx context.Context, path, format string, opts ...ResolveOption) (*dataset.Dataset, error) {
	files, err := ResolveFiles(path, opts...)
	if err != nil {
		return nil, errors.SourceLoad(path, err)
	}
	if len(files) == 0 {
		return nil, errors.SourceLoad(path, fmt.Errorf("no data files found"))
	}

	log := logger.Get("source")
	names := groupNames(files)
	groups := make(map[string]dataset.Group, len(files))
	for i, file := range files {
		if err := ctx.Err(); err != nil {
			return nil, errors.SourceLoad(path, err)
		}
		g, err := readFile(ctx, file, format)
		if err != nil {
			return nil, errors.SourceLoad(path, err)
		}
		groups[names[i]] = g
		log.Debug("loaded file", logger.Fields(logger.FieldSource, file))
	}

	log.Info("source loaded", logger.Fields(
		logger.FieldSource, path,
		logger.FieldGroups, len(groups),
	))
	return dataset.New(groups, map[string]any{
		MetaSource: path,
		MetaFiles:  files,
	}), nil
}

func readFile(ctx context.Context, file, format string) (dataset.Group, error) {
	if format == FormatAuto || format == "" {
		format = detectFormat(file)
	}
	switch format {
	case FormatXDI:
		doc, err := LoadXDIFile(ctx, file)
		if err != nil {
			return dataset.Group{}, err
		}
		return doc.Group().With(nil, map[string]any{AttrFile: file}), nil
	case FormatASCII:
		t, err := ReadASCIIFile(file)
		if err != nil {
			return dataset.Group{}, err
		}
		return dataset.NewGroup(t.Columns, map[string]any{
			AttrFile:       file,
			AttrColumns:    t.Labels,
			AttrCoordinate: t.Labels[0],
			AttrComments:   t.Header,
		}), nil
	default:
		return dataset.Group{}, fmt.Errorf("unknown format %q", format)
	}
}

// detectFormat picks XDI for .xdi files and files whose first line is an
// XDI version line.
func detectFormat(file string) string {
	if strings.EqualFold(filepath.Ext(file), ".xdi") {
		return FormatXDI
	}
	f, err := os.Open(file)
	if err != nil {
		return FormatASCII
	}
	defer f.Close()
	buf := make([]byte, 64)
	n, _ := f.Read(buf)
	if versionPattern.Match(buf[:n]) {
		return FormatXDI
	}
	return FormatASCII
}

// groupNames names groups after their files without the extension, or
// with it when that would make two names collide.
func groupNames(files []string) []string {
	names := make([]string, len(files))
	seen := make(map[string]bool, len(files))
	unique := true
	for i, file := range files {
		base := filepath.Base(file)
		names[i] = strings.TrimSuffix(base, filepath.Ext(base))
		if names[i] == "" || seen[names[i]] {
			unique = false
		}
		seen[names[i]] = true
	}
	if !unique {
		for i, file := range files {
			names[i] = filepath.Base(file)
		}
	}
	return names
}
