package source

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// ResolveOption narrows the files returned by ResolveFiles.
type ResolveOption func(*resolveOptions)

type resolveOptions struct {
	glob     string
	pattern  string
	regex    *regexp.Regexp
	skipExts []string
}

// WithGlob keeps files whose base name matches pattern (filepath.Match syntax).
func WithGlob(pattern string) ResolveOption {
	return func(o *resolveOptions) { o.glob = pattern }
}

// WithRegex keeps files whose whole base name matches pattern.
func WithRegex(pattern string) ResolveOption {
	return func(o *resolveOptions) { o.pattern = pattern }
}

// WithSkipExt drops files with any of the given extensions, e.g. ".last".
func WithSkipExt(exts ...string) ResolveOption {
	return func(o *resolveOptions) { o.skipExts = append(o.skipExts, exts...) }
}

// ResolveFiles expands base into data file paths.
//
// A regular file resolves to itself. A directory resolves to every regular
// file it contains. Anything else is treated as a stub: the files in its
// parent directory whose names start with the stub's base name. The result
// is sorted and filtered by the options; hidden files are never returned.
func ResolveFiles(base string, opts ...ResolveOption) ([]string, error) {
	o := &resolveOptions{}
	for _, opt := range opts {
		opt(o)
	}
	if o.pattern != "" {
		re, err := regexp.Compile(`^(?:` + o.pattern + `)$`)
		if err != nil {
			return nil, fmt.Errorf("source: bad regex %q: %w", o.pattern, err)
		}
		o.regex = re
	}
	if o.glob != "" {
		if _, err := filepath.Match(o.glob, ""); err != nil {
			return nil, fmt.Errorf("source: bad glob %q: %w", o.glob, err)
		}
	}

	info, err := os.Stat(base)
	if err == nil && info.Mode().IsRegular() {
		if !o.keep(filepath.Base(base)) {
			return nil, nil
		}
		return []string{base}, nil
	}

	dir, prefix := base, ""
	if err != nil || !info.IsDir() {
		dir, prefix = filepath.Dir(base), filepath.Base(base)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("source: reading %s: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		name := e.Name()
		if !e.Type().IsRegular() || strings.HasPrefix(name, ".") {
			continue
		}
		if !strings.HasPrefix(name, prefix) || !o.keep(name) {
			continue
		}
		files = append(files, filepath.Join(dir, name))
	}
	sort.Strings(files)
	return files, nil
}

func (o *resolveOptions) keep(name string) bool {
	for _, ext := range o.skipExts {
		if filepath.Ext(name) == ext {
			return false
		}
	}
	if o.glob != "" {
		if ok, _ := filepath.Match(o.glob, name); !ok {
			return false
		}
	}
	if o.regex != nil && !o.regex.MatchString(name) {
		return false
	}
	return true
}
