package recipe

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/kbukum/hollowfoot/logger"
	"github.com/kbukum/hollowfoot/registry"
	"github.com/kbukum/hollowfoot/workflow"
)

// Loader loads recipes by name.
type Loader interface {
	Load(name string) (*Recipe, error)
}

// FileLoader loads recipes from YAML files on disk.
type FileLoader struct {
	dirs []string
}

// NewFileLoader creates a loader that searches dirs for recipe files.
func NewFileLoader(dirs ...string) *FileLoader {
	return &FileLoader{dirs: dirs}
}

var errFound = stderrors.New("found")

// Load searches each directory for {name}.yaml or {name}.yml, first
// directly and then in subdirectories.
func (l *FileLoader) Load(name string) (*Recipe, error) {
	for _, dir := range l.dirs {
		for _, ext := range []string{".yaml", ".yml"} {
			path := filepath.Join(dir, name+ext)
			if _, err := os.Stat(path); err == nil {
				return LoadFile(path)
			}
		}

		var match string
		_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil || d.IsDir() {
				return nil
			}
			if base := d.Name(); base == name+".yaml" || base == name+".yml" {
				match = path
				return errFound
			}
			return nil
		})
		if match != "" {
			return LoadFile(match)
		}
	}
	return nil, fmt.Errorf("recipe: %q not found in %v", name, l.dirs)
}

// LoadFile reads the recipe at path.
func LoadFile(path string) (*Recipe, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("recipe: %w", err)
	}
	r, err := Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return r, nil
}

// Resolve expands r's includes depth-first and validates every step
// against reg, returning a Pipeline. A recipe included along two paths
// contributes its steps once; an include cycle is an error. loader may be
// nil when r has no includes.
func Resolve(r *Recipe, reg *registry.Registry, loader Loader) (*workflow.Pipeline, error) {
	stack := make(map[string]bool)    // current include path
	resolved := make(map[string]bool) // already expanded
	steps, err := resolve(r, reg, loader, stack, resolved)
	if err != nil {
		return nil, err
	}
	p := workflow.New()
	for _, s := range steps {
		p = p.Append(s)
	}
	logger.Get("recipe").Debug("recipe resolved", logger.Fields(
		logger.FieldRecipe, r.Name,
		logger.FieldPipelineSz, p.Len(),
	))
	return p, nil
}

func resolve(r *Recipe, reg *registry.Registry, loader Loader, stack, resolved map[string]bool) ([]*workflow.Step, error) {
	if stack[r.Name] {
		return nil, fmt.Errorf("recipe: circular include of %q", r.Name)
	}
	stack[r.Name] = true
	defer delete(stack, r.Name)

	var steps []*workflow.Step
	for _, name := range r.Includes {
		if resolved[name] {
			continue // diamond: already expanded on another path
		}
		if stack[name] {
			return nil, fmt.Errorf("recipe: circular include of %q from %q", name, r.Name)
		}
		if loader == nil {
			return nil, fmt.Errorf("recipe: %q includes %q but no loader is configured", r.Name, name)
		}
		sub, err := loader.Load(name)
		if err != nil {
			return nil, fmt.Errorf("recipe: loading include %q: %w", name, err)
		}
		subSteps, err := resolve(sub, reg, loader, stack, resolved)
		if err != nil {
			return nil, err
		}
		resolved[name] = true
		steps = append(steps, subSteps...)
	}

	for i, def := range r.Steps {
		step, err := workflow.NewStep(reg, def.Op, def.Args, def.Kwargs)
		if err != nil {
			return nil, fmt.Errorf("recipe %q step %d: %w", r.Name, i, err)
		}
		steps = append(steps, step)
	}
	resolved[r.Name] = true
	return steps, nil
}
