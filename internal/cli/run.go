package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kbukum/hollowfoot/analysis"
	"github.com/kbukum/hollowfoot/bootstrap"
	"github.com/kbukum/hollowfoot/recipe"
	"github.com/kbukum/hollowfoot/registry"
	"github.com/kbukum/hollowfoot/source"
	"github.com/kbukum/hollowfoot/workflow"
)

const runExample = `  # Run a recipe found in the configured recipe directories
  hollowfoot run ni_edge

  # Run a recipe file against a directory of scans
  hollowfoot run ./recipes/normalize.yaml --source data/ni`

func newRunCommand(flags *rootFlags) *cobra.Command {
	var (
		sourcePath string
		format     string
		quiet      bool
	)
	cmd := &cobra.Command{
		Use:     "run <recipe>",
		Short:   "Evaluate a recipe and print a run summary",
		Example: runExample,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.loadConfig()
			if err != nil {
				return err
			}
			app, err := bootstrap.NewApp(cfg)
			if err != nil {
				return err
			}

			runErr := app.RunTask(cmd.Context(), func(ctx context.Context) error {
				p, err := resolveRecipe(args[0], app.Registry, cfg.Engine.RecipeDirs)
				if err != nil {
					return err
				}
				if sourcePath != "" {
					ds, err := source.Load(ctx, sourcePath, format)
					if err != nil {
						return err
					}
					p = p.WithInitial(ds)
				}
				ds, err := analysis.FromPipeline(p, app.AnalysisOptions()...).Calculate(ctx)
				if ds != nil {
					app.Summary.SetOutput(ds)
				}
				return err
			})
			if !quiet {
				if err := app.Summary.Display(cmd.OutOrStdout()); err != nil {
					return err
				}
			}
			return runErr
		},
	}
	cmd.Flags().StringVar(&sourcePath, "source", "", "load the initial dataset from this path for recipes without a loader step")
	cmd.Flags().StringVar(&format, "format", source.FormatAuto, "format of --source files: auto, xdi or ascii")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "do not print the run summary")
	return cmd
}

const describeExample = `  # Print the steps of a recipe without evaluating it
  hollowfoot describe ni_edge`

func newDescribeCommand(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:     "describe <recipe>",
		Short:   "Print the resolved steps of a recipe",
		Example: describeExample,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.loadConfig()
			if err != nil {
				return err
			}
			cfg.ApplyDefaults()
			reg, err := analysis.DefaultRegistry()
			if err != nil {
				return err
			}
			p, err := resolveRecipe(args[0], reg, cfg.Engine.RecipeDirs)
			if err != nil {
				return err
			}
			summary, err := p.Summary(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), summary)
			return nil
		},
	}
}

// resolveRecipe loads ref as a file when it names one and by name from
// dirs otherwise. Includes are always looked up in dirs.
func resolveRecipe(ref string, reg *registry.Registry, dirs []string) (*workflow.Pipeline, error) {
	loader := recipe.NewFileLoader(dirs...)
	var (
		r   *recipe.Recipe
		err error
	)
	if info, statErr := os.Stat(ref); statErr == nil && info.Mode().IsRegular() {
		r, err = recipe.LoadFile(ref)
	} else {
		r, err = loader.Load(ref)
	}
	if err != nil {
		return nil, fmt.Errorf("loading recipe %s: %w", ref, err)
	}
	return recipe.Resolve(r, reg, loader)
}
