// Package cli implements the hollowfoot command line.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kbukum/hollowfoot/config"
	"github.com/kbukum/hollowfoot/version"
)

// ServiceName is the name configuration files and env variables are
// looked up by.
const ServiceName = "hollowfoot"

type rootFlags struct {
	configFile string
	envFile    string
}

// loadConfig reads the configuration named by the persistent flags.
func (f *rootFlags) loadConfig() (*config.Config, error) {
	cfg := &config.Config{}
	var opts []config.LoaderOption
	if f.configFile != "" {
		opts = append(opts, config.WithConfigFile(f.configFile))
	}
	if f.envFile != "" {
		opts = append(opts, config.WithEnvFile(f.envFile))
	}
	if err := config.LoadConfig(ServiceName, cfg, opts...); err != nil {
		return nil, err
	}
	return cfg, nil
}

// NewRootCommand builds the hollowfoot command tree.
func NewRootCommand() *cobra.Command {
	flags := &rootFlags{}
	cmd := &cobra.Command{
		Use:          "hollowfoot",
		Short:        "Declarative, chainable XAFS analysis pipelines",
		Version:      version.GetShortVersion(),
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&flags.configFile, "config", "", "config file (default: searched next to the working directory)")
	cmd.PersistentFlags().StringVar(&flags.envFile, "env-file", "", ".env file loaded before HOLLOWFOOT_* variables are read")

	cmd.AddCommand(
		newRunCommand(flags),
		newDescribeCommand(flags),
		newOpsCommand(flags),
		newVersionCommand(),
	)
	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.GetFullVersion())
		},
	}
}
