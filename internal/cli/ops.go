package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/kbukum/hollowfoot/analysis"
	"github.com/kbukum/hollowfoot/registry"
)

var (
	opStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	paramStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#AAAAAA"))
)

func newOpsCommand(_ *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "ops",
		Short: "List the registered operations and their arguments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg, err := analysis.DefaultRegistry()
			if err != nil {
				return err
			}
			out, err := renderOps(reg)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), out)
			return nil
		},
	}
}

func renderOps(reg *registry.Registry) (string, error) {
	var b strings.Builder
	for _, name := range reg.List() {
		c, err := reg.Resolve(name)
		if err != nil {
			return "", err
		}
		b.WriteString(opStyle.Render(name))
		if c.Description != "" {
			b.WriteString("  " + c.Description)
		}
		b.WriteString("\n")
		for _, p := range c.Schema {
			b.WriteString("    " + paramStyle.Render(formatParam(p)) + "\n")
		}
	}
	return b.String(), nil
}

func formatParam(p registry.Param) string {
	s := fmt.Sprintf("%s %s", p.Name, p.Kind)
	switch {
	case p.Required:
		s += " (required)"
	case p.Default != nil:
		s += fmt.Sprintf(" = %v", p.Default)
	}
	if len(p.OneOf) > 0 {
		s += " one of " + strings.Join(p.OneOf, ", ")
	}
	if p.Min != nil || p.Max != nil {
		lo, hi := "-inf", "inf"
		if p.Min != nil {
			lo = fmt.Sprint(*p.Min)
		}
		if p.Max != nil {
			hi = fmt.Sprint(*p.Max)
		}
		s += fmt.Sprintf(" in [%s, %s]", lo, hi)
	}
	return s
}
