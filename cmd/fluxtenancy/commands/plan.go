package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/fluxtenancy/cmd/fluxtenancy/handlers"
)

// Plan returns the command that prints the resource graph without applying it.
func Plan() *cobra.Command {
	var (
		configPath string
		asYAML     bool
	)

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show the resources apply would manage",
		Long: `Show the resources apply would manage, grouped by tenant, with their
dependencies. No GitHub or cluster calls are made.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Plan(cmd.Context(), configPath, asYAML)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to configuration file (default: fluxtenancy.yaml)")
	cmd.Flags().BoolVar(&asYAML, "yaml", false, "Print the graph as YAML instead of a tree")

	return cmd
}
