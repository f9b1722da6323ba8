package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/fluxtenancy/cmd/fluxtenancy/handlers"
)

// Init returns the command for interactively creating a configuration.
//
// Flags:
//
//	--output, -o: Path to output file (default "fluxtenancy.yaml")
func Init() *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Interactively create a configuration",
		Long: `Interactively create a fluxtenancy configuration file.

The wizard asks for:

  - The GitHub owner of the workspace repositories
  - How existing repositories are handled
  - The branch Flux syncs from
  - A first tenant with its namespaces and GitHub teams

More tenants can be added by editing the file afterwards.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Init(cmd.Context(), outputPath)
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "fluxtenancy.yaml", "Output file path")

	return cmd
}
