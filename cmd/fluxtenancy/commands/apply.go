package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/fluxtenancy/cmd/fluxtenancy/handlers"
)

// Apply returns the command that provisions the admin system and every tenant.
//
// Environment variables:
//
//	GITHUB_TOKEN: token with repo, admin:public_key and admin:org scopes (required)
//	GITHUB_OWNER: owner used when the config file leaves it empty
func Apply() *cobra.Command {
	var opts handlers.ApplyOptions

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Create or update the workspace repositories and cluster objects",
		Long: `Create or update the admin workspace and every configured tenant.

The admin workspace repository is created first and Flux is bootstrapped
from it. Each tenant then gets its workspace repository, deploy key, team
grants, namespaces, role bindings and a Flux sync pointing at its repository.

Resources that already exist are adopted or left unchanged, so apply can be
re-run safely. A failing tenant does not stop the others.

If no config file is specified, fluxtenancy.yaml is searched for in the
current directory and its parents.

Examples:
  # Apply using fluxtenancy.yaml
  fluxtenancy apply

  # Plain log output, two resources at a time, keep the run report
  fluxtenancy apply --plain --parallelism 2 --report-file report.yaml`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Apply(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.ConfigPath, "config", "c", "", "Path to configuration file (default: fluxtenancy.yaml)")
	cmd.Flags().IntVar(&opts.Parallelism, "parallelism", 0, "Maximum resources applied at once per level (0: unbounded)")
	cmd.Flags().BoolVar(&opts.Plain, "plain", false, "Disable the interactive view and log progress instead")
	cmd.Flags().StringVar(&opts.ReportFile, "report-file", "", "Write the run report as YAML to this file")
	cmd.Flags().StringVar(&opts.MetricsFile, "metrics-file", "", "Write Prometheus metrics in text format to this file")
	cmd.Flags().CountVarP(&opts.Verbosity, "verbose", "v", "Increase log verbosity")

	return cmd
}
