package handlers

import (
	"context"
	"fmt"
	"os"

	"github.com/imamik/fluxtenancy/internal/config"
	"github.com/imamik/fluxtenancy/internal/util/naming"
)

// Factory function variables for init - can be replaced in tests.
var (
	// fileExists checks if a file exists.
	fileExists = func(path string) bool {
		_, err := os.Stat(path)
		return err == nil
	}

	// runWizard runs the interactive wizard.
	runWizard = config.RunWizard

	// writeConfig writes the config to a file.
	writeConfig = config.WriteConfig
)

// Init runs the configuration wizard and writes the result to outputPath.
func Init(ctx context.Context, outputPath string) error {
	if fileExists(outputPath) {
		fmt.Fprintf(stdout, "Warning: %s already exists and will be overwritten.\n\n", outputPath)
	}

	printWelcome()

	result, err := runWizard(ctx)
	if err != nil {
		return err
	}

	cfg := result.ToConfig()
	if err := writeConfig(cfg, outputPath); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	printInitSuccess(outputPath, cfg)
	return nil
}

func printWelcome() {
	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout, "fluxtenancy - multi-tenant Flux workspaces")
	fmt.Fprintln(stdout, "==========================================")
	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout, "This wizard creates a configuration with one tenant.")
	fmt.Fprintln(stdout)
}

func printInitSuccess(outputPath string, cfg *config.Config) {
	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout, "Configuration saved!")
	fmt.Fprintf(stdout, "  File:   %s\n", outputPath)
	fmt.Fprintf(stdout, "  Owner:  %s\n", cfg.Owner)
	fmt.Fprintf(stdout, "  Policy: %s\n", cfg.AdoptPolicy)
	for _, t := range cfg.Tenants {
		fmt.Fprintf(stdout, "  Tenant: %s (%s)\n", t.Name, naming.WorkspaceRepository(t.Name))
	}
	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout, "Next steps:")
	fmt.Fprintf(stdout, "  export %s=<token>\n", EnvGitHubToken)
	fmt.Fprintf(stdout, "  fluxtenancy plan -c %s\n", outputPath)
	fmt.Fprintf(stdout, "  fluxtenancy apply -c %s\n", outputPath)
}
