// Package main is the entry point for the fluxtenancy CLI.
//
// fluxtenancy bootstraps a multi-tenant Flux setup: an admin workspace
// repository that Flux syncs the cluster from, plus one workspace
// repository, namespace set and team binding per tenant.
//
// Commands: init, plan, apply, version, completion.
//
// For detailed usage information, run:
//
//	fluxtenancy --help
package main

import (
	"fmt"
	"os"

	"github.com/imamik/fluxtenancy/cmd/fluxtenancy/commands"
)

// Version information set by goreleaser at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersionInfo(version, commit, date)
	if err := commands.Root().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
