package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/funcr"
	"github.com/mattn/go-isatty"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/imamik/fluxtenancy/internal/addons/helm"
	"github.com/imamik/fluxtenancy/internal/config"
	"github.com/imamik/fluxtenancy/internal/gitops"
	"github.com/imamik/fluxtenancy/internal/k8s"
	"github.com/imamik/fluxtenancy/internal/platform/github"
	"github.com/imamik/fluxtenancy/internal/platform/s3"
	"github.com/imamik/fluxtenancy/internal/provisioning"
	"github.com/imamik/fluxtenancy/internal/tenancy"
	"github.com/imamik/fluxtenancy/internal/ui/tui"
)

// EnvGitHubToken holds the GitHub token used by apply.
const EnvGitHubToken = "GITHUB_TOKEN"

// ApplyOptions are the flags of the apply command.
type ApplyOptions struct {
	ConfigPath  string
	Parallelism int
	Plain       bool
	ReportFile  string
	MetricsFile string
	Verbosity   int
}

// ArchiveStore uploads run reports to object storage.
type ArchiveStore interface {
	provisioning.ObjectStore
	EnsureBucket(ctx context.Context, bucket string) error
}

// Factory function variables - can be replaced in tests for dependency injection.
var (
	// newSourceHost creates the GitHub client for cfg.Owner.
	newSourceHost = func(ctx context.Context, token string, cfg *config.Config) (github.SourceHost, error) {
		return github.NewClient(ctx, token, cfg.Owner, github.WithAdoptPolicy(github.AdoptPolicy(cfg.AdoptPolicy)))
	}

	// newClusterStore creates the Kubernetes client for the configured cluster.
	newClusterStore = func(cfg *config.Config) (k8s.Store, error) {
		return k8s.NewClient(cfg.Cluster.Kubeconfig, cfg.Cluster.Context)
	}

	// newAgent creates the Flux agent acting on cluster.
	newAgent = func(cluster k8s.Store, cfg *config.Config, log logr.Logger) gitops.Agent {
		return gitops.NewFlux(cluster,
			gitops.WithChart(helm.ChartSpec{
				Repository: cfg.GitOps.Chart.Repository,
				Name:       cfg.GitOps.Chart.Name,
				Version:    cfg.GitOps.Chart.Version,
			}),
			gitops.WithNamespace(cfg.GitOps.Namespace),
			gitops.WithKnownHosts(cfg.GitOps.KnownHosts),
			gitops.WithLogger(log),
		)
	}

	// newArchiveStore creates the S3 client for report archiving.
	newArchiveStore = func(ctx context.Context, rc config.ReportConfig) (ArchiveStore, error) {
		return s3.NewClient(ctx, s3.Options{
			Endpoint:  rc.Endpoint,
			Region:    rc.Region,
			AccessKey: os.Getenv(s3.EnvAccessKey),
			SecretKey: os.Getenv(s3.EnvSecretKey),
		})
	}

	// keyGenerator produces deploy keys. Nil uses the default ECDSA generator.
	keyGenerator tenancy.KeyGenerator

	// isTerminal reports whether stdout is an interactive terminal.
	isTerminal = func() bool {
		return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
	}

	// runApplyTUI runs the live apply view.
	runApplyTUI = tui.RunApplyTUI

	// getenv reads environment variables.
	getenv = os.Getenv

	// writeFile writes data to a file (for testing injection).
	writeFile = os.WriteFile

	// stdout and stderr receive summaries and logs.
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

// Apply provisions the admin system and every configured tenant.
//
// The workflow is:
//  1. Load and validate the configuration
//  2. Create the GitHub, Kubernetes and Flux clients
//  3. Declare and execute the resource graph, with the live view on a terminal
//  4. Print the summary and write the optional report, metrics and archive
//
// Report, metrics and archive are written even when resources failed, so a
// partial run can be inspected. The returned error then lists every failure.
func Apply(ctx context.Context, opts ApplyOptions) error {
	cfg, err := loadConfig(opts.ConfigPath)
	if err != nil {
		return err
	}

	token := getenv(EnvGitHubToken)
	if token == "" {
		return fmt.Errorf("%s is not set", EnvGitHubToken)
	}

	interactive := !opts.Plain && isTerminal()
	log := logr.Discard()
	if !interactive {
		log = newLogger(stderr, opts.Verbosity)
	}

	o, registry, err := newOrchestrator(ctx, cfg, token, opts, log)
	if err != nil {
		return err
	}

	var report *provisioning.Report
	var runErr error
	if interactive {
		report, runErr = applyInteractive(ctx, o, cfg.Owner)
	} else {
		report, runErr = applyPlain(ctx, o, log)
	}
	if report == nil {
		return runErr
	}

	fmt.Fprint(stdout, tui.RenderSummary(report, !interactive))

	if err := writeOutputs(ctx, cfg, opts, registry, report, log); err != nil {
		return errors.Join(runErr, err)
	}

	if runErr != nil {
		return fmt.Errorf("apply finished with failures: %w", runErr)
	}
	return nil
}

func newOrchestrator(ctx context.Context, cfg *config.Config, token string, opts ApplyOptions, log logr.Logger) (*tenancy.Orchestrator, *prometheus.Registry, error) {
	source, err := newSourceHost(ctx, token, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create GitHub client: %w", err)
	}

	cluster, err := newClusterStore(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create Kubernetes client: %w", err)
	}

	registry := prometheus.NewRegistry()
	deps := tenancy.Dependencies{
		Source:  source,
		Cluster: cluster,
		Agent:   newAgent(cluster, cfg, log),
		Keys:    keyGenerator,
	}

	o, err := tenancy.NewOrchestrator(cfg, deps,
		tenancy.WithLogger(log),
		tenancy.WithExecutorOptions(
			provisioning.WithParallelism(opts.Parallelism),
			provisioning.WithMetrics(provisioning.NewMetrics(registry)),
		),
	)
	if err != nil {
		return nil, nil, err
	}
	return o, registry, nil
}

func applyInteractive(ctx context.Context, o *tenancy.Orchestrator, owner string) (*provisioning.Report, error) {
	plan, err := o.Plan()
	if err != nil {
		return nil, err
	}

	return runApplyTUI(ctx, owner, plan.Graph.Nodes(), func(ctx context.Context, observer provisioning.Observer) (*provisioning.Report, error) {
		result, err := o.Apply(ctx, provisioning.WithObserver(observer))
		if result == nil {
			return nil, err
		}
		return result.Report, err
	})
}

func applyPlain(ctx context.Context, o *tenancy.Orchestrator, log logr.Logger) (*provisioning.Report, error) {
	result, err := o.Apply(ctx, provisioning.WithObserver(provisioning.NewLogObserver(log)))
	if result == nil {
		return nil, err
	}
	return result.Report, err
}

func writeOutputs(ctx context.Context, cfg *config.Config, opts ApplyOptions, registry *prometheus.Registry, report *provisioning.Report, log logr.Logger) error {
	if opts.ReportFile != "" {
		data, err := report.YAML()
		if err != nil {
			return err
		}
		if err := writeFile(opts.ReportFile, data, 0600); err != nil {
			return fmt.Errorf("failed to write report file: %w", err)
		}
	}

	if opts.MetricsFile != "" {
		if err := prometheus.WriteToTextfile(opts.MetricsFile, registry); err != nil {
			return fmt.Errorf("failed to write metrics file: %w", err)
		}
	}

	if cfg.Report.Bucket != "" {
		key, err := archiveReport(ctx, cfg, report)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "\nReport archived to s3://%s/%s\n", cfg.Report.Bucket, key)
		log.V(1).Info("Archived report", "bucket", cfg.Report.Bucket, "key", key)
	}
	return nil
}

func archiveReport(ctx context.Context, cfg *config.Config, report *provisioning.Report) (string, error) {
	store, err := newArchiveStore(ctx, cfg.Report)
	if err != nil {
		return "", fmt.Errorf("failed to create S3 client: %w", err)
	}
	if err := store.EnsureBucket(ctx, cfg.Report.Bucket); err != nil {
		return "", err
	}
	return provisioning.Archive(ctx, store, cfg.Report.Bucket, cfg.Owner, report)
}

// newLogger returns a logr.Logger writing key/value lines to w.
func newLogger(w io.Writer, verbosity int) logr.Logger {
	return funcr.New(func(prefix, args string) {
		ts := time.Now().Format(time.TimeOnly)
		if prefix != "" {
			fmt.Fprintf(w, "%s %s: %s\n", ts, prefix, args)
			return
		}
		fmt.Fprintf(w, "%s %s\n", ts, args)
	}, funcr.Options{Verbosity: verbosity})
}
