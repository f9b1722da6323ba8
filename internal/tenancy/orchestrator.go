package tenancy

import (
	"context"
	"fmt"
	"slices"

	"github.com/go-logr/logr"

	"github.com/imamik/fluxtenancy/internal/config"
	"github.com/imamik/fluxtenancy/internal/platform/github"
	"github.com/imamik/fluxtenancy/internal/provisioning"
)

// Orchestrator declares the system and every configured tenant, then applies them.
type Orchestrator struct {
	cfg      *config.Config
	settings Settings
	deps     Dependencies
	execOpts []provisioning.ExecutorOption
	log      logr.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithExecutorOptions passes options to the graph executor.
func WithExecutorOptions(opts ...provisioning.ExecutorOption) Option {
	return func(o *Orchestrator) {
		o.execOpts = append(o.execOpts, opts...)
	}
}

// WithLogger sets the logger.
func WithLogger(log logr.Logger) Option {
	return func(o *Orchestrator) {
		o.log = log
	}
}

// Plan is a declared, not yet applied, graph.
type Plan struct {
	Graph   *provisioning.Graph
	System  *TenantSystem
	Tenants []*Tenant
}

// Result is the outcome of Apply.
type Result struct {
	Report             *provisioning.Report
	AdminRepository    *github.Repository
	TenantRepositories map[string]*github.Repository
}

// NewOrchestrator validates cfg and returns an orchestrator for it.
// Configuration errors are returned before any remote call is made.
func NewOrchestrator(cfg *config.Config, d Dependencies, opts ...Option) (*Orchestrator, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := d.validate(); err != nil {
		return nil, err
	}

	o := &Orchestrator{
		cfg:      cfg,
		settings: SettingsFromConfig(cfg),
		deps:     d,
		log:      logr.Discard(),
	}
	for _, opt := range opts {
		opt(o)
	}
	// Child names of different tenants can still meet when namespace or team
	// names embed role words; surface that as a configuration error.
	if _, err := o.Plan(); err != nil {
		return nil, err
	}
	return o, nil
}

// Settings returns the run-wide settings derived from the configuration.
func (o *Orchestrator) Settings() Settings {
	return o.settings
}

// Plan declares a fresh graph. Each Apply needs its own plan because node
// outputs resolve once.
func (o *Orchestrator) Plan() (*Plan, error) {
	g := provisioning.NewGraph()

	system, err := DeclareTenantSystem(g, o.settings, o.deps)
	if err != nil {
		return nil, fmt.Errorf("failed to declare tenant system: %w", err)
	}

	plan := &Plan{Graph: g, System: system}
	for _, t := range o.cfg.Tenants {
		tenant, err := DeclareTenant(g, t, system, o.settings, o.deps)
		if err != nil {
			return nil, fmt.Errorf("failed to declare tenant %s: %w", t.Name, err)
		}
		plan.Tenants = append(plan.Tenants, tenant)
	}

	o.log.V(1).Info("Declared graph", "resources", g.Len(), "tenants", len(plan.Tenants))
	return plan, nil
}

// DescribePlan declares the graph for cfg without any remote capability.
// The plan is for inspection only and must not be executed.
func DescribePlan(cfg *config.Config) (*Plan, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := &Orchestrator{cfg: cfg, settings: SettingsFromConfig(cfg), log: logr.Discard()}
	return o.Plan()
}

// Apply declares and executes the graph. The result is returned even when
// some resources failed; the error then aggregates every failure.
// opts are appended to the executor options given at construction.
func (o *Orchestrator) Apply(ctx context.Context, opts ...provisioning.ExecutorOption) (*Result, error) {
	plan, err := o.Plan()
	if err != nil {
		return nil, err
	}

	o.log.Info("Applying tenancy", "owner", o.settings.Owner, "tenants", len(plan.Tenants))
	execOpts := append(slices.Clone(o.execOpts), opts...)
	report, execErr := provisioning.NewExecutor(execOpts...).Execute(ctx, plan.Graph)

	result := &Result{
		Report:             report,
		TenantRepositories: make(map[string]*github.Repository, len(plan.Tenants)),
	}
	if repo, ok := plan.System.Repository.Value(); ok {
		result.AdminRepository = repo
	}
	for _, t := range plan.Tenants {
		if repo, ok := t.Repository.Value(); ok {
			result.TenantRepositories[t.Name] = repo
		}
	}

	counts := report.Counts()
	o.log.Info("Apply finished",
		"created", counts[provisioning.OutcomeCreated],
		"updated", counts[provisioning.OutcomeUpdated],
		"unchanged", counts[provisioning.OutcomeUnchanged],
		"adopted", counts[provisioning.OutcomeAdopted],
		"failed", counts[provisioning.OutcomeFailed],
		"skipped", counts[provisioning.OutcomeSkipped],
	)

	return result, execErr
}
