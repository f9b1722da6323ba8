package testing

import (
	"slices"

	"github.com/imamik/fluxtenancy/internal/config"
)

// ConfigBuilder provides a fluent interface for constructing test configs.
// Each method returns a new builder (immutable) for chaining.
type ConfigBuilder struct {
	cfg config.Config
}

// NewConfigBuilder creates a builder for owner foot-org with defaults applied.
func NewConfigBuilder() *ConfigBuilder {
	cfg := config.Config{
		Owner: "foot-org",
		Cluster: config.ClusterConfig{
			Kubeconfig: "/tmp/kubeconfig",
		},
	}
	cfg.ApplyDefaults()
	return &ConfigBuilder{cfg: cfg}
}

// WithOwner sets the GitHub owner.
func (b *ConfigBuilder) WithOwner(owner string) *ConfigBuilder {
	newBuilder := b.clone()
	newBuilder.cfg.Owner = owner
	return newBuilder
}

// WithAdoptPolicy sets the repository adopt policy.
func (b *ConfigBuilder) WithAdoptPolicy(p config.AdoptPolicy) *ConfigBuilder {
	newBuilder := b.clone()
	newBuilder.cfg.AdoptPolicy = p
	return newBuilder
}

// WithAllowEmptyTenants permits a config without tenants.
func (b *ConfigBuilder) WithAllowEmptyTenants(allow bool) *ConfigBuilder {
	newBuilder := b.clone()
	newBuilder.cfg.AllowEmptyTenants = allow
	return newBuilder
}

// WithTenant appends a tenant.
func (b *ConfigBuilder) WithTenant(name string, namespaces, teams []string) *ConfigBuilder {
	newBuilder := b.clone()
	tenant := config.Tenant{Name: name}
	for _, ns := range namespaces {
		tenant.Namespaces = append(tenant.Namespaces, config.NamespaceRef{Name: ns})
	}
	for _, team := range teams {
		tenant.GitHubTeams = append(tenant.GitHubTeams, config.TeamRef{Name: team})
	}
	newBuilder.cfg.Tenants = append(newBuilder.cfg.Tenants, tenant)
	return newBuilder
}

// WithReportBucket enables report archiving.
func (b *ConfigBuilder) WithReportBucket(bucket, endpoint string) *ConfigBuilder {
	newBuilder := b.clone()
	newBuilder.cfg.Report.Bucket = bucket
	newBuilder.cfg.Report.Endpoint = endpoint
	return newBuilder
}

// Build returns the constructed config.
func (b *ConfigBuilder) Build() *config.Config {
	cfg := b.clone().cfg
	return &cfg
}

func (b *ConfigBuilder) clone() *ConfigBuilder {
	cfg := b.cfg
	cfg.Tenants = make([]config.Tenant, len(b.cfg.Tenants))
	for i, t := range b.cfg.Tenants {
		t.Namespaces = slices.Clone(t.Namespaces)
		t.GitHubTeams = slices.Clone(t.GitHubTeams)
		cfg.Tenants[i] = t
	}
	return &ConfigBuilder{cfg: cfg}
}
