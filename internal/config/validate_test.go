package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/fluxtenancy/internal/provisioning"
)

func validConfig() *Config {
	cfg := &Config{
		Owner: "foot-org",
		Tenants: []Tenant{{
			Name:        "ai-team",
			Namespaces:  []NamespaceRef{{Name: "ai"}, {Name: "observability"}},
			GitHubTeams: []TeamRef{{Name: "ai-admins"}},
		}},
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr error
		msg     string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{
			name:    "missing owner",
			mutate:  func(c *Config) { c.Owner = "" },
			wantErr: provisioning.ErrInvalidIdentifier,
		},
		{
			name:    "owner with slash",
			mutate:  func(c *Config) { c.Owner = "foot/org" },
			wantErr: provisioning.ErrInvalidIdentifier,
		},
		{
			name:    "uppercase tenant",
			mutate:  func(c *Config) { c.Tenants[0].Name = "AI-Team" },
			wantErr: provisioning.ErrInvalidIdentifier,
		},
		{
			name:    "empty tenant name",
			mutate:  func(c *Config) { c.Tenants[0].Name = "" },
			wantErr: provisioning.ErrInvalidIdentifier,
		},
		{
			name:    "invalid namespace",
			mutate:  func(c *Config) { c.Tenants[0].Namespaces[0].Name = "ai_ns" },
			wantErr: provisioning.ErrInvalidIdentifier,
		},
		{
			name:    "invalid team",
			mutate:  func(c *Config) { c.Tenants[0].GitHubTeams[0].Name = "AI Admins" },
			wantErr: provisioning.ErrInvalidIdentifier,
		},
		{
			name:    "no tenants",
			mutate:  func(c *Config) { c.Tenants = nil },
			wantErr: ErrNoTenants,
		},
		{
			name: "no tenants allowed",
			mutate: func(c *Config) {
				c.Tenants = nil
				c.AllowEmptyTenants = true
			},
		},
		{
			name:   "unknown adopt policy",
			mutate: func(c *Config) { c.AdoptPolicy = "sometimes" },
			msg:    "must be a valid value",
		},
		{
			name:   "absolute sync path",
			mutate: func(c *Config) { c.GitOps.SyncTargetPath = "/clusters" },
			msg:    "must be relative",
		},
		{
			name: "duplicate tenant",
			mutate: func(c *Config) {
				c.Tenants = append(c.Tenants, Tenant{Name: "ai-team"})
			},
			wantErr: provisioning.ErrNameCollision,
		},
		{
			name: "reserved tenant name",
			mutate: func(c *Config) {
				c.Tenants[0].Name = "workspace-admin"
			},
			wantErr: provisioning.ErrNameCollision,
		},
		{
			name: "namespace claimed twice",
			mutate: func(c *Config) {
				c.Tenants = append(c.Tenants, Tenant{Name: "web-team", Namespaces: []NamespaceRef{{Name: "ai"}}})
			},
			wantErr: provisioning.ErrNameCollision,
		},
		{
			name: "namespace listed twice",
			mutate: func(c *Config) {
				c.Tenants[0].Namespaces = append(c.Tenants[0].Namespaces, NamespaceRef{Name: "ai"})
			},
			wantErr: provisioning.ErrNameCollision,
		},
		{
			name: "team listed twice",
			mutate: func(c *Config) {
				c.Tenants[0].GitHubTeams = append(c.Tenants[0].GitHubTeams, TeamRef{Name: "ai-admins"})
			},
			wantErr: provisioning.ErrNameCollision,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			switch {
			case tt.wantErr != nil:
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.msg != "":
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.msg)
			default:
				assert.NoError(t, err)
			}
		})
	}
}

func TestApplyDefaults_KeepsExplicitValues(t *testing.T) {
	t.Parallel()
	cfg := &Config{
		AdoptPolicy: AdoptNever,
		GitOps: GitOpsConfig{
			Branch:     "trunk",
			KnownHosts: "example.com ssh-ed25519 AAAA",
			Chart:      ChartConfig{Version: "2.14.0"},
		},
		Report: ReportConfig{Bucket: "reports"},
	}
	cfg.ApplyDefaults()

	assert.Equal(t, AdoptNever, cfg.AdoptPolicy)
	assert.Equal(t, "trunk", cfg.GitOps.Branch)
	assert.Equal(t, "example.com ssh-ed25519 AAAA", cfg.GitOps.KnownHosts)
	assert.Equal(t, "2.14.0", cfg.GitOps.Chart.Version)
	assert.Equal(t, DefaultChartRepo, cfg.GitOps.Chart.Repository)
	assert.Equal(t, DefaultReportRegion, cfg.Report.Region)
}

func TestExpandHome(t *testing.T) {
	t.Setenv("HOME", "/home/flux")
	assert.Equal(t, "/home/flux/.kube/config", expandHome("~/.kube/config"))
	assert.Equal(t, "/etc/kubeconfig", expandHome("/etc/kubeconfig"))
	assert.Equal(t, "", expandHome(""))
}
