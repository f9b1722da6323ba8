package config

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"gopkg.in/yaml.v3"
)

// WizardResult holds the answers from the init wizard.
type WizardResult struct {
	Owner       string
	AdoptPolicy AdoptPolicy
	Branch      string
	TenantName  string
	Namespaces  string // comma separated
	Teams       string // comma separated
}

// RunWizard asks for the owner and a first tenant.
func RunWizard(ctx context.Context) (*WizardResult, error) {
	result := &WizardResult{
		Owner:       os.Getenv(EnvGitHubOwner),
		AdoptPolicy: AdoptManaged,
		Branch:      DefaultBranch,
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("GitHub owner").
				Description("Organization or user that owns the workspace repositories").
				Placeholder("foot-org").
				Value(&result.Owner).
				Validate(validateOwner),

			huh.NewSelect[AdoptPolicy]().
				Title("Existing repositories").
				Description("What to do when a repository with the same name already exists").
				Options(
					huh.NewOption("Adopt only repositories created by fluxtenancy", AdoptManaged),
					huh.NewOption("Adopt any existing repository", AdoptAlways),
					huh.NewOption("Fail", AdoptNever),
				).
				Value(&result.AdoptPolicy),

			huh.NewInput().
				Title("Branch").
				Value(&result.Branch).
				Validate(huh.ValidateNotEmpty()),
		),

		huh.NewGroup(
			huh.NewInput().
				Title("First tenant").
				Description("Tenant name (DNS-safe, lowercase). Its repository is <name>-workspace").
				Placeholder("ai-team").
				Value(&result.TenantName).
				Validate(validateName),

			huh.NewInput().
				Title("Namespaces").
				Description("Comma separated namespaces owned by the tenant").
				Placeholder("ai, observability").
				Value(&result.Namespaces).
				Validate(validateNameList),

			huh.NewInput().
				Title("GitHub teams").
				Description("Comma separated teams granted push and namespace admin").
				Placeholder("ai-admins").
				Value(&result.Teams).
				Validate(validateNameList),
		),
	)

	if err := form.RunWithContext(ctx); err != nil {
		return nil, fmt.Errorf("wizard canceled: %w", err)
	}

	return result, nil
}

// ToConfig converts the wizard answers to a Config.
func (r *WizardResult) ToConfig() *Config {
	cfg := &Config{
		Owner:       strings.TrimSpace(r.Owner),
		AdoptPolicy: r.AdoptPolicy,
		GitOps: GitOpsConfig{
			Branch: strings.TrimSpace(r.Branch),
		},
	}

	if name := strings.TrimSpace(r.TenantName); name != "" {
		t := Tenant{Name: name}
		for _, ns := range splitList(r.Namespaces) {
			t.Namespaces = append(t.Namespaces, NamespaceRef{Name: ns})
		}
		for _, team := range splitList(r.Teams) {
			t.GitHubTeams = append(t.GitHubTeams, TeamRef{Name: team})
		}
		cfg.Tenants = []Tenant{t}
	} else {
		cfg.AllowEmptyTenants = true
	}

	return cfg
}

// WriteConfig writes cfg to path with a descriptive header.
func WriteConfig(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	var sb strings.Builder
	sb.WriteString(generateHeader(path))
	sb.WriteString("\n")
	sb.Write(data)

	if err := os.WriteFile(path, []byte(sb.String()), 0600); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

func generateHeader(path string) string {
	return fmt.Sprintf(`# fluxtenancy configuration
# Generated by: fluxtenancy init
# Generated at: %s
#
# Required environment variable:
#   GITHUB_TOKEN - GitHub token with repo, admin:public_key and admin:org scopes
#
# Usage:
#   export GITHUB_TOKEN=<your-token>
#   fluxtenancy apply -c %s
`, time.Now().Format(time.RFC3339), path)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func validateOwner(s string) error {
	if s == "" {
		return fmt.Errorf("owner is required")
	}
	if !githubLogin.MatchString(s) {
		return fmt.Errorf("owner must be a valid GitHub user or organization name")
	}
	return nil
}

func validateName(s string) error {
	if s == "" {
		return nil
	}
	return dnsLabel(strings.TrimSpace(s))
}

func validateNameList(s string) error {
	for _, name := range splitList(s) {
		if err := dnsLabel(name); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}
