package config

// AdoptPolicy controls what happens when a repository with a derived name already exists.
type AdoptPolicy string

const (
	// AdoptManaged adopts only repositories previously created by fluxtenancy.
	AdoptManaged AdoptPolicy = "managed"
	// AdoptAlways adopts any existing repository.
	AdoptAlways AdoptPolicy = "always"
	// AdoptNever fails when the repository already exists.
	AdoptNever AdoptPolicy = "never"
)

// Config is the root of fluxtenancy.yaml.
type Config struct {
	// Owner is the GitHub organization or user owning all repositories.
	Owner string `yaml:"owner"`

	AdoptPolicy AdoptPolicy `yaml:"adoptPolicy,omitempty"`

	// AllowEmptyTenants lets apply run with only the admin system.
	AllowEmptyTenants bool `yaml:"allowEmptyTenants,omitempty"`

	Cluster ClusterConfig `yaml:"cluster"`
	GitOps  GitOpsConfig  `yaml:"gitops"`
	Tenants []Tenant      `yaml:"tenants"`
	Report  ReportConfig  `yaml:"report,omitempty"`
}

// ClusterConfig selects the Kubernetes cluster.
type ClusterConfig struct {
	Kubeconfig string `yaml:"kubeconfig,omitempty"`
	Context    string `yaml:"context,omitempty"`
}

// GitOpsConfig holds the Flux settings shared by the admin system and every tenant.
type GitOpsConfig struct {
	Branch         string      `yaml:"branch,omitempty"`
	BootstrapPath  string      `yaml:"bootstrapPath,omitempty"`
	SyncTargetPath string      `yaml:"syncTargetPath,omitempty"`
	Namespace      string      `yaml:"namespace,omitempty"`
	KnownHosts     string      `yaml:"knownHosts,omitempty"`
	Chart          ChartConfig `yaml:"chart,omitempty"`
}

// ChartConfig pins the Helm chart Flux is installed from.
type ChartConfig struct {
	Repository string `yaml:"repository,omitempty"`
	Name       string `yaml:"name,omitempty"`
	Version    string `yaml:"version,omitempty"`
}

// Tenant is one team workspace.
type Tenant struct {
	Name        string         `yaml:"name"`
	Namespaces  []NamespaceRef `yaml:"namespaces,omitempty"`
	GitHubTeams []TeamRef      `yaml:"githubTeams,omitempty"`
}

// NamespaceRef names a Kubernetes namespace owned by a tenant.
type NamespaceRef struct {
	Name string `yaml:"name"`
}

// TeamRef names a GitHub team granted access to a tenant.
type TeamRef struct {
	Name string `yaml:"name"`
}

// ReportConfig configures the optional S3 archive for run reports.
type ReportConfig struct {
	Bucket   string `yaml:"bucket,omitempty"`
	Endpoint string `yaml:"endpoint,omitempty"`
	Region   string `yaml:"region,omitempty"`
}

// NamespaceNames returns the tenant's namespace names in declaration order.
func (t Tenant) NamespaceNames() []string {
	names := make([]string, 0, len(t.Namespaces))
	for _, ns := range t.Namespaces {
		names = append(names, ns.Name)
	}
	return names
}

// TeamNames returns the tenant's GitHub team names in declaration order.
func (t Tenant) TeamNames() []string {
	names := make([]string, 0, len(t.GitHubTeams))
	for _, team := range t.GitHubTeams {
		names = append(names, team.Name)
	}
	return names
}
