package config

import (
	"os"
	"path/filepath"
	"strings"
)

// Defaults applied to unset fields.
const (
	DefaultBranch         = "main"
	DefaultBootstrapPath  = "kubernetes"
	DefaultSyncTargetPath = "clusters/my-cluster"
	DefaultFluxNamespace  = "flux-system"
	DefaultChartRepo      = "https://fluxcd-community.github.io/helm-charts"
	DefaultChartName      = "flux2"
	DefaultChartVersion   = "2.15.0"
	DefaultReportRegion   = "us-east-1"

	// DefaultKnownHosts is GitHub's ECDSA host key.
	DefaultKnownHosts = "github.com ecdsa-sha2-nistp256 AAAAE2VjZHNhLXNoYTItbmlzdHAyNTYAAAAIbmlzdHAyNTYAAABBBEmKSENjQEezOmxkZMy7opKgwFB9nkt5YRrYMjNuG5N87uRgg6CLrbo5wAdT/y6v0mKV0U2w0WZ2YB/++Tpockg="
)

// Environment variables read by ApplyEnv.
const (
	EnvGitHubOwner = "GITHUB_OWNER"
	EnvKubeconfig  = "KUBECONFIG"
)

// ApplyDefaults fills unset fields with their defaults.
func (c *Config) ApplyDefaults() {
	if c.AdoptPolicy == "" {
		c.AdoptPolicy = AdoptManaged
	}

	g := &c.GitOps
	if g.Branch == "" {
		g.Branch = DefaultBranch
	}
	if g.BootstrapPath == "" {
		g.BootstrapPath = DefaultBootstrapPath
	}
	if g.SyncTargetPath == "" {
		g.SyncTargetPath = DefaultSyncTargetPath
	}
	if g.Namespace == "" {
		g.Namespace = DefaultFluxNamespace
	}
	if g.KnownHosts == "" {
		g.KnownHosts = DefaultKnownHosts
	}
	if g.Chart.Repository == "" {
		g.Chart.Repository = DefaultChartRepo
	}
	if g.Chart.Name == "" {
		g.Chart.Name = DefaultChartName
	}
	if g.Chart.Version == "" {
		g.Chart.Version = DefaultChartVersion
	}

	if c.Report.Bucket != "" && c.Report.Region == "" {
		c.Report.Region = DefaultReportRegion
	}

	c.Cluster.Kubeconfig = expandHome(c.Cluster.Kubeconfig)
}

// ApplyEnv fills the owner and kubeconfig from the environment when the file leaves them empty.
func (c *Config) ApplyEnv() {
	if c.Owner == "" {
		c.Owner = os.Getenv(EnvGitHubOwner)
	}
	if c.Cluster.Kubeconfig == "" {
		if kc := os.Getenv(EnvKubeconfig); kc != "" {
			// KUBECONFIG may list several files; the first one wins.
			c.Cluster.Kubeconfig = filepath.SplitList(kc)[0]
		}
	}
	if c.Cluster.Kubeconfig == "" {
		if home, err := os.UserHomeDir(); err == nil {
			c.Cluster.Kubeconfig = filepath.Join(home, ".kube", "config")
		}
	}
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
