package tenancy

import (
	"errors"

	"github.com/imamik/fluxtenancy/internal/config"
	"github.com/imamik/fluxtenancy/internal/gitops"
	"github.com/imamik/fluxtenancy/internal/k8s"
	"github.com/imamik/fluxtenancy/internal/platform/github"
	"github.com/imamik/fluxtenancy/internal/util/keygen"
)

// Settings are the run-wide values every declaration reads.
type Settings struct {
	Owner          string
	Branch         string
	BootstrapPath  string
	SyncTargetPath string
	FluxNamespace  string
	KnownHosts     string
	Cluster        gitops.ClusterConfig
}

// SettingsFromConfig extracts Settings from a loaded configuration.
func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		Owner:          cfg.Owner,
		Branch:         cfg.GitOps.Branch,
		BootstrapPath:  cfg.GitOps.BootstrapPath,
		SyncTargetPath: cfg.GitOps.SyncTargetPath,
		FluxNamespace:  cfg.GitOps.Namespace,
		KnownHosts:     cfg.GitOps.KnownHosts,
		Cluster: gitops.ClusterConfig{
			Kubeconfig: cfg.Cluster.Kubeconfig,
			Context:    cfg.Cluster.Context,
		},
	}
}

// KeyGenerator produces deploy key pairs.
type KeyGenerator interface {
	Generate() (*keygen.KeyPair, error)
}

// ECDSAKeys generates ECDSA key pairs on Curve.
type ECDSAKeys struct {
	Curve keygen.Curve
}

// Generate implements KeyGenerator.
func (k ECDSAKeys) Generate() (*keygen.KeyPair, error) {
	return keygen.GenerateECDSAKeyPair(k.Curve)
}

// Dependencies are the external capabilities declarations act on.
type Dependencies struct {
	Source  github.SourceHost
	Cluster k8s.Store
	Agent   gitops.Agent
	Keys    KeyGenerator
}

func (d Dependencies) validate() error {
	var errs []error
	if d.Source == nil {
		errs = append(errs, errors.New("source host is required"))
	}
	if d.Cluster == nil {
		errs = append(errs, errors.New("cluster store is required"))
	}
	if d.Agent == nil {
		errs = append(errs, errors.New("gitops agent is required"))
	}
	return errors.Join(errs...)
}

func (d Dependencies) keys() KeyGenerator {
	if d.Keys == nil {
		return ECDSAKeys{Curve: keygen.CurveP256}
	}
	return d.Keys
}
