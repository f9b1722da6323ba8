package tenancy

import (
	"context"
	"fmt"

	"github.com/imamik/fluxtenancy/internal/gitops"
	"github.com/imamik/fluxtenancy/internal/platform/github"
	"github.com/imamik/fluxtenancy/internal/provisioning"
	"github.com/imamik/fluxtenancy/internal/util/naming"
)

// TenantSystem is the declared admin system.
type TenantSystem struct {
	Name       string
	Repository *provisioning.Output[*github.Repository]
	// Ready resolves once every system resource succeeded.
	Ready *provisioning.Output[struct{}]
}

// DeclareTenantSystem declares the admin repository and the Flux installation
// bootstrapped against it.
func DeclareTenantSystem(g *provisioning.Graph, s Settings, d Dependencies) (*TenantSystem, error) {
	scope := naming.AdminRepository

	repo, err := declareRepository(g, scope, naming.AdminRepository, "Flux cluster administration", nil, d)
	if err != nil {
		return nil, err
	}

	keys, err := declareKeyPair(g, scope, repo, nil, d, s.FluxNamespace, gitops.SystemName)
	if err != nil {
		return nil, err
	}

	branch, err := declareBranchDefault(g, scope, s.Branch, repo, nil, d)
	if err != nil {
		return nil, err
	}

	deployKey, err := declareDeployKey(g, scope, keys, repo, nil, d)
	if err != nil {
		return nil, err
	}

	provider, err := provisioning.Declare(g, provisioning.Spec{
		ID:        childID(scope, naming.RoleFluxProvider),
		Kind:      KindFluxProvider,
		Scope:     scope,
		DependsOn: []provisioning.Ref{keys, repo},
	}, func(ctx context.Context, in *provisioning.Inputs) (*gitops.Provider, provisioning.Outcome, error) {
		kp, err := provisioning.Resolve(in, keys)
		if err != nil {
			return nil, provisioning.OutcomeFailed, err
		}
		r, err := provisioning.Resolve(in, repo)
		if err != nil {
			return nil, provisioning.OutcomeFailed, err
		}
		return d.Agent.ConfigureProvider(ctx, s.Cluster, gitops.GitRemote{
			URL:           gitops.GitHubSSHURL(s.Owner, r.Name),
			Branch:        s.Branch,
			Username:      "git",
			PrivateKeyPEM: kp.PrivateKeyPEM,
		})
	})
	if err != nil {
		return nil, err
	}

	bootstrap, err := provisioning.Declare(g, provisioning.Spec{
		ID:        childID(scope, naming.RoleFluxBootstrap),
		Kind:      KindFluxBootstrap,
		Scope:     scope,
		DependsOn: []provisioning.Ref{deployKey, provider},
	}, func(ctx context.Context, in *provisioning.Inputs) (string, provisioning.Outcome, error) {
		p, err := provisioning.Resolve(in, provider)
		if err != nil {
			return "", provisioning.OutcomeFailed, err
		}
		outcome, err := d.Agent.Bootstrap(ctx, p, s.BootstrapPath)
		if err != nil {
			return "", provisioning.OutcomeFailed, fmt.Errorf("failed to bootstrap flux: %w", err)
		}
		return s.BootstrapPath, outcome, nil
	})
	if err != nil {
		return nil, err
	}

	ready, err := provisioning.DeclareComponent(g, provisioning.Spec{
		ID:        childID(scope, naming.RoleComponent),
		Kind:      KindTenantSystem,
		Scope:     scope,
		DependsOn: []provisioning.Ref{keys, repo, branch, deployKey, provider, bootstrap},
	})
	if err != nil {
		return nil, err
	}

	return &TenantSystem{Name: scope, Repository: repo, Ready: ready}, nil
}
