package tenancy

import (
	"context"
	"fmt"

	"github.com/imamik/fluxtenancy/internal/config"
	"github.com/imamik/fluxtenancy/internal/gitops"
	"github.com/imamik/fluxtenancy/internal/k8s"
	"github.com/imamik/fluxtenancy/internal/platform/github"
	"github.com/imamik/fluxtenancy/internal/provisioning"
	"github.com/imamik/fluxtenancy/internal/util/labels"
	"github.com/imamik/fluxtenancy/internal/util/naming"
)

// Tenant is a declared tenant.
type Tenant struct {
	Name       string
	Repository *provisioning.Output[*github.Repository]
	Sync       *provisioning.Output[*gitops.SyncManifests]
	Ready      *provisioning.Output[struct{}]
}

// DeclareTenant declares every resource of t. Each node depends on the
// system's completion signal in addition to its own dependencies.
func DeclareTenant(g *provisioning.Graph, t config.Tenant, system *TenantSystem, s Settings, d Dependencies) (*Tenant, error) {
	if system == nil || system.Ready == nil {
		return nil, fmt.Errorf("%w: tenant %s declared before the tenant system", provisioning.ErrDependencyNotReady, t.Name)
	}
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", provisioning.ErrInvalidIdentifier, err)
	}

	scope := t.Name
	sys := []provisioning.Ref{system.Ready}
	with := func(refs ...provisioning.Ref) []provisioning.Ref {
		return append(refs, sys...)
	}
	secretName := naming.FluxSecret(t.Name)
	repoName := naming.WorkspaceRepository(t.Name)
	tenantLabels := labels.NewLabelBuilder().WithTenant(t.Name).Build()

	// Everything the component waits for.
	var members []provisioning.Ref

	repo, err := declareRepository(g, scope, repoName, fmt.Sprintf("Flux workspace of tenant %s", t.Name), sys, d)
	if err != nil {
		return nil, err
	}
	members = append(members, repo)

	keys, err := declareKeyPair(g, scope, repo, sys, d, s.FluxNamespace, secretName)
	if err != nil {
		return nil, err
	}
	members = append(members, keys)

	deployKey, err := declareDeployKey(g, scope, keys, repo, sys, d)
	if err != nil {
		return nil, err
	}
	members = append(members, deployKey)

	// Depends on the repository only; the deploy key is not needed to set a branch.
	branch, err := declareBranchDefault(g, scope, s.Branch, repo, sys, d)
	if err != nil {
		return nil, err
	}
	members = append(members, branch)

	for _, team := range t.TeamNames() {
		grant, err := provisioning.Declare(g, provisioning.Spec{
			ID:        childID(scope, naming.TeamRepositoryRole(team)),
			Kind:      KindTeamRepository,
			Scope:     scope,
			DependsOn: with(repo),
		}, func(ctx context.Context, in *provisioning.Inputs) (string, provisioning.Outcome, error) {
			r, err := provisioning.Resolve(in, repo)
			if err != nil {
				return "", provisioning.OutcomeFailed, err
			}
			outcome, err := d.Source.GrantTeamAccess(ctx, r.Name, team, TeamPermission)
			return team, outcome, err
		})
		if err != nil {
			return nil, err
		}
		members = append(members, grant)
	}

	fluxSecret, err := provisioning.Declare(g, provisioning.Spec{
		ID:        childID(scope, naming.RoleFluxSecret),
		Kind:      KindSecret,
		Scope:     scope,
		DependsOn: with(keys),
	}, func(ctx context.Context, in *provisioning.Inputs) (string, provisioning.Outcome, error) {
		kp, err := provisioning.Resolve(in, keys)
		if err != nil {
			return "", provisioning.OutcomeFailed, err
		}
		outcome, err := d.Cluster.ApplySecret(ctx, k8s.SecretSpec{
			Name:       secretName,
			Namespace:  s.FluxNamespace,
			StringData: gitops.CredentialData(kp, s.KnownHosts),
			Labels:     tenantLabels,
		})
		return secretName, outcome, err
	})
	if err != nil {
		return nil, err
	}
	members = append(members, fluxSecret)

	for _, ns := range t.NamespaceNames() {
		namespace, err := provisioning.Declare(g, provisioning.Spec{
			ID:        childID(scope, naming.NamespaceRole(ns)),
			Kind:      KindNamespace,
			Scope:     scope,
			DependsOn: sys,
		}, func(ctx context.Context, _ *provisioning.Inputs) (string, provisioning.Outcome, error) {
			outcome, err := d.Cluster.ApplyNamespace(ctx, k8s.NamespaceSpec{Name: ns, Tenant: t.Name})
			return ns, outcome, err
		})
		if err != nil {
			return nil, err
		}
		members = append(members, namespace)

		for _, team := range t.TeamNames() {
			binding, err := provisioning.Declare(g, provisioning.Spec{
				ID:        childID(scope, naming.RoleBindingRole(ns, team)),
				Kind:      KindRoleBinding,
				Scope:     scope,
				DependsOn: with(namespace),
			}, func(ctx context.Context, in *provisioning.Inputs) (string, provisioning.Outcome, error) {
				nsName, err := provisioning.Resolve(in, namespace)
				if err != nil {
					return "", provisioning.OutcomeFailed, err
				}
				name := naming.AdminBindingName(team)
				outcome, err := d.Cluster.ApplyRoleBinding(ctx, k8s.RoleBindingSpec{
					Name:        name,
					Namespace:   nsName,
					ClusterRole: NamespaceClusterRole,
					Group:       team,
					Labels:      tenantLabels,
				})
				return name, outcome, err
			})
			if err != nil {
				return nil, err
			}
			members = append(members, binding)
		}
	}

	// The sync binding is rendered only once its credentials secret exists.
	render, err := provisioning.Declare(g, provisioning.Spec{
		ID:        childID(scope, naming.RoleAutomation),
		Kind:      KindSyncManifests,
		Scope:     scope,
		DependsOn: with(fluxSecret),
	}, func(_ context.Context, in *provisioning.Inputs) (*gitops.SyncManifests, provisioning.Outcome, error) {
		secret, err := provisioning.Resolve(in, fluxSecret)
		if err != nil {
			return nil, provisioning.OutcomeFailed, err
		}
		m, err := d.Agent.RenderSyncManifests(gitops.SyncRequest{
			Name:       naming.ChildName(t.Name, naming.RoleAutomation),
			Namespace:  s.FluxNamespace,
			URL:        gitops.GitHubSSHURL(s.Owner, repoName),
			Branch:     s.Branch,
			Path:       s.SyncTargetPath,
			SecretName: secret,
			Tenant:     t.Name,
		})
		if err != nil {
			return nil, provisioning.OutcomeFailed, err
		}
		return m, provisioning.OutcomeReady, nil
	})
	if err != nil {
		return nil, err
	}
	members = append(members, render)

	sync, err := provisioning.Declare(g, provisioning.Spec{
		ID:        childID(scope, naming.RoleFluxSync),
		Kind:      KindConfigGroup,
		Scope:     scope,
		DependsOn: with(render, repo),
	}, func(ctx context.Context, in *provisioning.Inputs) (*gitops.SyncManifests, provisioning.Outcome, error) {
		m, err := provisioning.Resolve(in, render)
		if err != nil {
			return nil, provisioning.OutcomeFailed, err
		}
		outcome, err := d.Cluster.ApplyManifests(ctx, m.Content)
		if err != nil {
			return nil, provisioning.OutcomeFailed, fmt.Errorf("failed to apply sync binding: %w", err)
		}
		return m, outcome, nil
	})
	if err != nil {
		return nil, err
	}
	members = append(members, sync)

	ready, err := provisioning.DeclareComponent(g, provisioning.Spec{
		ID:        childID(scope, naming.RoleComponent),
		Kind:      KindTenant,
		Scope:     scope,
		DependsOn: with(members...),
	})
	if err != nil {
		return nil, err
	}

	return &Tenant{Name: t.Name, Repository: repo, Sync: sync, Ready: ready}, nil
}
