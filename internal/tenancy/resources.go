package tenancy

import (
	"context"
	"fmt"

	"github.com/imamik/fluxtenancy/internal/gitops"
	"github.com/imamik/fluxtenancy/internal/platform/github"
	"github.com/imamik/fluxtenancy/internal/provisioning"
	"github.com/imamik/fluxtenancy/internal/util/keygen"
	"github.com/imamik/fluxtenancy/internal/util/naming"
)

// Node kinds.
const (
	KindPrivateKey       = "tls:PrivateKey"
	KindRepository       = "github:Repository"
	KindBranchDefault    = "github:BranchDefault"
	KindDeployKey        = "github:RepositoryDeployKey"
	KindTeamRepository   = "github:TeamRepository"
	KindFluxProvider     = "flux:Provider"
	KindFluxBootstrap    = "flux:FluxBootstrapGit"
	KindSecret           = "kubernetes:core/v1:Secret"
	KindNamespace        = "kubernetes:core/v1:Namespace"
	KindRoleBinding      = "kubernetes:rbac.authorization.k8s.io/v1:RoleBinding"
	KindSyncManifests    = "flux:SyncManifests"
	KindConfigGroup      = "kubernetes:yaml:ConfigGroup"
	KindTenantSystem     = "flux:tenancy:TenantSystem"
	KindTenant           = "flux:tenancy:Tenant"
	DeployKeyTitle       = "fluxcd"
	TeamPermission       = "push"
	NamespaceClusterRole = "admin"
)

func childID(parent, role string) provisioning.ID {
	return provisioning.ID(naming.ChildName(parent, role))
}

// declareKeyPair reuses the identity stored in the secret at
// namespace/secretName, or generates a new key pair when it is absent or
// unreadable. A repository created in this run never inherits a stored
// identity.
func declareKeyPair(g *provisioning.Graph, scope string, repo *provisioning.Output[*github.Repository], deps []provisioning.Ref, d Dependencies, namespace, secretName string) (*provisioning.Output[*keygen.KeyPair], error) {
	return provisioning.Declare(g, provisioning.Spec{
		ID:        childID(scope, naming.RolePrivateKey),
		Kind:      KindPrivateKey,
		Scope:     scope,
		DependsOn: append([]provisioning.Ref{repo}, deps...),
	}, func(ctx context.Context, in *provisioning.Inputs) (*keygen.KeyPair, provisioning.Outcome, error) {
		repoOutcome, err := provisioning.ResolveOutcome(in, repo)
		if err != nil {
			return nil, provisioning.OutcomeFailed, err
		}

		if repoOutcome != provisioning.OutcomeCreated {
			data, err := d.Cluster.GetSecret(ctx, namespace, secretName)
			if err != nil {
				return nil, provisioning.OutcomeFailed, fmt.Errorf("failed to read secret %s/%s: %w", namespace, secretName, err)
			}
			if identity := data[gitops.SecretKeyIdentity]; len(identity) > 0 {
				if kp, err := keygen.ParseKeyPair(identity); err == nil {
					return kp, provisioning.OutcomeUnchanged, nil
				}
			}
		}

		kp, err := d.keys().Generate()
		if err != nil {
			return nil, provisioning.OutcomeFailed, fmt.Errorf("failed to generate key pair: %w", err)
		}
		return kp, provisioning.OutcomeCreated, nil
	})
}

func declareRepository(g *provisioning.Graph, scope, name, description string, deps []provisioning.Ref, d Dependencies) (*provisioning.Output[*github.Repository], error) {
	return provisioning.Declare(g, provisioning.Spec{
		ID:        childID(scope, naming.RoleRepository),
		Kind:      KindRepository,
		Scope:     scope,
		DependsOn: deps,
	}, func(ctx context.Context, _ *provisioning.Inputs) (*github.Repository, provisioning.Outcome, error) {
		return d.Source.CreateRepository(ctx, github.RepositorySpec{
			Name:        name,
			Description: description,
			Private:     true,
			AutoInit:    true,
		})
	})
}

func declareBranchDefault(g *provisioning.Graph, scope, branch string, repo *provisioning.Output[*github.Repository], deps []provisioning.Ref, d Dependencies) (*provisioning.Output[string], error) {
	return provisioning.Declare(g, provisioning.Spec{
		ID:        childID(scope, naming.RoleBranchDefault),
		Kind:      KindBranchDefault,
		Scope:     scope,
		DependsOn: append([]provisioning.Ref{repo}, deps...),
	}, func(ctx context.Context, in *provisioning.Inputs) (string, provisioning.Outcome, error) {
		r, err := provisioning.Resolve(in, repo)
		if err != nil {
			return "", provisioning.OutcomeFailed, err
		}
		outcome, err := d.Source.SetDefaultBranch(ctx, r.Name, branch)
		return branch, outcome, err
	})
}

func declareDeployKey(g *provisioning.Graph, scope string, keys *provisioning.Output[*keygen.KeyPair], repo *provisioning.Output[*github.Repository], deps []provisioning.Ref, d Dependencies) (*provisioning.Output[*github.DeployKey], error) {
	return provisioning.Declare(g, provisioning.Spec{
		ID:        childID(scope, naming.RoleDeployKey),
		Kind:      KindDeployKey,
		Scope:     scope,
		DependsOn: append([]provisioning.Ref{keys, repo}, deps...),
	}, func(ctx context.Context, in *provisioning.Inputs) (*github.DeployKey, provisioning.Outcome, error) {
		kp, err := provisioning.Resolve(in, keys)
		if err != nil {
			return nil, provisioning.OutcomeFailed, err
		}
		r, err := provisioning.Resolve(in, repo)
		if err != nil {
			return nil, provisioning.OutcomeFailed, err
		}
		return d.Source.AddDeployKey(ctx, r.Name, github.DeployKeySpec{
			Title:     DeployKeyTitle,
			PublicKey: string(kp.PublicKeyOpenSSH),
			ReadOnly:  false,
		})
	})
}
