package naming

import "fmt"

// AdminRepository is the name of the shared admin repository and the parent
// ID of every admin system resource.
const AdminRepository = "workspace-admin"

// Fixed child roles. Parameterized roles are built by the functions below.
const (
	RolePrivateKey    = "private-key"
	RoleRepository    = "repository"
	RoleWorkspace     = "workspace"
	RoleDeployKey     = "repository-deploy-key"
	RoleBranchDefault = "branch-default"
	RoleFluxSecret    = "flux-secret"
	RoleAutomation    = "automation"
	RoleFluxSync      = "flux-sync"
	RoleFluxProvider  = "flux-provider"
	RoleFluxBootstrap = "flux-bootstrap"
	// RoleComponent names the grouping node that completes with its parent.
	RoleComponent = "component"
)

// ChildName derives the name of a child resource from its parent ID and role.
// The parent ID must already be validated; ChildName never fails.
func ChildName(parentID, role string) string {
	return fmt.Sprintf("%s-%s", parentID, role)
}

// TeamRepositoryRole is the role of a team's access grant on a repository.
func TeamRepositoryRole(team string) string {
	return fmt.Sprintf("team-repository-%s", team)
}

// NamespaceRole is the role of a tenant namespace declaration.
func NamespaceRole(namespace string) string {
	return fmt.Sprintf("namespace-%s", namespace)
}

// RoleBindingRole is the role of a team's admin binding inside a namespace.
func RoleBindingRole(namespace, team string) string {
	return fmt.Sprintf("%s-cluster-role-binding-%s", namespace, team)
}

// WorkspaceRepository is the GitHub repository name of a tenant workspace.
func WorkspaceRepository(tenant string) string {
	return ChildName(tenant, RoleWorkspace)
}

// FluxSecret is the in-cluster name of a tenant's Flux credentials secret.
func FluxSecret(tenant string) string {
	return ChildName(tenant, RoleFluxSecret)
}

// AdminBindingName is the in-namespace name of a team's admin RoleBinding.
func AdminBindingName(team string) string {
	return fmt.Sprintf("%s-admin", team)
}
