package naming

import "testing"

func TestNamingFunctions(t *testing.T) {
	tenant := "ai-team"

	tests := []struct {
		name     string
		got      string
		expected string
	}{
		{
			name:     "ChildName",
			got:      ChildName(tenant, RolePrivateKey),
			expected: "ai-team-private-key",
		},
		{
			name:     "WorkspaceRepository",
			got:      WorkspaceRepository(tenant),
			expected: "ai-team-workspace",
		},
		{
			name:     "FluxSecret",
			got:      FluxSecret(tenant),
			expected: "ai-team-flux-secret",
		},
		{
			name:     "TeamRepositoryRole",
			got:      ChildName(tenant, TeamRepositoryRole("ai-admins")),
			expected: "ai-team-team-repository-ai-admins",
		},
		{
			name:     "NamespaceRole",
			got:      ChildName(tenant, NamespaceRole("observability")),
			expected: "ai-team-namespace-observability",
		},
		{
			name:     "RoleBindingRole",
			got:      ChildName(tenant, RoleBindingRole("ai", "ai-admins")),
			expected: "ai-team-ai-cluster-role-binding-ai-admins",
		},
		{
			name:     "AdminBindingName",
			got:      AdminBindingName("ai-admins"),
			expected: "ai-admins-admin",
		},
		{
			name:     "AdminDeployKey",
			got:      ChildName(AdminRepository, RoleDeployKey),
			expected: "workspace-admin-repository-deploy-key",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, tt.got)
			}
		})
	}
}

func fixedRoles() []string {
	return []string{
		RolePrivateKey,
		RoleRepository,
		RoleWorkspace,
		RoleDeployKey,
		RoleBranchDefault,
		RoleFluxSecret,
		RoleAutomation,
		RoleFluxSync,
		RoleFluxProvider,
		RoleFluxBootstrap,
		RoleComponent,
		TeamRepositoryRole("ops"),
		NamespaceRole("ops"),
		RoleBindingRole("ops", "ops"),
	}
}

func TestChildName_Deterministic(t *testing.T) {
	for _, role := range fixedRoles() {
		first := ChildName("tenant-a", role)
		for range 3 {
			if got := ChildName("tenant-a", role); got != first {
				t.Fatalf("ChildName not deterministic for role %q: %q != %q", role, got, first)
			}
		}
	}
}

func TestChildName_DistinctParents(t *testing.T) {
	parents := []string{"ai-team", "data-team", "web", AdminRepository}
	for _, role := range fixedRoles() {
		seen := make(map[string]string)
		for _, parent := range parents {
			name := ChildName(parent, role)
			if other, ok := seen[name]; ok {
				t.Errorf("role %q: parents %q and %q collide on %q", role, other, parent, name)
			}
			seen[name] = parent
		}
	}
}

func TestChildName_DistinctRoles(t *testing.T) {
	seen := make(map[string]string)
	for _, role := range fixedRoles() {
		name := ChildName("ai-team", role)
		if other, ok := seen[name]; ok {
			t.Errorf("roles %q and %q collide on %q", other, role, name)
		}
		seen[name] = role
	}
}

// A parent whose name extends another parent by a role must not reproduce
// any of that other parent's children.
func TestChildName_NestedParents(t *testing.T) {
	roles := fixedRoles()
	for _, outer := range roles {
		nested := ChildName("ai", outer)
		for _, role := range roles {
			name := ChildName(nested, role)
			for _, other := range roles {
				if name == ChildName("ai", other) {
					t.Errorf("parent %q role %q collides with parent %q role %q on %q", nested, role, "ai", other, name)
				}
			}
		}
	}
}
