package gitops_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/fluxtenancy/internal/gitops"
	"github.com/imamik/fluxtenancy/internal/k8s"
)

func TestGitHubSSHURL(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "ssh://git@github.com/foot-org/ai-team-workspace.git", gitops.GitHubSSHURL("foot-org", "ai-team-workspace"))
}

func TestRenderSyncManifests(t *testing.T) {
	t.Parallel()

	m, err := gitops.RenderSyncManifests(gitops.SyncRequest{
		Name:       "ai-team-automation",
		Namespace:  "flux-system",
		URL:        gitops.GitHubSSHURL("foot-org", "ai-team-workspace"),
		Branch:     "main",
		Path:       "clusters/my-cluster",
		SecretName: "ai-team-flux-secret",
		Tenant:     "ai-team",
	})
	require.NoError(t, err)
	assert.Equal(t, "ai-team-flux-secret", m.SecretName)
	assert.Equal(t, "flux-system", m.SecretNamespace)

	objs, err := k8s.DecodeManifests(m.Content)
	require.NoError(t, err)
	require.Len(t, objs, 2)

	repo := objs[0]
	assert.Equal(t, "GitRepository", repo.GetKind())
	assert.Equal(t, "source.toolkit.fluxcd.io/v1", repo.GetAPIVersion())
	assert.Equal(t, "ai-team-automation", repo.GetName())
	assert.Equal(t, "flux-system", repo.GetNamespace())
	assert.Equal(t, "ai-team", repo.GetLabels()[k8s.LabelTenant])
	assert.Equal(t, k8s.ManagedBy, repo.GetLabels()[k8s.LabelManagedBy])
	assert.Equal(t, "ssh://git@github.com/foot-org/ai-team-workspace.git", repo.Object["spec"].(map[string]any)["url"])
	assert.Equal(t, "1m0s", repo.Object["spec"].(map[string]any)["interval"])

	ks := objs[1]
	assert.Equal(t, "Kustomization", ks.GetKind())
	assert.Equal(t, "kustomize.toolkit.fluxcd.io/v1", ks.GetAPIVersion())
	spec := ks.Object["spec"].(map[string]any)
	assert.Equal(t, "./clusters/my-cluster", spec["path"])
	assert.Equal(t, true, spec["prune"])
	assert.Equal(t, "10m0s", spec["interval"])
	assert.Equal(t, "ai-team-automation", spec["sourceRef"].(map[string]any)["name"])
}

func TestRenderSyncManifests_PathNormalization(t *testing.T) {
	t.Parallel()

	for _, path := range []string{"kubernetes", "./kubernetes", "kubernetes/"} {
		m, err := gitops.RenderSyncManifests(gitops.SyncRequest{
			Name: "flux-system", Namespace: "flux-system", URL: "ssh://git@github.com/o/r.git",
			Branch: "main", Path: path, SecretName: "flux-system",
		})
		require.NoError(t, err, path)
		assert.Contains(t, string(m.Content), `path: "./kubernetes"`, path)
	}
}

func TestRenderSyncManifests_Missing(t *testing.T) {
	t.Parallel()

	_, err := gitops.RenderSyncManifests(gitops.SyncRequest{Name: "x", Namespace: "flux-system"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "branch, path, secretName, url")
}
