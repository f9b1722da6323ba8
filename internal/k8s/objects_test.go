package k8s

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	rbacv1 "k8s.io/api/rbac/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"

	"github.com/imamik/fluxtenancy/internal/provisioning"
)

func newFakeStore(objs ...client.Object) (*Client, client.Client) {
	c := fake.NewClientBuilder().WithScheme(NewScheme()).WithObjects(objs...).Build()
	return New(c), c
}

func TestApplyNamespace(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("creates then unchanged", func(t *testing.T) {
		t.Parallel()
		store, c := newFakeStore()

		outcome, err := store.ApplyNamespace(ctx, NamespaceSpec{Name: "ai", Tenant: "ai-team"})
		require.NoError(t, err)
		assert.Equal(t, provisioning.OutcomeCreated, outcome)

		ns := &corev1.Namespace{}
		require.NoError(t, c.Get(ctx, client.ObjectKey{Name: "ai"}, ns))
		assert.Equal(t, "ai-team", ns.Labels[LabelTenant])
		assert.Equal(t, ManagedBy, ns.Labels[LabelManagedBy])

		outcome, err = store.ApplyNamespace(ctx, NamespaceSpec{Name: "ai", Tenant: "ai-team"})
		require.NoError(t, err)
		assert.Equal(t, provisioning.OutcomeUnchanged, outcome)
	})

	t.Run("adopts unlabelled namespace", func(t *testing.T) {
		t.Parallel()
		store, _ := newFakeStore(&corev1.Namespace{ObjectMeta: metav1.ObjectMeta{Name: "observability"}})

		outcome, err := store.ApplyNamespace(ctx, NamespaceSpec{Name: "observability", Tenant: "ai-team"})
		require.NoError(t, err)
		assert.Equal(t, provisioning.OutcomeAdopted, outcome)
	})

	t.Run("conflicts with another tenant", func(t *testing.T) {
		t.Parallel()
		store, _ := newFakeStore(&corev1.Namespace{ObjectMeta: metav1.ObjectMeta{
			Name:   "ai",
			Labels: map[string]string{LabelTenant: "web-team", LabelManagedBy: ManagedBy},
		}})

		outcome, err := store.ApplyNamespace(ctx, NamespaceSpec{Name: "ai", Tenant: "ai-team"})
		require.Error(t, err)
		assert.ErrorIs(t, err, provisioning.ErrNamespaceConflict)
		assert.Equal(t, provisioning.OutcomeFailed, outcome)
	})
}

func TestApplySecret(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store, c := newFakeStore()

	spec := SecretSpec{
		Name:      "ai-team-flux-secret",
		Namespace: "flux-system",
		StringData: map[string]string{
			"identity":     "private",
			"identity.pub": "public",
			"known_hosts":  "github.com ecdsa",
		},
		Labels: map[string]string{LabelTenant: "ai-team"},
	}

	outcome, err := store.ApplySecret(ctx, spec)
	require.NoError(t, err)
	assert.Equal(t, provisioning.OutcomeCreated, outcome)

	outcome, err = store.ApplySecret(ctx, spec)
	require.NoError(t, err)
	assert.Equal(t, provisioning.OutcomeUnchanged, outcome)

	spec.StringData["identity"] = "rotated"
	outcome, err = store.ApplySecret(ctx, spec)
	require.NoError(t, err)
	assert.Equal(t, provisioning.OutcomeUpdated, outcome)

	secret := &corev1.Secret{}
	require.NoError(t, c.Get(ctx, client.ObjectKey{Namespace: "flux-system", Name: "ai-team-flux-secret"}, secret))
	assert.Equal(t, []byte("rotated"), secret.Data["identity"])
	assert.Equal(t, corev1.SecretTypeOpaque, secret.Type)
	assert.Equal(t, "ai-team", secret.Labels[LabelTenant])
}

func TestGetSecret(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store, _ := newFakeStore(&corev1.Secret{
		ObjectMeta: metav1.ObjectMeta{Name: "flux-system", Namespace: "flux-system"},
		Data:       map[string][]byte{"identity": []byte("pem")},
	})

	data, err := store.GetSecret(ctx, "flux-system", "flux-system")
	require.NoError(t, err)
	assert.Equal(t, []byte("pem"), data["identity"])

	data, err = store.GetSecret(ctx, "flux-system", "missing")
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestApplyRoleBinding(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	spec := RoleBindingSpec{
		Name:        "ai-admins-admin",
		Namespace:   "ai",
		ClusterRole: "admin",
		Group:       "ai-admins",
	}

	t.Run("create and converge", func(t *testing.T) {
		t.Parallel()
		store, c := newFakeStore()

		outcome, err := store.ApplyRoleBinding(ctx, spec)
		require.NoError(t, err)
		assert.Equal(t, provisioning.OutcomeCreated, outcome)

		rb := &rbacv1.RoleBinding{}
		require.NoError(t, c.Get(ctx, client.ObjectKey{Namespace: "ai", Name: "ai-admins-admin"}, rb))
		assert.Equal(t, "admin", rb.RoleRef.Name)
		assert.Equal(t, "ClusterRole", rb.RoleRef.Kind)
		require.Len(t, rb.Subjects, 1)
		assert.Equal(t, rbacv1.GroupKind, rb.Subjects[0].Kind)
		assert.Equal(t, "ai-admins", rb.Subjects[0].Name)

		outcome, err = store.ApplyRoleBinding(ctx, spec)
		require.NoError(t, err)
		assert.Equal(t, provisioning.OutcomeUnchanged, outcome)
	})

	t.Run("different roleRef conflicts", func(t *testing.T) {
		t.Parallel()
		store, _ := newFakeStore(&rbacv1.RoleBinding{
			ObjectMeta: metav1.ObjectMeta{Name: "ai-admins-admin", Namespace: "ai"},
			RoleRef:    rbacv1.RoleRef{APIGroup: rbacv1.GroupName, Kind: "ClusterRole", Name: "view"},
		})

		_, err := store.ApplyRoleBinding(ctx, spec)
		assert.ErrorIs(t, err, provisioning.ErrNamespaceConflict)
	})
}
