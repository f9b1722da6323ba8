package k8s

import (
	"context"
	"fmt"
	"maps"
	"slices"

	corev1 "k8s.io/api/core/v1"
	rbacv1 "k8s.io/api/rbac/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/controller/controllerutil"

	"github.com/imamik/fluxtenancy/internal/provisioning"
	"github.com/imamik/fluxtenancy/internal/util/labels"
)

// NamespaceSpec describes a tenant namespace.
type NamespaceSpec struct {
	Name string
	// Tenant owning the namespace. Empty for system namespaces.
	Tenant string
	Labels map[string]string
}

// SecretSpec describes an Opaque secret.
type SecretSpec struct {
	Name       string
	Namespace  string
	StringData map[string]string
	Labels     map[string]string
}

// RoleBindingSpec binds a ClusterRole to a group within one namespace.
type RoleBindingSpec struct {
	Name        string
	Namespace   string
	ClusterRole string
	Group       string
	Labels      map[string]string
}

// ApplyNamespace creates the namespace or brings its labels up to date.
// A namespace labelled for a different tenant fails with ErrNamespaceConflict.
func (k *Client) ApplyNamespace(ctx context.Context, spec NamespaceSpec) (provisioning.Outcome, error) {
	ns := &corev1.Namespace{ObjectMeta: metav1.ObjectMeta{Name: spec.Name}}

	desired := labels.NewLabelBuilder().Merge(spec.Labels).WithTenant(spec.Tenant).Build()

	adopted := false
	result, err := controllerutil.CreateOrUpdate(ctx, k.c, ns, func() error {
		if ns.ResourceVersion != "" {
			current, ok := labels.TenantOf(ns.Labels)
			if ok && current != spec.Tenant {
				return fmt.Errorf("%w: namespace %s belongs to tenant %q", provisioning.ErrNamespaceConflict, spec.Name, current)
			}
			adopted = !labels.IsManaged(ns.Labels)
		}
		ns.Labels = labels.Apply(ns.Labels, desired)
		return nil
	})
	if err != nil {
		return provisioning.OutcomeFailed, fmt.Errorf("failed to apply namespace %s: %w", spec.Name, err)
	}

	if adopted {
		return provisioning.OutcomeAdopted, nil
	}
	return outcomeOf(result), nil
}

// ApplySecret creates the secret or replaces its data when it differs.
func (k *Client) ApplySecret(ctx context.Context, spec SecretSpec) (provisioning.Outcome, error) {
	secret := &corev1.Secret{ObjectMeta: metav1.ObjectMeta{Name: spec.Name, Namespace: spec.Namespace}}

	data := make(map[string][]byte, len(spec.StringData))
	for key, v := range spec.StringData {
		data[key] = []byte(v)
	}

	result, err := controllerutil.CreateOrUpdate(ctx, k.c, secret, func() error {
		secret.Labels = labels.Apply(secret.Labels, labels.NewLabelBuilder().Merge(spec.Labels).Build())
		secret.Type = corev1.SecretTypeOpaque
		if !maps.EqualFunc(secret.Data, data, slices.Equal) {
			secret.Data = data
		}
		return nil
	})
	if err != nil {
		return provisioning.OutcomeFailed, fmt.Errorf("failed to apply secret %s/%s: %w", spec.Namespace, spec.Name, err)
	}
	return outcomeOf(result), nil
}

// ApplyRoleBinding creates the binding or updates its subjects.
// A binding with the same name but a different roleRef fails with ErrNamespaceConflict,
// since roleRef cannot be changed in place.
func (k *Client) ApplyRoleBinding(ctx context.Context, spec RoleBindingSpec) (provisioning.Outcome, error) {
	rb := &rbacv1.RoleBinding{ObjectMeta: metav1.ObjectMeta{Name: spec.Name, Namespace: spec.Namespace}}

	roleRef := rbacv1.RoleRef{
		APIGroup: rbacv1.GroupName,
		Kind:     "ClusterRole",
		Name:     spec.ClusterRole,
	}
	subjects := []rbacv1.Subject{{
		Kind:     rbacv1.GroupKind,
		APIGroup: rbacv1.GroupName,
		Name:     spec.Group,
	}}

	result, err := controllerutil.CreateOrUpdate(ctx, k.c, rb, func() error {
		if rb.ResourceVersion != "" && rb.RoleRef != roleRef {
			return fmt.Errorf("%w: rolebinding %s/%s refers to %s %s", provisioning.ErrNamespaceConflict,
				spec.Namespace, spec.Name, rb.RoleRef.Kind, rb.RoleRef.Name)
		}
		rb.Labels = labels.Apply(rb.Labels, labels.NewLabelBuilder().Merge(spec.Labels).Build())
		rb.RoleRef = roleRef
		if !slices.Equal(rb.Subjects, subjects) {
			rb.Subjects = subjects
		}
		return nil
	})
	if err != nil {
		return provisioning.OutcomeFailed, fmt.Errorf("failed to apply rolebinding %s/%s: %w", spec.Namespace, spec.Name, err)
	}
	return outcomeOf(result), nil
}

// GetSecret returns the secret data, or nil when the secret does not exist.
func (k *Client) GetSecret(ctx context.Context, namespace, name string) (map[string][]byte, error) {
	secret := &corev1.Secret{}
	if err := k.c.Get(ctx, client.ObjectKey{Namespace: namespace, Name: name}, secret); err != nil {
		if apierrors.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get secret %s/%s: %w", namespace, name, err)
	}
	return secret.Data, nil
}

func outcomeOf(result controllerutil.OperationResult) provisioning.Outcome {
	switch result {
	case controllerutil.OperationResultCreated:
		return provisioning.OutcomeCreated
	case controllerutil.OperationResultNone:
		return provisioning.OutcomeUnchanged
	default:
		return provisioning.OutcomeUpdated
	}
}
