package testing

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"k8s.io/apimachinery/pkg/api/equality"

	"github.com/imamik/fluxtenancy/internal/k8s"
	"github.com/imamik/fluxtenancy/internal/provisioning"
	"github.com/imamik/fluxtenancy/internal/util/labels"
)

// FakeStore is an in-memory k8s.Store.
type FakeStore struct {
	mu           sync.Mutex
	namespaces   map[string]map[string]string
	secrets      map[string]map[string][]byte
	roleBindings map[string]k8s.RoleBindingSpec
	objects      map[string]map[string]any
	crdErr       error
	fail         map[string]error
	calls        []string
}

var _ k8s.Store = (*FakeStore)(nil)

// NewFakeStore creates an empty cluster.
func NewFakeStore() *FakeStore {
	return &FakeStore{
		namespaces:   make(map[string]map[string]string),
		secrets:      make(map[string]map[string][]byte),
		roleBindings: make(map[string]k8s.RoleBindingSpec),
		objects:      make(map[string]map[string]any),
		fail:         make(map[string]error),
	}
}

// SeedNamespace adds a namespace that existed before the run.
func (s *FakeStore) SeedNamespace(name string, labels map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.namespaces[name] = maps.Clone(labels)
}

// SeedSecret adds a secret that existed before the run.
func (s *FakeStore) SeedSecret(namespace, name string, data map[string][]byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.secrets[namespace+"/"+name] = maps.Clone(data)
}

// FailOn makes op ("namespace", "secret", "rolebinding", "manifests") fail
// with err for the named object. For manifests the name is the first
// object's "Kind/namespace/name".
func (s *FakeStore) FailOn(op, name string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail[op+"/"+name] = err
}

// FailCRDWait makes WaitForCRDs return err.
func (s *FakeStore) FailCRDWait(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.crdErr = err
}

// Namespace returns the labels of a namespace.
func (s *FakeStore) Namespace(name string) (map[string]string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	labels, ok := s.namespaces[name]
	return maps.Clone(labels), ok
}

// RoleBinding returns a stored role binding.
func (s *FakeStore) RoleBinding(namespace, name string) (k8s.RoleBindingSpec, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rb, ok := s.roleBindings[namespace+"/"+name]
	return rb, ok
}

// Object returns a stored manifest object keyed "Kind/namespace/name".
func (s *FakeStore) Object(key string) (map[string]any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	obj, ok := s.objects[key]
	return obj, ok
}

// ObjectKeys returns the keys of every stored manifest object, sorted.
func (s *FakeStore) ObjectKeys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := slices.Collect(maps.Keys(s.objects))
	slices.Sort(keys)
	return keys
}

// Calls returns every operation in call order, formatted "op/name".
func (s *FakeStore) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.calls)
}

// ApplyNamespace implements k8s.Store.
func (s *FakeStore) ApplyNamespace(_ context.Context, spec k8s.NamespaceSpec) (provisioning.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("namespace", spec.Name); err != nil {
		return provisioning.OutcomeFailed, err
	}

	desired := labels.NewLabelBuilder().Merge(spec.Labels).WithTenant(spec.Tenant).Build()

	current, ok := s.namespaces[spec.Name]
	if !ok {
		s.namespaces[spec.Name] = desired
		return provisioning.OutcomeCreated, nil
	}
	if owner, labelled := labels.TenantOf(current); labelled && owner != spec.Tenant {
		return provisioning.OutcomeFailed, fmt.Errorf("%w: namespace %s belongs to tenant %q", provisioning.ErrNamespaceConflict, spec.Name, owner)
	}

	adopted := !labels.IsManaged(current)
	merged := labels.Apply(current, desired)
	s.namespaces[spec.Name] = merged

	switch {
	case adopted:
		return provisioning.OutcomeAdopted, nil
	case maps.Equal(current, merged):
		return provisioning.OutcomeUnchanged, nil
	default:
		return provisioning.OutcomeUpdated, nil
	}
}

// ApplySecret implements k8s.Store.
func (s *FakeStore) ApplySecret(_ context.Context, spec k8s.SecretSpec) (provisioning.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := spec.Namespace + "/" + spec.Name
	if err := s.record("secret", key); err != nil {
		return provisioning.OutcomeFailed, err
	}
	if _, ok := s.namespaces[spec.Namespace]; !ok {
		return provisioning.OutcomeFailed, fmt.Errorf("namespace %s not found", spec.Namespace)
	}

	data := make(map[string][]byte, len(spec.StringData))
	for k, v := range spec.StringData {
		data[k] = []byte(v)
	}

	current, ok := s.secrets[key]
	s.secrets[key] = data
	switch {
	case !ok:
		return provisioning.OutcomeCreated, nil
	case maps.EqualFunc(current, data, slices.Equal):
		return provisioning.OutcomeUnchanged, nil
	default:
		return provisioning.OutcomeUpdated, nil
	}
}

// ApplyRoleBinding implements k8s.Store.
func (s *FakeStore) ApplyRoleBinding(_ context.Context, spec k8s.RoleBindingSpec) (provisioning.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := spec.Namespace + "/" + spec.Name
	if err := s.record("rolebinding", key); err != nil {
		return provisioning.OutcomeFailed, err
	}
	if _, ok := s.namespaces[spec.Namespace]; !ok {
		return provisioning.OutcomeFailed, fmt.Errorf("namespace %s not found", spec.Namespace)
	}

	current, ok := s.roleBindings[key]
	if ok && current.ClusterRole != spec.ClusterRole {
		return provisioning.OutcomeFailed, fmt.Errorf("%w: rolebinding %s refers to ClusterRole %s", provisioning.ErrNamespaceConflict, key, current.ClusterRole)
	}
	s.roleBindings[key] = spec
	switch {
	case !ok:
		return provisioning.OutcomeCreated, nil
	case current.Group == spec.Group:
		return provisioning.OutcomeUnchanged, nil
	default:
		return provisioning.OutcomeUpdated, nil
	}
}

// ApplyManifests implements k8s.Store.
func (s *FakeStore) ApplyManifests(_ context.Context, manifests []byte) (provisioning.Outcome, error) {
	objs, err := k8s.DecodeManifests(manifests)
	if err != nil {
		return provisioning.OutcomeFailed, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(objs) > 0 {
		first := objs[0]
		if err := s.record("manifests", objectKey(first.GetKind(), first.GetNamespace(), first.GetName())); err != nil {
			return provisioning.OutcomeFailed, err
		}
	}

	created, changed := 0, 0
	for _, obj := range objs {
		key := objectKey(obj.GetKind(), obj.GetNamespace(), obj.GetName())
		current, ok := s.objects[key]
		switch {
		case !ok:
			created++
		case !equality.Semantic.DeepEqual(current, obj.Object):
			changed++
		}
		s.objects[key] = obj.Object
	}

	switch {
	case len(objs) > 0 && created == len(objs):
		return provisioning.OutcomeCreated, nil
	case created == 0 && changed == 0:
		return provisioning.OutcomeUnchanged, nil
	default:
		return provisioning.OutcomeUpdated, nil
	}
}

// GetSecret implements k8s.Store.
func (s *FakeStore) GetSecret(_ context.Context, namespace, name string) (map[string][]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := namespace + "/" + name
	if err := s.record("get-secret", key); err != nil {
		return nil, err
	}
	data, ok := s.secrets[key]
	if !ok {
		return nil, nil
	}
	return maps.Clone(data), nil
}

// WaitForCRDs implements k8s.Store. CRDs count as established once a
// CustomResourceDefinition with that name has been applied.
func (s *FakeStore) WaitForCRDs(_ context.Context, names []string, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, "wait-crds")
	if s.crdErr != nil {
		return s.crdErr
	}
	for _, name := range names {
		if _, ok := s.objects[objectKey("CustomResourceDefinition", "", name)]; !ok {
			return fmt.Errorf("timed out waiting for CRD %s", name)
		}
	}
	return nil
}

func (s *FakeStore) record(op, name string) error {
	key := op + "/" + name
	s.calls = append(s.calls, key)
	return s.fail[key]
}

func objectKey(kind, namespace, name string) string {
	return fmt.Sprintf("%s/%s/%s", kind, namespace, name)
}
