package labels

// Standard label keys.
const (
	// KeyManagedBy identifies the management system.
	KeyManagedBy = "app.kubernetes.io/managed-by"

	// KeyTenant identifies the tenant owning an object.
	KeyTenant = "fluxtenancy.io/tenant"
)

// ManagedBy is the value of KeyManagedBy on objects fluxtenancy created or adopted.
const ManagedBy = "fluxtenancy"

// LabelBuilder provides a fluent interface for building object labels.
type LabelBuilder struct {
	labels map[string]string
}

// NewLabelBuilder creates a builder with the managed-by label pre-set.
func NewLabelBuilder() *LabelBuilder {
	return &LabelBuilder{
		labels: map[string]string{KeyManagedBy: ManagedBy},
	}
}

// WithTenant adds the tenant label. An empty tenant is ignored.
func (lb *LabelBuilder) WithTenant(tenant string) *LabelBuilder {
	if tenant != "" {
		lb.labels[KeyTenant] = tenant
	}
	return lb
}

// Merge adds all labels from the provided map. The managed-by and tenant
// labels cannot be overridden.
func (lb *LabelBuilder) Merge(extra map[string]string) *LabelBuilder {
	for k, v := range extra {
		if _, reserved := lb.labels[k]; reserved && (k == KeyManagedBy || k == KeyTenant) {
			continue
		}
		lb.labels[k] = v
	}
	return lb
}

// Build returns a copy of the labels map.
func (lb *LabelBuilder) Build() map[string]string {
	result := make(map[string]string, len(lb.labels))
	for k, v := range lb.labels {
		result[k] = v
	}
	return result
}

// IsManaged reports whether labels mark an object as managed by fluxtenancy.
func IsManaged(labels map[string]string) bool {
	return labels[KeyManagedBy] == ManagedBy
}

// TenantOf returns the tenant an object is labelled for.
func TenantOf(labels map[string]string) (string, bool) {
	t, ok := labels[KeyTenant]
	return t, ok
}

// Apply merges desired into current and returns the result. current is not modified.
func Apply(current, desired map[string]string) map[string]string {
	result := make(map[string]string, len(current)+len(desired))
	for k, v := range current {
		result[k] = v
	}
	for k, v := range desired {
		result[k] = v
	}
	return result
}
