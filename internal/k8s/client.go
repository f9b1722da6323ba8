package k8s

import (
	"context"
	"fmt"
	"time"

	"k8s.io/apimachinery/pkg/runtime"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	"k8s.io/client-go/tools/clientcmd"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/imamik/fluxtenancy/internal/provisioning"
	"github.com/imamik/fluxtenancy/internal/util/labels"
)

// Labels set on every object fluxtenancy manages.
const (
	LabelManagedBy = labels.KeyManagedBy
	LabelTenant    = labels.KeyTenant
	ManagedBy      = labels.ManagedBy

	// FieldOwner identifies fluxtenancy in managed fields.
	FieldOwner = "fluxtenancy"
)

// Store is the cluster capability used by tenant provisioning and the Flux agent.
type Store interface {
	ApplyNamespace(ctx context.Context, spec NamespaceSpec) (provisioning.Outcome, error)
	ApplySecret(ctx context.Context, spec SecretSpec) (provisioning.Outcome, error)
	ApplyRoleBinding(ctx context.Context, spec RoleBindingSpec) (provisioning.Outcome, error)
	ApplyManifests(ctx context.Context, manifests []byte) (provisioning.Outcome, error)
	// GetSecret returns the secret data, or nil when the secret does not exist.
	GetSecret(ctx context.Context, namespace, name string) (map[string][]byte, error)
	WaitForCRDs(ctx context.Context, names []string, timeout time.Duration) error
}

// Client implements Store on top of a controller-runtime client.
type Client struct {
	c            client.Client
	pollInterval time.Duration
}

var _ Store = (*Client)(nil)

// NewScheme returns the scheme with the built-in Kubernetes types.
func NewScheme() *runtime.Scheme {
	scheme := runtime.NewScheme()
	_ = clientgoscheme.AddToScheme(scheme)
	return scheme
}

// NewClient connects to the cluster selected by kubeconfigPath and kubeContext.
// An empty context uses the kubeconfig's current context.
func NewClient(kubeconfigPath, kubeContext string) (*Client, error) {
	loader := &clientcmd.ClientConfigLoadingRules{ExplicitPath: kubeconfigPath}
	overrides := &clientcmd.ConfigOverrides{CurrentContext: kubeContext}

	restCfg, err := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(loader, overrides).ClientConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load kubeconfig: %w", err)
	}
	restCfg.Timeout = 30 * time.Second

	c, err := client.New(restCfg, client.Options{Scheme: NewScheme()})
	if err != nil {
		return nil, fmt.Errorf("failed to create kubernetes client: %w", err)
	}

	return New(c), nil
}

// New wraps an existing controller-runtime client.
func New(c client.Client) *Client {
	return &Client{c: c, pollInterval: 2 * time.Second}
}
