package gitops

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"helm.sh/helm/v3/pkg/chart"

	"github.com/imamik/fluxtenancy/internal/addons/helm"
	"github.com/imamik/fluxtenancy/internal/k8s"
	"github.com/imamik/fluxtenancy/internal/provisioning"
	"github.com/imamik/fluxtenancy/internal/util/keygen"
)

const (
	// SystemName names the Flux secret and sync binding for the admin repository.
	SystemName = "flux-system"
	// ReleaseName is the Helm release name the Flux chart renders under.
	ReleaseName = "flux"
	// DefaultCRDTimeout bounds the wait for Flux CRDs after the chart is applied.
	DefaultCRDTimeout = 2 * time.Minute
)

// Secret keys read by Flux's source-controller for SSH remotes.
const (
	SecretKeyIdentity    = "identity"
	SecretKeyIdentityPub = "identity.pub"
	SecretKeyKnownHosts  = "known_hosts"
)

// CRDs that must be established before sync objects can be applied.
var CRDs = []string{
	"gitrepositories.source.toolkit.fluxcd.io",
	"kustomizations.kustomize.toolkit.fluxcd.io",
}

// ClusterConfig identifies the cluster the agent is installed into.
type ClusterConfig struct {
	Kubeconfig string
	Context    string
}

// GitRemote is the repository the agent pulls from.
type GitRemote struct {
	URL           string
	Branch        string
	Username      string
	PrivateKeyPEM []byte
}

// Provider is a configured connection between a cluster and a Git remote.
type Provider struct {
	Cluster ClusterConfig
	Remote  GitRemote
	keys    *keygen.KeyPair
}

// Agent is the GitOps control plane.
type Agent interface {
	ConfigureProvider(ctx context.Context, cluster ClusterConfig, remote GitRemote) (*Provider, provisioning.Outcome, error)
	Bootstrap(ctx context.Context, p *Provider, path string) (provisioning.Outcome, error)
	RenderSyncManifests(req SyncRequest) (*SyncManifests, error)
}

// ChartLoader fetches the Flux chart.
type ChartLoader func(ctx context.Context, spec helm.ChartSpec) (*chart.Chart, error)

// Flux implements Agent by rendering the Flux Helm chart into the cluster.
type Flux struct {
	cluster    k8s.Store
	chart      helm.ChartSpec
	values     helm.Values
	namespace  string
	knownHosts string
	crdTimeout time.Duration
	loadChart  ChartLoader
	log        logr.Logger
}

// Option configures a Flux agent.
type Option func(*Flux)

// WithChart overrides the Flux chart.
func WithChart(spec helm.ChartSpec) Option {
	return func(f *Flux) {
		f.chart = spec
	}
}

// WithValues sets chart values merged over the chart defaults.
func WithValues(values helm.Values) Option {
	return func(f *Flux) {
		f.values = values
	}
}

// WithNamespace sets the namespace Flux is installed into.
func WithNamespace(ns string) Option {
	return func(f *Flux) {
		f.namespace = ns
	}
}

// WithKnownHosts sets the known_hosts entry written to credential secrets.
func WithKnownHosts(knownHosts string) Option {
	return func(f *Flux) {
		f.knownHosts = knownHosts
	}
}

// WithCRDTimeout bounds the wait for Flux CRDs.
func WithCRDTimeout(d time.Duration) Option {
	return func(f *Flux) {
		f.crdTimeout = d
	}
}

// WithChartLoader replaces the chart download, mainly for tests.
func WithChartLoader(loader ChartLoader) Option {
	return func(f *Flux) {
		f.loadChart = loader
	}
}

// WithLogger sets the logger.
func WithLogger(log logr.Logger) Option {
	return func(f *Flux) {
		f.log = log
	}
}

// NewFlux creates a Flux agent installing into cluster.
func NewFlux(cluster k8s.Store, opts ...Option) *Flux {
	f := &Flux{
		cluster:    cluster,
		namespace:  SystemName,
		crdTimeout: DefaultCRDTimeout,
		loadChart:  helm.DownloadChart,
		log:        logr.Discard(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Namespace returns the namespace Flux runs in.
func (f *Flux) Namespace() string {
	return f.namespace
}

// ConfigureProvider checks the remote and its credentials. Nothing is written
// to the cluster; the returned Provider carries what Bootstrap needs.
func (f *Flux) ConfigureProvider(_ context.Context, cluster ClusterConfig, remote GitRemote) (*Provider, provisioning.Outcome, error) {
	if !strings.HasPrefix(remote.URL, "ssh://") {
		return nil, provisioning.OutcomeFailed, fmt.Errorf("git remote %q must be an ssh:// URL", remote.URL)
	}
	if remote.Branch == "" {
		return nil, provisioning.OutcomeFailed, fmt.Errorf("git remote %s has no branch", remote.URL)
	}
	if remote.Username == "" {
		remote.Username = "git"
	}

	keys, err := keygen.ParseKeyPair(remote.PrivateKeyPEM)
	if err != nil {
		return nil, provisioning.OutcomeFailed, fmt.Errorf("failed to parse git identity: %w", err)
	}

	return &Provider{Cluster: cluster, Remote: remote, keys: keys}, provisioning.OutcomeReady, nil
}

// Bootstrap installs Flux and points it at path in the provider's remote.
func (f *Flux) Bootstrap(ctx context.Context, p *Provider, path string) (provisioning.Outcome, error) {
	if p == nil || p.keys == nil {
		return provisioning.OutcomeFailed, fmt.Errorf("flux provider is not configured")
	}

	var outcomes []provisioning.Outcome

	outcome, err := f.cluster.ApplyNamespace(ctx, k8s.NamespaceSpec{Name: f.namespace})
	if err != nil {
		return provisioning.OutcomeFailed, err
	}
	outcomes = append(outcomes, outcome)

	f.log.V(1).Info("Rendering Flux chart", "chart", f.chart.String())
	ch, err := f.loadChart(ctx, f.chart)
	if err != nil {
		return provisioning.OutcomeFailed, fmt.Errorf("failed to load flux chart: %w", err)
	}
	components, err := helm.Render(ch, helm.Release{Name: ReleaseName, Namespace: f.namespace}, f.values)
	if err != nil {
		return provisioning.OutcomeFailed, fmt.Errorf("failed to render flux chart: %w", err)
	}

	outcome, err = f.cluster.ApplyManifests(ctx, components)
	if err != nil {
		return provisioning.OutcomeFailed, fmt.Errorf("failed to apply flux components: %w", err)
	}
	outcomes = append(outcomes, outcome)

	f.log.V(1).Info("Waiting for Flux CRDs", "crds", CRDs)
	if err := f.cluster.WaitForCRDs(ctx, CRDs, f.crdTimeout); err != nil {
		return provisioning.OutcomeFailed, err
	}

	outcome, err = f.cluster.ApplySecret(ctx, k8s.SecretSpec{
		Name:       SystemName,
		Namespace:  f.namespace,
		StringData: CredentialData(p.keys, f.knownHosts),
	})
	if err != nil {
		return provisioning.OutcomeFailed, err
	}
	outcomes = append(outcomes, outcome)

	sync, err := f.RenderSyncManifests(SyncRequest{
		Name:       SystemName,
		Namespace:  f.namespace,
		URL:        p.Remote.URL,
		Branch:     p.Remote.Branch,
		Path:       path,
		SecretName: SystemName,
	})
	if err != nil {
		return provisioning.OutcomeFailed, err
	}

	outcome, err = f.cluster.ApplyManifests(ctx, sync.Content)
	if err != nil {
		return provisioning.OutcomeFailed, fmt.Errorf("failed to apply flux-system sync: %w", err)
	}
	outcomes = append(outcomes, outcome)

	return combine(outcomes...), nil
}

// RenderSyncManifests renders a sync binding in the agent's namespace.
func (f *Flux) RenderSyncManifests(req SyncRequest) (*SyncManifests, error) {
	if req.Namespace == "" {
		req.Namespace = f.namespace
	}
	return RenderSyncManifests(req)
}

// CredentialData returns the secret data Flux expects for an SSH remote.
func CredentialData(keys *keygen.KeyPair, knownHosts string) map[string]string {
	return map[string]string{
		SecretKeyIdentity:    string(keys.PrivateKeyPEM),
		SecretKeyIdentityPub: string(keys.PublicKeyPEM),
		SecretKeyKnownHosts:  knownHosts,
	}
}

// combine folds the outcomes of several writes into one. A fresh install
// reports created; a fully converged one reports unchanged.
func combine(outcomes ...provisioning.Outcome) provisioning.Outcome {
	allCreated := len(outcomes) > 0
	changed := false
	for _, o := range outcomes {
		if o != provisioning.OutcomeCreated {
			allCreated = false
		}
		if o == provisioning.OutcomeCreated || o == provisioning.OutcomeUpdated {
			changed = true
		}
	}
	switch {
	case allCreated:
		return provisioning.OutcomeCreated
	case changed:
		return provisioning.OutcomeUpdated
	default:
		return provisioning.OutcomeUnchanged
	}
}
