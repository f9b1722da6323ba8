package gitops

import (
	"bytes"
	"embed"
	"fmt"
	"slices"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"sigs.k8s.io/yaml"

	"github.com/imamik/fluxtenancy/internal/util/labels"
)

//go:embed templates/*.tmpl
var templates embed.FS

var syncTemplate = template.Must(
	template.New("sync.yaml.tmpl").
		Funcs(sprig.TxtFuncMap()).
		Funcs(template.FuncMap{"toYaml": toYAML}).
		ParseFS(templates, "templates/sync.yaml.tmpl"),
)

// SyncRequest describes the sync binding to render.
type SyncRequest struct {
	// Name of both the GitRepository and the Kustomization.
	Name      string
	Namespace string
	URL       string
	Branch    string
	// Path inside the repository the Kustomization reconciles.
	Path       string
	SecretName string
	// Interval and KustomizationInterval default to 1m0s and 10m0s.
	Interval              string
	KustomizationInterval string
	Tenant                string
}

// SyncManifests is a rendered sync binding, ready to apply.
type SyncManifests struct {
	Content         []byte
	SecretName      string
	SecretNamespace string
}

// GitHubSSHURL returns the SSH clone URL Flux uses for a GitHub repository.
func GitHubSSHURL(owner, repo string) string {
	return fmt.Sprintf("ssh://git@github.com/%s/%s.git", owner, repo)
}

// RenderSyncManifests renders the GitRepository and Kustomization for req.
func RenderSyncManifests(req SyncRequest) (*SyncManifests, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	data := struct {
		SyncRequest
		Labels map[string]string
	}{req, labels.NewLabelBuilder().WithTenant(req.Tenant).Build()}

	var buf bytes.Buffer
	if err := syncTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to render sync manifests for %s: %w", req.Name, err)
	}

	return &SyncManifests{
		Content:         buf.Bytes(),
		SecretName:      req.SecretName,
		SecretNamespace: req.Namespace,
	}, nil
}

func (r SyncRequest) validate() error {
	var missing []string
	for field, value := range map[string]string{
		"name":       r.Name,
		"namespace":  r.Namespace,
		"url":        r.URL,
		"branch":     r.Branch,
		"path":       r.Path,
		"secretName": r.SecretName,
	} {
		if value == "" {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return fmt.Errorf("sync request is missing %s", strings.Join(missing, ", "))
	}
	return nil
}

func toYAML(v any) string {
	data, err := yaml.Marshal(v)
	if err != nil {
		return ""
	}
	return strings.TrimSuffix(string(data), "\n")
}
