package testing

import (
	"context"
	"fmt"

	"helm.sh/helm/v3/pkg/chart"

	"github.com/imamik/fluxtenancy/internal/addons/helm"
	"github.com/imamik/fluxtenancy/internal/config"
	"github.com/imamik/fluxtenancy/internal/gitops"
)

const crdTemplate = `apiVersion: apiextensions.k8s.io/v1
kind: CustomResourceDefinition
metadata:
  name: %s
spec:
  group: %s
  names:
    kind: %s
`

const controllerTemplate = `apiVersion: apps/v1
kind: Deployment
metadata:
  name: {{ .Values.name }}
  namespace: {{ .Release.Namespace }}
spec:
  replicas: 1
`

// FluxChart returns a minimal Flux chart carrying the source and kustomize CRDs.
func FluxChart() *chart.Chart {
	return &chart.Chart{
		Metadata: &chart.Metadata{
			APIVersion: chart.APIVersionV2,
			Name:       config.DefaultChartName,
			Version:    config.DefaultChartVersion,
		},
		Templates: []*chart.File{
			{Name: "templates/source-controller.yaml", Data: []byte(controllerTemplate)},
		},
		Files: []*chart.File{
			{Name: "crds/gitrepositories.yaml", Data: []byte(fmt.Sprintf(crdTemplate,
				"gitrepositories.source.toolkit.fluxcd.io", "source.toolkit.fluxcd.io", "GitRepository"))},
			{Name: "crds/kustomizations.yaml", Data: []byte(fmt.Sprintf(crdTemplate,
				"kustomizations.kustomize.toolkit.fluxcd.io", "kustomize.toolkit.fluxcd.io", "Kustomization"))},
		},
		Values: map[string]any{"name": "source-controller"},
	}
}

// FluxChartLoader is a gitops.ChartLoader serving FluxChart.
func FluxChartLoader(ctx context.Context, _ helm.ChartSpec) (*chart.Chart, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return FluxChart(), nil
}

// Fixture bundles the fakes of one simulated environment.
type Fixture struct {
	Source  *FakeSourceHost
	Cluster *FakeStore
	Agent   *gitops.Flux
}

// NewFixture creates an empty environment for owner with the given teams.
func NewFixture(owner string, teams ...string) *Fixture {
	cluster := NewFakeStore()
	return &Fixture{
		Source:  NewFakeSourceHost(owner, teams...),
		Cluster: cluster,
		Agent: gitops.NewFlux(cluster,
			gitops.WithChartLoader(FluxChartLoader),
			gitops.WithKnownHosts(config.DefaultKnownHosts),
		),
	}
}
