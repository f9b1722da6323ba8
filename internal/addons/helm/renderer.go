package helm

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"helm.sh/helm/v3/pkg/chart"
	"helm.sh/helm/v3/pkg/chartutil"
	"helm.sh/helm/v3/pkg/engine"
)

// KubeVersion is the Kubernetes version advertised to chart templates.
const KubeVersion = "v1.31.0"

// Release names the rendered release and its target namespace.
type Release struct {
	Name      string
	Namespace string
}

// RenderFromSpec downloads a chart and renders it with the provided values.
func RenderFromSpec(ctx context.Context, spec ChartSpec, release Release, values Values) ([]byte, error) {
	ch, err := DownloadChart(ctx, spec)
	if err != nil {
		return nil, fmt.Errorf("failed to download chart: %w", err)
	}

	manifests, err := Render(ch, release, values)
	if err != nil {
		return nil, fmt.Errorf("failed to render chart %s: %w", spec, err)
	}

	return manifests, nil
}

// Render runs the template engine over ch and returns a multi-document YAML
// stream. CRDs from the chart's crds/ directory come first, followed by the
// rendered templates in file-name order.
func Render(ch *chart.Chart, release Release, values Values) ([]byte, error) {
	if ch == nil || ch.Metadata == nil {
		return nil, fmt.Errorf("chart is not loaded")
	}

	// Nested objects in chart defaults must survive partial overrides.
	merged := deepMerge(Values(ch.Values), values)

	releaseOptions := chartutil.ReleaseOptions{
		Name:      release.Name,
		Namespace: release.Namespace,
		IsInstall: true,
	}

	capabilities := chartutil.DefaultCapabilities.Copy()
	capabilities.KubeVersion.Version = KubeVersion
	capabilities.KubeVersion.Major = "1"
	capabilities.KubeVersion.Minor = "31"

	valuesToRender, err := chartutil.ToRenderValues(ch, chartutil.Values(merged.ToMap()), releaseOptions, capabilities)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare values: %w", err)
	}

	eng := engine.Engine{}
	rendered, err := eng.Render(ch, valuesToRender)
	if err != nil {
		return nil, fmt.Errorf("failed to render templates: %w", err)
	}

	var combined bytes.Buffer
	for _, crd := range ch.CRDObjects() {
		appendDocument(&combined, string(crd.File.Data))
	}

	names := make([]string, 0, len(rendered))
	for name := range rendered {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		base := filepath.Base(name)
		if base == "NOTES.txt" || strings.HasPrefix(base, "_") {
			continue
		}
		appendDocument(&combined, rendered[name])
	}

	return combined.Bytes(), nil
}

func appendDocument(buf *bytes.Buffer, content string) {
	trimmed := strings.TrimSpace(content)
	trimmed = strings.TrimPrefix(trimmed, "---")
	trimmed = strings.TrimSpace(trimmed)
	if trimmed == "" {
		return
	}
	if buf.Len() > 0 {
		buf.WriteString("---\n")
	}
	buf.WriteString(trimmed)
	buf.WriteString("\n")
}
