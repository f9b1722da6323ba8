package helm

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"helm.sh/helm/v3/pkg/chart"
	"helm.sh/helm/v3/pkg/chart/loader"
	"helm.sh/helm/v3/pkg/cli"
	"helm.sh/helm/v3/pkg/getter"
	"helm.sh/helm/v3/pkg/repo"
)

// ChartSpec identifies a chart in an HTTP chart repository.
type ChartSpec struct {
	Repository string `yaml:"repository"`
	Name       string `yaml:"name"`
	Version    string `yaml:"version"`
}

func (s ChartSpec) String() string {
	return fmt.Sprintf("%s/%s@%s", s.Repository, s.Name, s.Version)
}

func (s ChartSpec) archiveName() string {
	return fmt.Sprintf("%s-%s.tgz", s.Name, s.Version)
}

// CacheDir returns the directory downloaded chart archives are kept in.
func CacheDir() string {
	if dir := os.Getenv("FLUXTENANCY_CHART_CACHE"); dir != "" {
		return dir
	}
	base, err := os.UserCacheDir()
	if err != nil {
		base = os.TempDir()
	}
	return filepath.Join(base, "fluxtenancy", "charts")
}

// DownloadChart fetches the chart described by spec, reusing a cached
// archive when one exists for the same name and version.
func DownloadChart(ctx context.Context, spec ChartSpec) (*chart.Chart, error) {
	if spec.Repository == "" || spec.Name == "" {
		return nil, fmt.Errorf("chart repository and name are required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cacheDir := CacheDir()
	cached := filepath.Join(cacheDir, spec.archiveName())
	if spec.Version != "" {
		if ch, err := loader.Load(cached); err == nil {
			return ch, nil
		}
	}

	settings := cli.New()
	getters := getter.All(settings)

	chartURL, err := repo.FindChartInRepoURL(
		spec.Repository,
		spec.Name,
		spec.Version,
		"", "", "",
		getters,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to find chart %s in repo %s: %w", spec.Name, spec.Repository, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := fetch(chartURL, getters)
	if err != nil {
		return nil, err
	}

	ch, err := loader.LoadArchive(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to load chart archive: %w", err)
	}

	if spec.Version != "" {
		if err := os.MkdirAll(cacheDir, 0o755); err == nil {
			_ = os.WriteFile(cached, data, 0o644)
		}
	}

	return ch, nil
}

// LoadChart loads a chart from a local directory or archive.
func LoadChart(path string) (*chart.Chart, error) {
	ch, err := loader.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load chart from %s: %w", path, err)
	}
	return ch, nil
}

func fetch(chartURL string, getters getter.Providers) ([]byte, error) {
	u, err := url.Parse(chartURL)
	if err != nil {
		return nil, fmt.Errorf("invalid chart URL %q: %w", chartURL, err)
	}

	g, err := getters.ByScheme(u.Scheme)
	if err != nil {
		return nil, fmt.Errorf("unsupported chart URL scheme %q: %w", u.Scheme, err)
	}

	buf, err := g.Get(chartURL)
	if err != nil {
		return nil, fmt.Errorf("failed to download chart %s: %w", chartURL, err)
	}

	return buf.Bytes(), nil
}
