package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWizardResult_ToConfig(t *testing.T) {
	t.Parallel()

	r := &WizardResult{
		Owner:       " foot-org ",
		AdoptPolicy: AdoptAlways,
		Branch:      "main",
		TenantName:  "ai-team",
		Namespaces:  "ai, observability,",
		Teams:       "ai-admins",
	}
	cfg := r.ToConfig()
	cfg.ApplyDefaults()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, "foot-org", cfg.Owner)
	assert.Equal(t, AdoptAlways, cfg.AdoptPolicy)
	require.Len(t, cfg.Tenants, 1)
	assert.Equal(t, []string{"ai", "observability"}, cfg.Tenants[0].NamespaceNames())
	assert.Equal(t, []string{"ai-admins"}, cfg.Tenants[0].TeamNames())
}

func TestWizardResult_ToConfig_NoTenant(t *testing.T) {
	t.Parallel()
	cfg := (&WizardResult{Owner: "foot-org", Branch: "main"}).ToConfig()
	assert.Empty(t, cfg.Tenants)
	assert.True(t, cfg.AllowEmptyTenants)
}

func TestWizardValidators(t *testing.T) {
	t.Parallel()

	assert.Error(t, validateOwner(""))
	assert.Error(t, validateOwner("-foot"))
	assert.NoError(t, validateOwner("foot-org"))

	assert.NoError(t, validateName(""))
	assert.NoError(t, validateName("ai-team"))
	assert.Error(t, validateName("AI"))

	assert.NoError(t, validateNameList("ai, observability"))
	assert.Error(t, validateNameList("ai, Observability"))
}

func TestWriteConfig(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "fluxtenancy.yaml")

	cfg := (&WizardResult{Owner: "foot-org", Branch: "main", TenantName: "ai-team", Namespaces: "ai"}).ToConfig()
	require.NoError(t, WriteConfig(cfg, path))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "# fluxtenancy configuration")
	assert.Contains(t, string(content), "owner: foot-org")
	assert.Contains(t, string(content), "name: ai-team")

	loaded, err := LoadWithoutValidation(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Tenants, loaded.Tenants)
}
