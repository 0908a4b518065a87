package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.NotEmpty(t, cfg.CatalogDir)
	assert.NotEmpty(t, cfg.IndexPath)
	assert.Equal(t, 300, cfg.Search.DebounceMS)
	assert.Equal(t, 50, cfg.Search.Limit)
	assert.Equal(t, "local", cfg.Logging.Env)
}

func TestLoadOverridesAndDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "datahub.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
catalog_dir: /data/cards
search:
  debounce_ms: 150
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/data/cards", cfg.CatalogDir)
	assert.Equal(t, 150, cfg.Search.DebounceMS)
	assert.Equal(t, 50, cfg.Search.Limit, "unset fields keep defaults")
}

func TestLoadRejectsBadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "datahub.yaml")
	require.NoError(t, os.WriteFile(path, []byte("search:\n  limit: 99999\n"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte("logging:\n  env: staging\n"), 0o644))
	_, err = Load(path)
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte("\t{not yaml"), 0o644))
	_, err = Load(path)
	assert.Error(t, err)
}
