package configloader

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ksd-co/rule-engine-postgres/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadWithNoFileUsesBuiltinDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, types.BackEndAuto, cfg.BackEnd)
	assert.Equal(t, 100, cfg.CacheCapacity)
}

func TestLoadMissingFilePathIsNotAnError(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 100, cfg.CacheCapacity)
}

func TestLoadOverlaysFromYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rule-engine.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
backEnd: rete
cacheCapacity: 500
strict: true
dedupWindow: 30s
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, types.BackEndRete, cfg.BackEnd)
	assert.Equal(t, 500, cfg.CacheCapacity)
	assert.True(t, cfg.Strict)
	assert.Equal(t, 30*time.Second, cfg.DedupWindow)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("not: [valid yaml"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestEnvOverridesFileValue(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rule-engine.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`cacheCapacity: 500`), 0o644))

	t.Setenv("RULE_ENGINE_CACHE_CAPACITY", "777")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 777, cfg.CacheCapacity)
}
