package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_NoFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.NoError(t, cfg.Validate())

	assert.Equal(t, 100, cfg.PoolCapacity)
	assert.Equal(t, 100000, cfg.MaxSeqSize)
	assert.Equal(t, 10, cfg.IdentityWindow)
	assert.InDelta(t, 0.7, cfg.IdentityThreshold, 1e-12)
	assert.True(t, cfg.PushGaps)
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	data := `threads: 6
identityThreshold: 0.8
pushGaps: false
profiles:
  large:
    band: 800
logFormat: json
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "readcns.yaml"), []byte(data), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 6, cfg.Threads)
	assert.InDelta(t, 0.8, cfg.IdentityThreshold, 1e-12)
	assert.False(t, cfg.PushGaps)
	assert.Equal(t, 800, cfg.Profiles.Large.Band)
	assert.InDelta(t, 0.3, cfg.Profiles.Large.MaxDiffRate, 1e-12, "unset keys keep defaults")
	assert.Equal(t, 100, cfg.Profiles.Small.Band)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 500, cfg.ConsensusWindow)
}

func TestLoad_PrefersYml(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "readcns.yml"), []byte("threads: 2\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "readcns.yaml"), []byte("threads: 3\n"), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Threads)
}

func TestLoad_BadYAML(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "readcns.yml"), []byte("threads: [\n"), 0o644))
	_, err := Load(dir)
	assert.Error(t, err)
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "none.yml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.IdentityThreshold = 0
	cfg.PoolCapacity = 0
	cfg.Profiles.Small.Band = 0
	cfg.LogLevel = "loud"

	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalid)
	for _, want := range []string{"identityThreshold", "poolCapacity", "profiles.small.band", "logLevel"} {
		assert.Contains(t, err.Error(), want)
	}
	assert.NotContains(t, err.Error(), "minCoverage")
}

func TestValidate_LogLevelsMatchLogger(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "warning", "error", "WARN"} {
		cfg := Default()
		cfg.LogLevel = level
		assert.NoError(t, cfg.Validate(), level)
	}
}
