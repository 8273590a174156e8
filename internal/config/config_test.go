package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoadMergesOverDefaults(t *testing.T) {
	path := writeConfig(t, `
synthetic:
  buildings: 12
solver:
  workers: 8
trading:
  enabled: true
  efficiency: 0.9
  topology: hub
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 12, cfg.Synthetic.Buildings)
	assert.Equal(t, 8, cfg.Solver.Workers)
	assert.Equal(t, "hub", cfg.Trading.Topology)
	// Untouched fields keep their defaults.
	assert.Equal(t, 24, cfg.Synthetic.Horizon)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, []float64{0.8, 1.0, 1.2}, cfg.Tariffs.PriceScales)
}

func TestLoadRejectsBadTopology(t *testing.T) {
	path := writeConfig(t, `
trading:
  enabled: true
  efficiency: 0.9
  topology: mesh
`)
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadRejectsBadExportRatio(t *testing.T) {
	path := writeConfig(t, `
tariffs:
  export_ratio: 1.5
`)
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadResolvesRelativeCommunityPath(t *testing.T) {
	dir := t.TempDir()
	communityPath := filepath.Join(dir, "community.json")
	require.NoError(t, os.WriteFile(communityPath, []byte("{}"), 0o644))
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("community_file: community.json\n"), 0o644))

	cfg, err := LoadUnchecked(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, communityPath, cfg.CommunityFile)
}

func TestSolveTimeout(t *testing.T) {
	cfg := Default()
	cfg.Solver.TimeoutMS = 1500
	assert.Equal(t, "1.5s", cfg.SolveTimeout().String())
}
