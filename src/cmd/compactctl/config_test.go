package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadTunablesMissingFileReturnsDefaults(t *testing.T) {
	configPathOverride = filepath.Join(t.TempDir(), "does-not-exist.toml")
	defer func() { configPathOverride = "" }()

	tun, err := loadTunables()
	require.NoError(t, err)
	assert.Equal(t, int64(32), tun.SwapClusterMax)
	assert.Equal(t, 500, tun.FragThreshold)
}

func TestLoadTunablesOverlaysSetFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "compactor.toml")
	err := os.WriteFile(path, []byte("frag_threshold = 250\nswap_cluster_max = 64\n"), 0o644)
	require.NoError(t, err)

	configPathOverride = path
	defer func() { configPathOverride = "" }()

	tun, err := loadTunables()
	require.NoError(t, err)
	assert.Equal(t, 250, tun.FragThreshold)
	assert.Equal(t, int64(64), tun.SwapClusterMax)
	// unset fields keep their defaults
	assert.Equal(t, 32, tun.CompactClusterMax)
}

func TestLoadTunablesPropagatesParseError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "compactor.toml")
	err := os.WriteFile(path, []byte("not valid toml :::"), 0o644)
	require.NoError(t, err)

	configPathOverride = path
	defer func() { configPathOverride = "" }()

	_, err = loadTunables()
	assert.Error(t, err)
}
