package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nanorios/tinykernel/config"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kernel.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
task_capacity = 64
quantum_ticks = 5
heap_bytes = 4096
block_size = 64
`), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 64, cfg.TaskCapacity)
	assert.Equal(t, uint32(5), cfg.Quantum)
	assert.Equal(t, 4096, cfg.HeapBytes)
	assert.Equal(t, 64, cfg.BlockSize)
}

func TestOptionsOverrideDefaults(t *testing.T) {
	cfg, err := config.Load("", config.WithTaskCapacity(99), config.WithLogLevel("debug"))
	require.NoError(t, err)
	assert.Equal(t, 99, cfg.TaskCapacity)
	assert.Equal(t, "debug", cfg.LogLevel)
}
