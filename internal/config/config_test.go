package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultGridConfigDerivedSizes(t *testing.T) {
	cfg := DefaultGridConfig()
	assert.Equal(t, 64, cfg.PartitionSize())
	assert.Equal(t, 256, cfg.GridSize())
	assert.Equal(t, 4, cfg.PartitionCount())
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "grid.yaml")

	cfg := GridConfig{
		CellSize:        0.025,
		PartitionLayout: 5,
		GridLayout:      7,
		MaxTruncation:   0.2,
		InitWeight:      2,
	}
	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoadMissingFileReturnsError(t *testing.T) {
	_, err := Load("/nonexistent/path/grid.yaml")
	assert.Error(t, err)
}

func TestLoadAppliesDefaultsForOmittedFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "partial.yaml")
	require.NoError(t, os.WriteFile(path, []byte("cell_size: 0.1\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0.1, cfg.CellSize)
	assert.Equal(t, DefaultGridConfig().PartitionLayout, cfg.PartitionLayout)
}
