// Package config holds the persisted configuration for a TSDF grid,
// loaded the way the teacher's device drivers load startup configuration:
// a plain struct tagged for gopkg.in/yaml.v3.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// GridConfig is the serializable parameter set for a TsdGrid (spec.md §3
// TsdGrid parameters). PartitionLayout/GridLayout are log2 of the
// partition/grid side lengths (spec.md §6 snapshot header fields
// layoutPartition/layoutGrid).
type GridConfig struct {
	CellSize        float64 `yaml:"cell_size"`
	PartitionLayout uint    `yaml:"partition_layout"`
	GridLayout      uint    `yaml:"grid_layout"`
	MaxTruncation   float64 `yaml:"max_truncation"`
	InitWeight      float64 `yaml:"init_weight"`
}

// DefaultGridConfig returns reasonable defaults: 64-cell partitions
// (layout 6), a 4x4 partition grid (layout 8 = log2(4*64)), 5cm cells.
func DefaultGridConfig() GridConfig {
	return GridConfig{
		CellSize:        0.05,
		PartitionLayout: 6,
		GridLayout:      8,
		MaxTruncation:   0.3,
		InitWeight:      1,
	}
}

// PartitionSize returns P = 2^PartitionLayout.
func (c GridConfig) PartitionSize() int { return 1 << c.PartitionLayout }

// GridSize returns the total grid side length in cells, M*P = 2^GridLayout.
func (c GridConfig) GridSize() int { return 1 << c.GridLayout }

// PartitionCount returns M = GridSize/PartitionSize, the number of
// partitions per side.
func (c GridConfig) PartitionCount() int {
	return c.GridSize() / c.PartitionSize()
}

// Load reads a GridConfig from a YAML file.
func Load(path string) (GridConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return GridConfig{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg := DefaultGridConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return GridConfig{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg to path as YAML.
func Save(path string, cfg GridConfig) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}
