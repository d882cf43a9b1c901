// Package config loads the benchmark's YAML configuration file, following
// the teacher's own internal/config almost unchanged in shape.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/bonheur15/knowledge-bakeoff-bench/internal/catalog"
	"github.com/bonheur15/knowledge-bakeoff-bench/internal/threshold"
)

// DatasetConfig points at the directory of pool files consumed by
// internal/dataset.Selector.LoadPools.
type DatasetConfig struct {
	PoolDir string `yaml:"pool_dir"`
}

// ScoreInput holds the externally-supplied curation/operational scalars for
// one database, matching the shape of calculate_scores.py's raw_results[db]
// entries in the original harness.
type ScoreInput struct {
	SelfServiceOperations int     `yaml:"self_service_operations"` // out of 6
	VisualizationRating   float64 `yaml:"visualization_rating"`    // out of 5
	PeakMemoryMB          float64 `yaml:"peak_memory_mb"`
	ErrorRatePct          float64 `yaml:"error_rate_pct"`
	ConfigParameters      int     `yaml:"config_parameters"`
	EcosystemScore        float64 `yaml:"ecosystem_score"` // out of 5, pre-scored
}

// Config is the top-level configuration file shape.
type Config struct {
	Datasets    DatasetConfig                             `yaml:"datasets"`
	Thresholds  map[catalog.Category]threshold.Thresholds `yaml:"thresholds"`
	ScoreInputs map[string]ScoreInput                     `yaml:"score_inputs"`
	Databases   map[string]string                         `yaml:"databases"` // name -> base URL, for `compare`
}

// Load reads and parses a YAML config file. A missing path is not an error;
// Load returns a zero-value Config so callers can rely purely on CLI flags.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return cfg, nil
}
