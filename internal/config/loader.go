package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	SimulationFile     = "simulation.yaml"
	DefaultActionsFile = "default_actions.yaml"
)

func loadYAML(path string, out any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(b, out)
}

// LoadFromFile overlays a YAML file on the defaults and validates the result.
func LoadFromFile(path string) (*Config, error) {
	cfg := Default()
	if err := loadYAML(path, cfg); err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", ErrConfiguration, path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func LoadActions(path string) (*ActionTable, error) {
	var t ActionTable
	if err := loadYAML(path, &t); err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", ErrConfiguration, path, err)
	}
	return &t, nil
}

// LoadAll reads simulation.yaml and default_actions.yaml from dir. Relative
// map paths are resolved against dir.
func LoadAll(dir string) (*Config, *ActionTable, error) {
	cfg, err := LoadFromFile(filepath.Join(dir, SimulationFile))
	if err != nil {
		return nil, nil, err
	}
	actions, err := LoadActions(filepath.Join(dir, DefaultActionsFile))
	if err != nil {
		return nil, nil, err
	}
	cfg.Map.OccupancyGrid = resolve(dir, cfg.Map.OccupancyGrid)
	cfg.Map.Nodes = resolve(dir, cfg.Map.Nodes)
	return cfg, actions, nil
}

func resolve(dir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}
