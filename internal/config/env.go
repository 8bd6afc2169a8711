package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Env holds overrides read from the process environment.
type Env struct {
	ConfigDir string `env:"RECREATE_CONFIG_DIR" envDefault:"assets"`
	LogLevel  string `env:"RECREATE_LOG_LEVEL"`
	Workers   int    `env:"RECREATE_WORKERS"    envDefault:"4"`
	Seed      uint64 `env:"RECREATE_SEED"`
	Parallel  bool   `env:"RECREATE_PARALLEL"`
}

func ParseEnv() (Env, error) {
	var e Env
	if err := env.Parse(&e); err != nil {
		return Env{}, fmt.Errorf("parse env: %w", err)
	}
	return e, nil
}

// Apply copies the set overrides onto cfg.
func (e Env) Apply(cfg *Config) {
	if e.LogLevel != "" {
		cfg.Logging.Level = e.LogLevel
	}
	if e.Seed != 0 {
		cfg.Simulation.Seed = e.Seed
	}
	if e.Parallel {
		cfg.Simulation.Parallel = true
	}
}
