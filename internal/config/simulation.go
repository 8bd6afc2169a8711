package config

import (
	"errors"
	"fmt"
)

var ErrConfiguration = errors.New("configuration error")

type VehicleType string

const (
	UAV VehicleType = "uav"
	UGV VehicleType = "ugv"
)

type Config struct {
	Simulation SimulationConfig `yaml:"simulation"`
	Experiment ExperimentConfig `yaml:"experiment"`
	Vehicles   VehiclesConfig   `yaml:"vehicles"`
	Formation  FormationConfig  `yaml:"formation"`
	Map        MapConfig        `yaml:"map"`
	Logging    LoggingConfig    `yaml:"logging"`
}

type SimulationConfig struct {
	TimeStep           float64 `yaml:"time_step"`
	NUAVPlatoons       int     `yaml:"n_uav_platoons"`
	NUGVPlatoons       int     `yaml:"n_ugv_platoons"`
	VehiclesPerPlatoon int     `yaml:"vehicles_per_platoon"`
	Parallel           bool    `yaml:"parallel"`
	SmoothPaths        bool    `yaml:"smooth_paths"`
	Seed               uint64  `yaml:"seed"`
	Shooting           bool    `yaml:"shooting"`
}

type ExperimentConfig struct {
	AttackDistance      float64 `yaml:"attack_distance"`
	DetectionRange      float64 `yaml:"detection_range"`
	MinSeparation       float64 `yaml:"min_separation"`
	LegCompleteDistance float64 `yaml:"leg_complete_distance"`
}

type VehiclesConfig struct {
	UAV VehicleConfig `yaml:"uav"`
	UGV VehicleConfig `yaml:"ugv"`
}

type VehicleConfig struct {
	MaxSpeed float64 `yaml:"max_speed"`
}

type FormationConfig struct {
	Alpha float64 `yaml:"alpha"`
	Gamma float64 `yaml:"gamma"`
	KNN   int     `yaml:"knn"`
}

type MapConfig struct {
	OccupancyGrid string `yaml:"occupancy_grid"`
	Nodes         string `yaml:"nodes"`
	ReferenceNode int    `yaml:"reference_node"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

func Default() *Config {
	return &Config{
		Simulation: SimulationConfig{
			TimeStep:           1.0,
			NUAVPlatoons:       3,
			NUGVPlatoons:       3,
			VehiclesPerPlatoon: 3,
			Seed:               12345,
		},
		Experiment: ExperimentConfig{
			AttackDistance:      5,
			DetectionRange:      10,
			MinSeparation:       2,
			LegCompleteDistance: 2,
		},
		Vehicles: VehiclesConfig{
			UAV: VehicleConfig{MaxSpeed: 0.43},
			UGV: VehicleConfig{MaxSpeed: 0.43},
		},
		Formation: FormationConfig{Alpha: 0.5, Gamma: 0.5, KNN: 6},
		Map:       MapConfig{ReferenceNode: 48},
		Logging:   LoggingConfig{Level: "info"},
	}
}

// MaxSpeed returns the speed cap for a vehicle type.
func (c *Config) MaxSpeed(vt VehicleType) float64 {
	if vt == UAV {
		return c.Vehicles.UAV.MaxSpeed
	}
	return c.Vehicles.UGV.MaxSpeed
}

func (c *Config) Validate() error {
	s, e := c.Simulation, c.Experiment
	switch {
	case s.TimeStep <= 0:
		return fmt.Errorf("%w: time_step must be positive, got %v", ErrConfiguration, s.TimeStep)
	case s.NUAVPlatoons < 0 || s.NUGVPlatoons < 0:
		return fmt.Errorf("%w: platoon counts must be non-negative", ErrConfiguration)
	case s.VehiclesPerPlatoon < 1:
		return fmt.Errorf("%w: vehicles_per_platoon must be at least 1, got %d", ErrConfiguration, s.VehiclesPerPlatoon)
	case e.AttackDistance < 0 || e.DetectionRange < 0:
		return fmt.Errorf("%w: attack_distance and detection_range must be non-negative", ErrConfiguration)
	case e.MinSeparation < 0:
		return fmt.Errorf("%w: min_separation must be non-negative", ErrConfiguration)
	case e.LegCompleteDistance < 0:
		return fmt.Errorf("%w: leg_complete_distance must be non-negative", ErrConfiguration)
	case c.Vehicles.UAV.MaxSpeed <= 0 || c.Vehicles.UGV.MaxSpeed <= 0:
		return fmt.Errorf("%w: max_speed must be positive for every vehicle type", ErrConfiguration)
	case c.Formation.KNN < 0:
		return fmt.Errorf("%w: formation knn must be non-negative", ErrConfiguration)
	}
	validLevels := map[string]bool{"": true, "info": true, "debug": true, "trace": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("%w: invalid log level %q (valid: info, debug, trace)", ErrConfiguration, c.Logging.Level)
	}
	return nil
}
