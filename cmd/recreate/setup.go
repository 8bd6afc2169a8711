package main

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"recreate/internal/config"
	"recreate/internal/logging"
	"recreate/internal/mapdata"
	"recreate/internal/recreate"
)

// environment is everything a replay needs besides the telemetry itself.
type environment struct {
	cfg     *config.Config
	actions *config.ActionTable
	grid    *mapdata.Grid
	nodes   *mapdata.NodeTable
	log     *slog.Logger
	workers int
}

func loadEnvironment(cmd *cobra.Command) (*environment, error) {
	envVars, err := config.ParseEnv()
	if err != nil {
		return nil, err
	}

	dir, _ := cmd.Flags().GetString("config")
	if dir == "" {
		dir = envVars.ConfigDir
	}
	cfg, actions, err := config.LoadAll(dir)
	if err != nil {
		return nil, err
	}
	envVars.Apply(cfg)
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		cfg.Logging.Level = lvl
	}
	if f := cmd.Flags().Lookup("parallel"); f != nil && f.Changed {
		cfg.Simulation.Parallel, _ = cmd.Flags().GetBool("parallel")
	}
	if f := cmd.Flags().Lookup("seed"); f != nil && f.Changed {
		cfg.Simulation.Seed, _ = cmd.Flags().GetUint64("seed")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log := logging.NewLogger(cfg.Logging.Level, cmd.ErrOrStderr())

	if cfg.Map.OccupancyGrid == "" {
		return nil, fmt.Errorf("%w: map.occupancy_grid is required", config.ErrConfiguration)
	}
	grid, err := mapdata.LoadGrid(cfg.Map.OccupancyGrid)
	if err != nil {
		return nil, err
	}

	e := &environment{cfg: cfg, actions: actions, grid: grid, log: log, workers: envVars.Workers}
	if cfg.Map.Nodes != "" {
		e.nodes, err = mapdata.LoadNodes(cfg.Map.Nodes, cfg.Map.ReferenceNode)
		if err != nil {
			return nil, err
		}
		err = actions.ResolveNodes(e.nodes)
	} else {
		err = actions.ResolveNodes(nil)
	}
	if err != nil {
		return nil, err
	}

	log.Debug("environment loaded", "config", dir, "grid", fmt.Sprintf("%dx%d", grid.Cols(), grid.Rows()),
		"nodes", e.nodeCount(), "parallel", cfg.Simulation.Parallel)
	return e, nil
}

func (e *environment) nodeCount() int {
	if e.nodes == nil {
		return 0
	}
	return e.nodes.Len()
}

// newManager builds a fresh ActionManager; managers are never shared
// between sessions.
func (e *environment) newManager(team string, log *slog.Logger) (*recreate.ActionManager, error) {
	opts := []recreate.Option{
		recreate.WithLogger(log),
		recreate.WithParallel(e.cfg.Simulation.Parallel),
	}
	if e.cfg.Simulation.Shooting {
		opts = append(opts, recreate.WithShooting(e.cfg.Simulation.Seed))
	}
	return recreate.NewActionManager(team, e.grid, e.actions, e.cfg, opts...)
}

// sessionID names a session after its telemetry file.
func sessionID(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
