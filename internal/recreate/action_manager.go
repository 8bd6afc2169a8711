package recreate

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"recreate/internal/config"
	"recreate/internal/engaging"
	"recreate/internal/logging"
	"recreate/internal/mapdata"
	"recreate/internal/planning"
	"recreate/internal/util"
)

// ActionManager owns every red-team PrimitiveManager and drives the replay.
type ActionManager struct {
	cfg  *config.Config
	team string
	log  *slog.Logger

	uav []*PrimitiveManager
	ugv []*PrimitiveManager

	parallel  bool
	shootSeed *uint64
	events    []Event
}

type Option func(*ActionManager)

func WithLogger(l *slog.Logger) Option {
	return func(am *ActionManager) { am.log = l }
}

// WithShooting makes engaging platoons sample a hit probability every tick.
// Each platoon draws from its own stream derived from seed, so results do not
// depend on execution order.
func WithShooting(seed uint64) Option {
	return func(am *ActionManager) { am.shootSeed = &seed }
}

// WithParallel runs the platoons of one tick concurrently. Output order is
// unaffected.
func WithParallel(on bool) Option {
	return func(am *ActionManager) { am.parallel = on }
}

// NewActionManager builds the UAV and UGV platoons of team from the default
// action table. Every expected platoon key must be present.
func NewActionManager(team string, grid *mapdata.Grid, table *config.ActionTable, cfg *config.Config, opts ...Option) (*ActionManager, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: nil config", ErrConfiguration)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if grid == nil {
		return nil, fmt.Errorf("%w: occupancy grid is required", ErrConfiguration)
	}
	nUAV, nUGV := cfg.Simulation.NUAVPlatoons, cfg.Simulation.NUGVPlatoons
	if err := table.Validate(team, nUAV, nUGV); err != nil {
		return nil, err
	}

	am := &ActionManager{cfg: cfg, team: team, parallel: cfg.Simulation.Parallel}
	for _, opt := range opts {
		opt(am)
	}
	am.log = logging.OrDiscard(am.log)

	bounds := grid.CartesianBounds()
	planner := planning.NewPlanner(grid)
	build := func(vt config.VehicleType, i, stream int) *PrimitiveManager {
		key := config.PlatoonKey(vt, i)
		def, _ := table.Lookup(team, key)
		deps := managerDeps{planner: planner, bounds: &bounds, log: am.log}
		if am.shootSeed != nil {
			deps.shooter = engaging.NewShooter(util.NewSource(*am.shootSeed + uint64(stream)))
		}
		return newPrimitiveManager(cfg, key, def, deps)
	}
	for i := 1; i <= nUAV; i++ {
		am.uav = append(am.uav, build(config.UAV, i, i))
	}
	for i := 1; i <= nUGV; i++ {
		am.ugv = append(am.ugv, build(config.UGV, i, nUAV+i))
	}
	am.log.Debug("platoons initialised", "team", team, "uav", nUAV, "ugv", nUGV)
	return am, nil
}

// managers returns every platoon in fixed output order.
func (am *ActionManager) managers() []*PrimitiveManager {
	out := make([]*PrimitiveManager, 0, len(am.uav)+len(am.ugv))
	out = append(out, am.uav...)
	return append(out, am.ugv...)
}

// ReconstructStates replays the session and returns one complexity state per
// tick. Ticks without an update repeat the previous state, leaving every
// platoon's waypoint queue untouched.
func (am *ActionManager) ReconstructStates(blue []BlueState, pause, update []bool) ([]ComplexityState, error) {
	if len(blue) != len(pause) || len(blue) != len(update) {
		return nil, fmt.Errorf("%w: %d states, %d pause flags, %d update flags",
			ErrShapeMismatch, len(blue), len(pause), len(update))
	}

	states := make([]ComplexityState, 0, len(blue))
	for i := range blue {
		var cs ComplexityState
		switch {
		case update[i]:
			cs = am.RollTick(blue[i], pause[i], update[i])
			am.collectEvents(i)
		case i == 0:
			cs = am.snapshot()
		default:
			cs = states[i-1].Clone()
		}
		states = append(states, cs)
		am.log.Log(context.Background(), logging.LevelTrace, "tick", "i", i, "update", update[i], "pause", pause[i])
	}
	am.log.Info("replay complete", "team", am.team, "ticks", len(states), "events", len(am.events))
	return states, nil
}

// RollTick executes every UAV platoon and then every UGV platoon once.
func (am *ActionManager) RollTick(blue BlueState, paused, update bool) ComplexityState {
	ms := am.managers()
	actions := make([]Action, len(ms))
	if am.parallel {
		var wg sync.WaitGroup
		for i, pm := range ms {
			wg.Add(1)
			go func() {
				defer wg.Done()
				actions[i] = pm.ExecutePrimitive(blue, paused, update)
			}()
		}
		wg.Wait()
	} else {
		for i, pm := range ms {
			actions[i] = pm.ExecutePrimitive(blue, paused, update)
		}
	}
	return am.fold(actions)
}

func (am *ActionManager) fold(actions []Action) ComplexityState {
	cs := newComplexityState()
	for i, a := range actions {
		if i < len(am.uav) {
			cs.UAV[a.Key] = a
		} else {
			cs.UGV[a.Key] = a
		}
	}
	return cs
}

func (am *ActionManager) snapshot() ComplexityState {
	ms := am.managers()
	actions := make([]Action, len(ms))
	for i, pm := range ms {
		actions[i] = pm.Action()
	}
	return am.fold(actions)
}

func (am *ActionManager) collectEvents(tick int) {
	for _, pm := range am.managers() {
		for _, ev := range pm.drainEvents() {
			ev.Tick = tick
			am.events = append(am.events, ev)
		}
	}
}

// Events returns the replay events recorded so far, in tick order.
func (am *ActionManager) Events() []Event {
	out := make([]Event, len(am.events))
	copy(out, am.events)
	return out
}

// ReplayResult is the outcome of replaying one session.
type ReplayResult struct {
	States []ComplexityState `json:"states"`
	Events []Event           `json:"events,omitempty"`
}

// Replay splits typed ticks into the three parallel sequences and runs
// ReconstructStates.
func (am *ActionManager) Replay(ticks []Tick) (*ReplayResult, error) {
	blue := make([]BlueState, len(ticks))
	pause := make([]bool, len(ticks))
	update := make([]bool, len(ticks))
	for i, t := range ticks {
		blue[i], pause[i], update[i] = t.Blue, t.Pause, t.Update
	}
	states, err := am.ReconstructStates(blue, pause, update)
	if err != nil {
		return nil, err
	}
	return &ReplayResult{States: states, Events: am.Events()}, nil
}
