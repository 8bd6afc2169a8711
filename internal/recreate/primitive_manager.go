package recreate

import (
	"log/slog"
	"math"
	"slices"

	"recreate/internal/config"
	"recreate/internal/engaging"
	"recreate/internal/formation"
	"recreate/internal/geom"
	"recreate/internal/logging"
	"recreate/internal/planning"
)

// PrimitiveManager runs one platoon's primitive each tick. The primitive is
// fixed for the manager's lifetime; engagement overrides it per tick.
type PrimitiveManager struct {
	cfg       *config.Config
	dt        float64
	maxSpeed  float64
	planner   *planning.Planner
	formation *formation.Control
	shooter   *engaging.Shooter
	bounds    *geom.Rect
	log       *slog.Logger

	action Action

	// pathPoints is the current leg, patrolPoints what is left of it.
	pathPoints   []geom.Vec2
	patrolPoints []geom.Vec2
	planned      bool
	planFailed   bool

	engagedWith *PlatoonState
	pending     []Event
}

type managerDeps struct {
	planner *planning.Planner
	shooter *engaging.Shooter
	bounds  *geom.Rect
	log     *slog.Logger
}

func newPrimitiveManager(cfg *config.Config, key string, def config.ActionDef, deps managerDeps) *PrimitiveManager {
	centroid := vec(def.CentroidPos)
	a := Action{
		Key:         key,
		VehicleType: def.VehicleType,
		Primitive:   def.Primitive,
		CentroidPos: centroid,
		StartPos:    centroid,
		TargetPos:   centroid,
		NextPos:     centroid,
		SourcePos:   centroid,
		SinkPos:     centroid,
	}
	if def.SourcePos != nil {
		a.SourcePos = vec(*def.SourcePos)
	}
	if def.SinkPos != nil {
		a.SinkPos = vec(*def.SinkPos)
	}
	if def.TargetPos != nil {
		a.TargetPos = vec(*def.TargetPos)
	}

	maxSpeed := cfg.MaxSpeed(def.VehicleType)
	fp := formation.DefaultParams(maxSpeed, cfg.Experiment.MinSeparation)
	fp.Alpha, fp.Gamma, fp.KNN = cfg.Formation.Alpha, cfg.Formation.Gamma, cfg.Formation.KNN
	a.Vehicles = formation.Spawn(centroid, cfg.Simulation.VehiclesPerPlatoon, cfg.Experiment.MinSeparation)

	log := logging.OrDiscard(deps.log)
	return &PrimitiveManager{
		cfg:       cfg,
		dt:        cfg.Simulation.TimeStep,
		maxSpeed:  maxSpeed,
		planner:   deps.planner,
		formation: formation.New(fp),
		shooter:   deps.shooter,
		bounds:    deps.bounds,
		log:       log.With("platoon", key),
		action:    a,
	}
}

func vec(v config.Vec2Def) geom.Vec2 { return geom.Vec2{X: v.X, Y: v.Y} }

// Action returns a copy of the current action.
func (pm *PrimitiveManager) Action() Action { return pm.action.Clone() }

// ExecutePrimitive checks engagement, runs the primitive unless paused or
// engaging, and returns a copy of the resulting action. The update flag is
// accepted for symmetry with the replay loop; held ticks never reach here.
func (pm *PrimitiveManager) ExecutePrimitive(blue BlueState, paused, _ bool) Action {
	engage := pm.CheckEngagingDistance(blue)
	pm.sampleHit(engage)

	if !paused && !engage {
		switch pm.action.Primitive {
		case config.PrimitiveFormation:
			pm.formationPrimitive()
		case config.PrimitivePatrolling:
			pm.patrollingPrimitive()
		}
	}
	return pm.action.Clone()
}

// CheckEngagingDistance sets the engage flag and snaps the centroid onto the
// nearest blue platoon within attack distance. Any blue platoon within
// detection range makes the platoon visible for the rest of the replay.
func (pm *PrimitiveManager) CheckEngagingDistance(blue BlueState) bool {
	a := &pm.action
	nearest := -1
	best := math.Inf(1)
	for i, p := range blue.Platoons {
		d := a.CentroidPos.Dist(p.CentroidPos)
		if d < best {
			best, nearest = d, i
		}
	}

	if nearest >= 0 && best < pm.cfg.Experiment.DetectionRange && !a.Visibility {
		a.Visibility = true
		pm.emit(EventVisible, map[string]any{"distance": best, "blue": blue.Platoons[nearest].Key})
	}

	wasEngaged := a.Engage
	a.Engage = nearest >= 0 && best < pm.cfg.Experiment.AttackDistance
	if !a.Engage {
		pm.engagedWith = nil
		if wasEngaged {
			pm.emit(EventDisengage, nil)
		}
		return false
	}

	target := blue.Platoons[nearest]
	pm.engagedWith = &target
	snap := pm.clamp(target.CentroidPos)
	pm.shiftVehicles(snap.Sub(a.CentroidPos))
	a.CentroidPos = snap
	if !wasEngaged {
		pm.log.Debug("engaging", "blue", target.Key, "distance", best)
		pm.emit(EventEngage, map[string]any{"blue": target.Key, "distance": best})
	}
	return true
}

func (pm *PrimitiveManager) sampleHit(engage bool) {
	if !engage || pm.shooter == nil || pm.engagedWith == nil {
		pm.action.HitProbability = 0
		return
	}
	// blue strength goes first so the red-side ratio is red/blue
	red := pm.cfg.Simulation.VehiclesPerPlatoon
	blue := pm.engagedWith.Strength(red)
	pm.action.HitProbability = pm.shooter.Shoot(blue, red, 0, engaging.SideRed)
}

// clamp keeps p inside the map.
func (pm *PrimitiveManager) clamp(p geom.Vec2) geom.Vec2 {
	if pm.bounds == nil {
		return p
	}
	return pm.bounds.Clamp(p)
}

func (pm *PrimitiveManager) shiftVehicles(delta geom.Vec2) {
	for i := range pm.action.Vehicles {
		pm.action.Vehicles[i] = pm.action.Vehicles[i].Add(delta)
	}
}

// formationPrimitive holds position: centroids do not change.
func (pm *PrimitiveManager) formationPrimitive() {}

func (pm *PrimitiveManager) patrollingPrimitive() {
	a := &pm.action
	if pm.planFailed {
		return
	}
	if !pm.planned {
		a.StartPos = a.CentroidPos
		a.TargetPos = a.SinkPos
		path, err := pm.planLeg(a.StartPos, a.SinkPos)
		if err != nil {
			// hold position for this leg; replay continues
			pm.planFailed = true
			pm.log.Warn("patrol planning failed, holding position", "error", err)
			pm.emit(EventPlanFailed, map[string]any{"error": err.Error()})
			return
		}
		pm.pathPoints = path
		pm.patrolPoints = slices.Clone(path)
		pm.planned = true
		pm.emit(EventPatrolPlanned, map[string]any{"waypoints": len(path)})
	}

	reach := pm.maxSpeed * pm.dt
	if a.CentroidPos.Dist(a.SinkPos) > pm.cfg.Experiment.LegCompleteDistance && !pm.legExhausted() {
		a.NextPos = pm.nextWaypoint(reach)
	} else {
		// leg complete: turn around on the cached path
		a.SourcePos, a.SinkPos = a.SinkPos, a.SourcePos
		slices.Reverse(pm.pathPoints)
		pm.patrolPoints = slices.Clone(pm.pathPoints[resumeIndex(pm.pathPoints, a.CentroidPos):])
		a.TargetPos = a.SinkPos
		a.NextPos = pm.nextWaypoint(reach)
		pm.emit(EventLegComplete, map[string]any{"sink": a.SinkPos})
	}
	pm.move(a.NextPos)
}

// arriveTolerance is how close the centroid must be to the final waypoint
// of a leg to count as having reached it.
const arriveTolerance = 1e-6

// legExhausted reports whether the queue is down to its final waypoint and
// the centroid sits on it. A leg planned from the spawn position ends there
// on the way back, which can be far from source_pos.
func (pm *PrimitiveManager) legExhausted() bool {
	switch len(pm.patrolPoints) {
	case 0:
		return true
	case 1:
		return pm.action.CentroidPos.Dist(pm.clamp(pm.patrolPoints[0])) <= arriveTolerance
	}
	return false
}

// nextWaypoint drops waypoints already within reach and returns the head.
// The last waypoint is never dropped.
func (pm *PrimitiveManager) nextWaypoint(reach float64) geom.Vec2 {
	c := pm.action.CentroidPos
	for len(pm.patrolPoints) > 1 && c.Dist(pm.patrolPoints[0]) <= reach {
		pm.patrolPoints = pm.patrolPoints[1:]
	}
	if len(pm.patrolPoints) == 0 {
		return pm.action.SinkPos
	}
	return pm.patrolPoints[0]
}

// move integrates the centroid towards next with an explicit Euler step,
// speed capped at the vehicle's max speed, and lets the vehicles follow.
func (pm *PrimitiveManager) move(next geom.Vec2) {
	a := &pm.action
	vel := next.Sub(a.CentroidPos).Scale(1 / pm.dt).ClampLen(pm.maxSpeed)
	prev := a.CentroidPos
	a.CentroidPos = pm.clamp(prev.Add(vel.Scale(pm.dt)))
	a.Vehicles, _ = pm.formation.Execute(a.Vehicles, next, prev, pm.dt, formation.TypeEllipse)
}

// planLeg returns the leg in centroid space. UGVs are routed over the
// occupancy grid; UAVs fly straight.
func (pm *PrimitiveManager) planLeg(from, to geom.Vec2) ([]geom.Vec2, error) {
	if pm.action.VehicleType == config.UAV || pm.planner == nil {
		return []geom.Vec2{from, to}, nil
	}
	pix, err := pm.planner.FindPath(geom.CartesianToPixel(from), geom.CartesianToPixel(to), pm.cfg.Simulation.SmoothPaths)
	if err != nil {
		return nil, err
	}
	path := make([]geom.Vec2, len(pix))
	for i, p := range pix {
		path[i] = geom.PixelToCartesian(p)
	}
	return path, nil
}

// resumeIndex picks the waypoint to continue from on a reversed path: the
// nearest one, or its successor when p already lies between the two.
func resumeIndex(pts []geom.Vec2, p geom.Vec2) int {
	best, idx := math.Inf(1), 0
	for i, q := range pts {
		if d := p.Dist(q); d < best {
			best, idx = d, i
		}
	}
	if idx+1 < len(pts) && p.Dist(pts[idx+1]) <= pts[idx].Dist(pts[idx+1]) {
		idx++
	}
	return idx
}

func (pm *PrimitiveManager) emit(typ string, payload map[string]any) {
	pm.pending = append(pm.pending, Event{Type: typ, Platoon: pm.action.Key, Payload: payload})
}

func (pm *PrimitiveManager) drainEvents() []Event {
	ev := pm.pending
	pm.pending = nil
	return ev
}
