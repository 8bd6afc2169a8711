package recreate

import (
	"testing"

	"recreate/internal/config"
	"recreate/internal/geom"
	"recreate/internal/mapdata"
	"recreate/internal/planning"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Simulation.TimeStep = 1
	cfg.Experiment.AttackDistance = 5
	cfg.Experiment.DetectionRange = 10
	return cfg
}

// testGrid covers cartesian x in about [-62, 109] and y in about [-49, 79].
func testGrid() *mapdata.Grid { return mapdata.EmptyGrid(400, 300) }

func pos(x, y float64) *config.Vec2Def { return &config.Vec2Def{X: x, Y: y} }

func testTable() *config.ActionTable {
	return &config.ActionTable{Teams: map[string]map[string]config.ActionDef{
		"red": {
			"uav_p_1": {VehicleType: config.UAV, Primitive: config.PrimitiveFormation, CentroidPos: config.Vec2Def{X: -20, Y: 20}},
			"uav_p_2": {VehicleType: config.UAV, Primitive: config.PrimitivePatrolling, CentroidPos: config.Vec2Def{X: 0, Y: 30},
				SourcePos: pos(0, 30), SinkPos: pos(20, 30)},
			"uav_p_3": {VehicleType: config.UAV, Primitive: config.PrimitiveFormation, CentroidPos: config.Vec2Def{X: 30, Y: 30}},
			"ugv_p_1": {VehicleType: config.UGV, Primitive: config.PrimitivePatrolling, CentroidPos: config.Vec2Def{X: 0, Y: 0},
				SourcePos: pos(0, 0), SinkPos: pos(10, 0)},
			"ugv_p_2": {VehicleType: config.UGV, Primitive: config.PrimitiveFormation, CentroidPos: config.Vec2Def{X: 20, Y: -10}},
			"ugv_p_3": {VehicleType: config.UGV, Primitive: config.PrimitivePatrolling, CentroidPos: config.Vec2Def{X: -30, Y: -10},
				SourcePos: pos(-30, -10), SinkPos: pos(-30, 10)},
		},
	}}
}

func newTestManager(t *testing.T, opts ...Option) *ActionManager {
	t.Helper()
	am, err := NewActionManager("red", testGrid(), testTable(), testConfig(), opts...)
	if err != nil {
		t.Fatalf("NewActionManager: %v", err)
	}
	return am
}

func blue(pts ...geom.Vec2) BlueState {
	var bs BlueState
	for i, p := range pts {
		bs.Platoons = append(bs.Platoons, PlatoonState{
			Key:         config.PlatoonKey(config.UGV, i+1),
			VehicleType: config.UGV,
			CentroidPos: p,
		})
	}
	return bs
}

// farBlue is a blue team well outside every red platoon's detection range.
func farBlue(tick int) BlueState {
	x := -55 + 0.1*float64(tick)
	return blue(geom.Vec2{X: x, Y: -45}, geom.Vec2{X: x + 3, Y: -45})
}

func patrolManager(t *testing.T, vt config.VehicleType, grid *mapdata.Grid) *PrimitiveManager {
	t.Helper()
	return patrolManagerAt(t, vt, grid, geom.Vec2{}, geom.Vec2{}, geom.Vec2{X: 10})
}

// patrolManagerAt builds a patrolling platoon spawned at centroid that
// shuttles between source and sink with dt=1 and max speed 0.43.
func patrolManagerAt(t *testing.T, vt config.VehicleType, grid *mapdata.Grid, centroid, source, sink geom.Vec2) *PrimitiveManager {
	t.Helper()
	cfg := testConfig()
	cfg.Vehicles.UGV.MaxSpeed = 0.43
	cfg.Vehicles.UAV.MaxSpeed = 0.43
	def := config.ActionDef{
		VehicleType: vt,
		Primitive:   config.PrimitivePatrolling,
		CentroidPos: config.Vec2Def{X: centroid.X, Y: centroid.Y},
		SourcePos:   pos(source.X, source.Y),
		SinkPos:     pos(sink.X, sink.Y),
	}
	b := grid.CartesianBounds()
	return newPrimitiveManager(cfg, config.PlatoonKey(vt, 1), def, managerDeps{
		planner: planning.NewPlanner(grid),
		bounds:  &b,
	})
}
