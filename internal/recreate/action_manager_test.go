package recreate

import (
	"errors"
	"reflect"
	"testing"

	"recreate/internal/config"
	"recreate/internal/geom"
)

func session(n int, pause func(int) bool, update func(int) bool) ([]BlueState, []bool, []bool) {
	b := make([]BlueState, n)
	p := make([]bool, n)
	u := make([]bool, n)
	for i := range b {
		b[i] = farBlue(i)
		p[i] = pause(i)
		u[i] = update(i)
	}
	return b, p, u
}

func always(int) bool { return true }
func never(int) bool  { return false }

func TestNewActionManagerBuildsPlatoons(t *testing.T) {
	am := newTestManager(t)
	cs := am.snapshot()
	if len(cs.UAV) != 3 || len(cs.UGV) != 3 {
		t.Fatalf("got %d uav and %d ugv platoons", len(cs.UAV), len(cs.UGV))
	}
	want := []string{"uav_p_1", "uav_p_2", "uav_p_3", "ugv_p_1", "ugv_p_2", "ugv_p_3"}
	for i, a := range cs.Platoons() {
		if a.Key != want[i] {
			t.Fatalf("platoon %d = %s, want %s", i, a.Key, want[i])
		}
	}
	if got := cs.UGV["ugv_p_2"].CentroidPos; got != (geom.Vec2{X: 20, Y: -10}) {
		t.Fatalf("ugv_p_2 starts at %v", got)
	}
}

func TestNewActionManagerConfigurationErrors(t *testing.T) {
	cases := map[string]func(*config.ActionTable, *config.Config){
		"missing key": func(tb *config.ActionTable, _ *config.Config) {
			delete(tb.Teams["red"], "ugv_p_3")
		},
		"type mismatch": func(tb *config.ActionTable, _ *config.Config) {
			d := tb.Teams["red"]["uav_p_1"]
			d.VehicleType = config.UGV
			tb.Teams["red"]["uav_p_1"] = d
		},
		"unknown primitive": func(tb *config.ActionTable, _ *config.Config) {
			d := tb.Teams["red"]["ugv_p_2"]
			d.Primitive = "orbit"
			tb.Teams["red"]["ugv_p_2"] = d
		},
		"unresolved sink node": func(tb *config.ActionTable, _ *config.Config) {
			d := tb.Teams["red"]["ugv_p_1"]
			node := 24
			d.SinkPos, d.SinkNode = nil, &node
			tb.Teams["red"]["ugv_p_1"] = d
		},
		"unresolved source node": func(tb *config.ActionTable, _ *config.Config) {
			d := tb.Teams["red"]["uav_p_2"]
			node := 3
			d.SourceNode = &node
			tb.Teams["red"]["uav_p_2"] = d
		},
		"more platoons than table": func(_ *config.ActionTable, c *config.Config) {
			c.Simulation.NUGVPlatoons = 4
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			tb, cfg := testTable(), testConfig()
			mutate(tb, cfg)
			_, err := NewActionManager("red", testGrid(), tb, cfg)
			if !errors.Is(err, ErrConfiguration) {
				t.Fatalf("expected ErrConfiguration, got %v", err)
			}
		})
	}

	if _, err := NewActionManager("blue", testGrid(), testTable(), testConfig()); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("unknown team: expected ErrConfiguration, got %v", err)
	}
	if _, err := NewActionManager("red", nil, testTable(), testConfig()); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("nil grid: expected ErrConfiguration, got %v", err)
	}
}

func TestReconstructStatesShapeMismatch(t *testing.T) {
	am := newTestManager(t)
	b, p, u := session(5, never, always)
	if _, err := am.ReconstructStates(b, p[:4], u); !errors.Is(err, ErrShapeMismatch) {
		t.Fatalf("expected ErrShapeMismatch, got %v", err)
	}
	if _, err := am.ReconstructStates(b, p, u[:3]); !errors.Is(err, ErrShapeMismatch) {
		t.Fatalf("expected ErrShapeMismatch, got %v", err)
	}
}

func TestReconstructStatesHeldTicksRepeat(t *testing.T) {
	am := newTestManager(t)
	update := func(i int) bool { return i%3 != 1 }
	b, p, u := session(30, never, update)

	states, err := am.ReconstructStates(b, p, u)
	if err != nil {
		t.Fatal(err)
	}
	if len(states) != len(b) {
		t.Fatalf("got %d states for %d ticks", len(states), len(b))
	}
	for i := 1; i < len(states); i++ {
		if u[i] {
			continue
		}
		if !reflect.DeepEqual(states[i], states[i-1]) {
			t.Fatalf("held tick %d differs from tick %d", i, i-1)
		}
	}
	// held states are copies
	states[1].UGV["ugv_p_1"].Vehicles[0] = geom.Vec2{X: 1e6}
	if states[0].UGV["ugv_p_1"].Vehicles[0].X == 1e6 {
		t.Fatal("held tick shares vehicle memory with its predecessor")
	}
}

func TestReconstructStatesNonUpdateFirstTick(t *testing.T) {
	am := newTestManager(t)
	initial := am.snapshot()
	b, p, u := session(3, never, func(i int) bool { return i > 0 })

	states, err := am.ReconstructStates(b, p, u)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(states[0], initial) {
		t.Fatal("non-update first tick should emit the initial snapshot")
	}
}

func TestReconstructStatesEndToEnd(t *testing.T) {
	am := newTestManager(t)
	b, p, u := session(50, func(i int) bool { return i%2 == 1 }, always)

	states, err := am.ReconstructStates(b, p, u)
	if err != nil {
		t.Fatal(err)
	}
	if len(states) != 50 {
		t.Fatalf("got %d states", len(states))
	}
	bounds := testGrid().CartesianBounds()
	for i := 1; i < len(states); i++ {
		prev := states[i-1].Platoons()
		for j, a := range states[i].Platoons() {
			if !bounds.Contains(a.CentroidPos) {
				t.Fatalf("tick %d: %s left the map at %v", i, a.Key, a.CentroidPos)
			}
			if p[i] && !a.Engage && a.CentroidPos != prev[j].CentroidPos {
				t.Fatalf("paused tick %d: %s moved %v -> %v", i, a.Key, prev[j].CentroidPos, a.CentroidPos)
			}
		}
	}
	// formation platoons never move without engagement
	if got := states[49].UAV["uav_p_1"].CentroidPos; got != (geom.Vec2{X: -20, Y: 20}) {
		t.Fatalf("formation platoon drifted to %v", got)
	}
	// patrolling platoons do
	if got := states[49].UGV["ugv_p_1"].CentroidPos; got == (geom.Vec2{}) {
		t.Fatal("patrolling platoon never moved")
	}
}

func TestParallelMatchesSequential(t *testing.T) {
	n := 40
	b, p, u := session(n, func(i int) bool { return i%5 == 4 }, func(i int) bool { return i%7 != 3 })
	// bring a blue platoon next to ugv_p_2 for a while so shooting runs
	for i := 10; i < 20; i++ {
		b[i].Platoons = append(b[i].Platoons, PlatoonState{Key: "ugv_p_3", VehicleType: config.UGV,
			CentroidPos: geom.Vec2{X: 21, Y: -9}, NVehicles: 4, Casualties: []string{"v1"}})
	}

	seq := newTestManager(t, WithShooting(7))
	par := newTestManager(t, WithShooting(7), WithParallel(true))
	a, err := seq.ReconstructStates(b, p, u)
	if err != nil {
		t.Fatal(err)
	}
	c, err := par.ReconstructStates(b, p, u)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(a, c) {
		t.Fatal("parallel replay differs from sequential replay")
	}
	if !reflect.DeepEqual(seq.Events(), par.Events()) {
		t.Fatal("parallel replay recorded different events")
	}
}

func TestShootingWhileEngaged(t *testing.T) {
	am := newTestManager(t, WithShooting(3))
	b, p, u := session(4, never, always)
	for i := range b {
		b[i].Platoons = append(b[i].Platoons, PlatoonState{Key: "ugv_p_3", VehicleType: config.UGV,
			CentroidPos: geom.Vec2{X: 20, Y: -8}, NVehicles: 3})
	}
	states, err := am.ReconstructStates(b, p, u)
	if err != nil {
		t.Fatal(err)
	}
	for i, cs := range states {
		a := cs.UGV["ugv_p_2"]
		if !a.Engage || a.HitProbability <= 0 {
			t.Fatalf("tick %d: engage=%v hit=%v", i, a.Engage, a.HitProbability)
		}
		if other := cs.UAV["uav_p_1"]; other.HitProbability != 0 {
			t.Fatalf("tick %d: idle platoon reports hit probability %v", i, other.HitProbability)
		}
	}

	again := newTestManager(t, WithShooting(3))
	states2, _ := again.ReconstructStates(b, p, u)
	if !reflect.DeepEqual(states, states2) {
		t.Fatal("same seed should reproduce the same hit probabilities")
	}
}

func TestReplayEvents(t *testing.T) {
	am := newTestManager(t)
	ticks := make([]Tick, 6)
	for i := range ticks {
		ticks[i] = Tick{Time: float64(i), Blue: farBlue(i), Update: true}
	}
	ticks[3].Blue.Platoons = append(ticks[3].Blue.Platoons, PlatoonState{Key: "uav_p_1",
		VehicleType: config.UAV, CentroidPos: geom.Vec2{X: 30, Y: 28}})

	res, err := am.Replay(ticks)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.States) != len(ticks) {
		t.Fatalf("got %d states", len(res.States))
	}

	var planned, engaged, disengaged int
	for _, ev := range res.Events {
		switch ev.Type {
		case EventPatrolPlanned:
			planned++
			if ev.Tick != 0 {
				t.Fatalf("patrol planned at tick %d", ev.Tick)
			}
		case EventEngage:
			engaged++
			if ev.Tick != 3 || ev.Platoon != "uav_p_3" {
				t.Fatalf("unexpected engage event %+v", ev)
			}
		case EventDisengage:
			disengaged++
			if ev.Tick != 4 {
				t.Fatalf("disengage at tick %d", ev.Tick)
			}
		}
	}
	if planned != 3 || engaged != 1 || disengaged != 1 {
		t.Fatalf("planned=%d engaged=%d disengaged=%d", planned, engaged, disengaged)
	}
}
