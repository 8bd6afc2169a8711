package formation

import (
	"math"
	"testing"

	"recreate/internal/geom"
)

func TestExecuteSingleAgentIsDone(t *testing.T) {
	c := New(DefaultParams(0.43, 2))
	in := []geom.Vec2{{X: 3, Y: 4}}
	out, done := c.Execute(in, geom.Vec2{X: 10, Y: 10}, in[0], 1, TypeEllipse)
	if !done {
		t.Fatal("a single agent should report formation_done")
	}
	if out[0] != in[0] {
		t.Fatalf("single agent should not move, got %v", out[0])
	}
}

func TestRepulsionGrowsAsGapShrinks(t *testing.T) {
	self := geom.Vec2{}
	prev := -1.0
	for _, gap := range []float64{1.9, 1.5, 1.0, 0.5, 0.1, 0.01} {
		peers := []geom.Neighbor{
			{Idx: 0, Pos: self},
			{Idx: 1, Pos: geom.Vec2{X: gap}, Dist: gap},
		}
		mag := Repulsion(self, 0, peers, 2, 2).Len()
		if mag <= prev {
			t.Fatalf("gap %.2f: magnitude %.6f did not grow (previous %.6f)", gap, mag, prev)
		}
		prev = mag
	}
}

func TestRepulsionInactiveBeyondSeparation(t *testing.T) {
	peers := []geom.Neighbor{{Idx: 1, Pos: geom.Vec2{X: 2.5}, Dist: 2.5}}
	if r := Repulsion(geom.Vec2{}, 0, peers, 2, 1); r != (geom.Vec2{}) {
		t.Fatalf("repulsion beyond min separation should be zero, got %v", r)
	}
	coincident := []geom.Neighbor{{Idx: 1, Pos: geom.Vec2{}, Dist: 0}}
	if r := Repulsion(geom.Vec2{}, 0, coincident, 2, 1); r != (geom.Vec2{}) {
		t.Fatalf("coincident peer should be ignored, got %v", r)
	}
}

func TestContainment(t *testing.T) {
	c := geom.Vec2{X: 1, Y: 1}
	if z := Containment(geom.Vec2{X: 1.5, Y: 1}, c, 1, 1); z != (geom.Vec2{}) {
		t.Fatalf("inside ellipse should be zero, got %v", z)
	}
	z := Containment(geom.Vec2{X: 4, Y: 1}, c, 1, 1)
	if z.X <= 0 || z.Y != 0 {
		t.Fatalf("outside ellipse should point away from centroid, got %v", z)
	}
}

func TestExecuteSeparatesCrowdedAgents(t *testing.T) {
	c := New(DefaultParams(0.43, 2))
	centroid := geom.Vec2{}
	in := []geom.Vec2{{X: -0.1}, {X: 0.1}}
	out, done := c.Execute(in, centroid, centroid, 1, TypeEllipse)
	if done {
		t.Fatal("crowded agents should not be settled")
	}
	if before, after := in[0].Dist(in[1]), out[0].Dist(out[1]); after <= before {
		t.Fatalf("agents should spread: before %.3f after %.3f", before, after)
	}
	if in[0].X != -0.1 {
		t.Fatal("input slice must not be modified")
	}
}

func TestExecuteSettledIsDone(t *testing.T) {
	c := New(DefaultParams(0.43, 2))
	in := []geom.Vec2{{X: -1}, {X: 1}}
	out, done := c.Execute(in, geom.Vec2{}, geom.Vec2{}, 1, TypeEllipse)
	if !done {
		t.Fatal("separated agents on the ellipse with no path velocity should be done")
	}
	for i := range in {
		if out[i].Dist(in[i]) > 1e-12 {
			t.Fatalf("agent %d moved from %v to %v", i, in[i], out[i])
		}
	}
}

func TestExecuteFollowsTargetWithSpeedCap(t *testing.T) {
	const vmax = 0.43
	c := New(DefaultParams(vmax, 2))
	centroid := geom.Vec2{}
	in := Spawn(centroid, 3, 2)
	target := geom.Vec2{X: 50}
	out, _ := c.Execute(in, target, centroid, 1, TypeEllipse)
	for i := range in {
		step := out[i].Sub(in[i])
		if step.Len() > vmax+1e-9 {
			t.Fatalf("agent %d moved %.4f, above cap %.2f", i, step.Len(), vmax)
		}
	}
	var meanBefore, meanAfter float64
	for i := range in {
		meanBefore += in[i].X
		meanAfter += out[i].X
	}
	if meanAfter <= meanBefore {
		t.Fatalf("group should advance towards the target: %.3f -> %.3f", meanBefore, meanAfter)
	}
}

func TestSpawnSpacing(t *testing.T) {
	pts := Spawn(geom.Vec2{X: 5, Y: 5}, 3, 2)
	for i := range pts {
		j := (i + 1) % len(pts)
		if d := pts[i].Dist(pts[j]); math.Abs(d-2) > 1e-9 {
			t.Fatalf("adjacent spacing %.4f, want 2", d)
		}
	}
}
