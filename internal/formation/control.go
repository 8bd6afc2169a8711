// Package formation implements region-based shape control: agents follow a
// moving centroid while staying inside an ellipse around it and keeping a
// minimum separation from their nearest peers.
package formation

import (
	"math"

	"recreate/internal/geom"
)

type Type int

const (
	TypeEllipse Type = iota
)

const (
	defaultKNN   = 6
	doneSpeedPer = 0.015
)

// Params are the gains of the controller.
type Params struct {
	Alpha         float64 // containment gain
	Gamma         float64 // repulsion gain
	MinSeparation float64
	MaxSpeed      float64
	KNN           int
}

func DefaultParams(maxSpeed, minSeparation float64) Params {
	return Params{Alpha: 0.5, Gamma: 0.5, MinSeparation: minSeparation, MaxSpeed: maxSpeed, KNN: defaultKNN}
}

type Control struct {
	p Params
}

func New(p Params) *Control {
	if p.KNN <= 0 {
		p.KNN = defaultKNN
	}
	return &Control{p: p}
}

func (c *Control) Params() Params { return c.p }

// Execute advances every agent by one step of length dt. The returned slice
// is freshly allocated; agents is not modified. done reports whether the
// group has settled.
func (c *Control) Execute(agents []geom.Vec2, target, centroid geom.Vec2, dt float64, _ Type) ([]geom.Vec2, bool) {
	out := make([]geom.Vec2, len(agents))
	copy(out, agents)
	if len(agents) < 2 || dt <= 0 {
		return out, true
	}

	a, b := ellipseAxes(len(agents))
	knn := c.p.KNN
	if len(agents) < knn {
		knn = len(agents)
	}
	tree := geom.NewIndex(agents)
	pathVel := target.Sub(centroid).Scale(1 / dt).ClampLen(c.p.MaxSpeed)

	maxSpeed := 0.0
	for i, pos := range agents {
		peers := tree.Nearest(pos, knn)
		rep := Repulsion(pos, i, peers, c.p.MinSeparation, knn)
		cont := Containment(pos, centroid, a, b)

		vel := pathVel.Sub(cont.Scale(c.p.Alpha)).Sub(rep.Scale(c.p.Gamma))
		speed := vel.Len()
		if speed > maxSpeed {
			maxSpeed = speed
		}
		out[i] = pos.Add(vel.ClampLen(c.p.MaxSpeed).Scale(dt))
	}
	return out, maxSpeed < doneSpeedPer*float64(len(agents))
}

// ellipseAxes sizes the containment region by group size.
func ellipseAxes(n int) (float64, float64) {
	a := math.Ceil(float64(n) / 3)
	return a, a
}

// Repulsion is the soft-barrier gradient pointing from self towards the peers
// that are closer than minSep. Each violating peer contributes
// ((m²-d²)/m²)² along the unit direction, doubled, scaled by 1/k. Entries
// with Idx == self and coincident peers are skipped.
func Repulsion(self geom.Vec2, selfIdx int, peers []geom.Neighbor, minSep float64, k int) geom.Vec2 {
	if minSep <= 0 || k <= 0 {
		return geom.Vec2{}
	}
	m2 := minSep * minSep
	var sum geom.Vec2
	for _, n := range peers {
		if n.Idx == selfIdx {
			continue
		}
		diff := n.Pos.Sub(self)
		d := diff.Len()
		if d == 0 {
			continue
		}
		g := math.Max(0, (m2-d*d)/m2)
		sum = sum.Add(diff.Scale(2 * g * g / d))
	}
	return sum.Scale(1 / float64(k))
}

// Containment pulls an agent that left the ellipse back along (pos-centroid).
// Zero inside the ellipse.
func Containment(pos, centroid geom.Vec2, a, b float64) geom.Vec2 {
	rel := pos.Sub(centroid)
	f := rel.Div(geom.Vec2{X: a, Y: b}).Len() - 1
	if f <= 0 {
		return geom.Vec2{}
	}
	return rel.Scale(f)
}

// Spawn places n agents on a regular polygon around centroid with adjacent
// agents exactly minSep apart.
func Spawn(centroid geom.Vec2, n int, minSep float64) []geom.Vec2 {
	out := make([]geom.Vec2, n)
	if n < 2 {
		for i := range out {
			out[i] = centroid
		}
		return out
	}
	r := minSep / (2 * math.Sin(math.Pi/float64(n)))
	for i := range out {
		th := 2 * math.Pi * float64(i) / float64(n)
		out[i] = centroid.Add(geom.Vec2{X: math.Cos(th), Y: math.Sin(th)}.Scale(r))
	}
	return out
}
