// Package recreate reconstructs red-team "complexity" platoon behaviour by
// replaying recorded blue-team telemetry through per-platoon primitives.
package recreate

import (
	"errors"
	"slices"

	"recreate/internal/config"
	"recreate/internal/geom"
	"recreate/internal/planning"
)

var (
	ErrConfiguration = config.ErrConfiguration
	ErrShapeMismatch = errors.New("input sequences differ in length")
	ErrNoPathFound   = planning.ErrNoPathFound
)

// Action is the mutable per-platoon record a PrimitiveManager owns.
type Action struct {
	Key            string             `json:"key"`
	VehicleType    config.VehicleType `json:"vehicles_type"`
	Primitive      config.Primitive   `json:"primitive"`
	CentroidPos    geom.Vec2          `json:"centroid_pos"`
	StartPos       geom.Vec2          `json:"start_pos"`
	TargetPos      geom.Vec2          `json:"target_pos"`
	NextPos        geom.Vec2          `json:"next_pos"`
	SourcePos      geom.Vec2          `json:"source_pos"`
	SinkPos        geom.Vec2          `json:"sink_pos"`
	Visibility     bool               `json:"visibility"`
	Engage         bool               `json:"engage"`
	HitProbability float64            `json:"hit_probability,omitempty"`
	Vehicles       []geom.Vec2        `json:"vehicles,omitempty"`
}

// Clone returns a copy sharing no memory with a.
func (a Action) Clone() Action {
	a.Vehicles = slices.Clone(a.Vehicles)
	return a
}

// PlatoonState is one observed blue-team platoon in a tick.
type PlatoonState struct {
	Key         string             `json:"key"`
	VehicleType config.VehicleType `json:"vehicles_type"`
	CentroidPos geom.Vec2          `json:"centroid_pos"`
	Casualties  []string           `json:"casualties,omitempty"`
	Selected    bool               `json:"selected"`
	NVehicles   int                `json:"n_vehicles,omitempty"`
}

// Strength is the number of vehicles still alive; fallback is used when the
// telemetry does not report a platoon size.
func (p PlatoonState) Strength(fallback int) int {
	n := p.NVehicles
	if n <= 0 {
		n = fallback
	}
	n -= len(p.Casualties)
	if n < 0 {
		return 0
	}
	return n
}

type BlueState struct {
	Platoons []PlatoonState `json:"platoons"`
}

// Tick is one pre-synchronized telemetry sample.
type Tick struct {
	Time   float64   `json:"time"`
	Blue   BlueState `json:"blue"`
	Pause  bool      `json:"pause"`
	Update bool      `json:"update"`
}

// ComplexityState is the reconstructed red-team snapshot for one tick.
type ComplexityState struct {
	UAV map[string]Action `json:"uav"`
	UGV map[string]Action `json:"ugv"`
}

func newComplexityState() ComplexityState {
	return ComplexityState{UAV: map[string]Action{}, UGV: map[string]Action{}}
}

func (cs ComplexityState) Clone() ComplexityState {
	out := newComplexityState()
	for k, a := range cs.UAV {
		out.UAV[k] = a.Clone()
	}
	for k, a := range cs.UGV {
		out.UGV[k] = a.Clone()
	}
	return out
}

// Platoons lists the actions in output order: UAV platoons by index, then UGV.
func (cs ComplexityState) Platoons() []Action {
	out := make([]Action, 0, len(cs.UAV)+len(cs.UGV))
	for _, m := range []map[string]Action{cs.UAV, cs.UGV} {
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		slices.SortFunc(keys, ComparePlatoonKeys)
		for _, k := range keys {
			out = append(out, m[k])
		}
	}
	return out
}

// ComparePlatoonKeys orders "uav_p_2" before "uav_p_10".
func ComparePlatoonKeys(a, b string) int {
	if len(a) != len(b) {
		return len(a) - len(b)
	}
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
