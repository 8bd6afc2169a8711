package config

import "fmt"

type Primitive string

const (
	PrimitiveFormation  Primitive = "formation"
	PrimitivePatrolling Primitive = "patrolling"
)

// ActionTable holds the default red-team actions, keyed team -> platoon key.
type ActionTable struct {
	Teams map[string]map[string]ActionDef `yaml:"teams"`
}

type ActionDef struct {
	VehicleType VehicleType `yaml:"vehicle_type"`
	Primitive   Primitive   `yaml:"primitive"`
	CentroidPos Vec2Def     `yaml:"centroid_pos"`
	TargetPos   *Vec2Def    `yaml:"target_pos"`
	SourcePos   *Vec2Def    `yaml:"source_pos"`
	SinkPos     *Vec2Def    `yaml:"sink_pos"`
	SourceNode  *int        `yaml:"source_node"`
	SinkNode    *int        `yaml:"sink_node"`
	Note        string      `yaml:"note"`
}

type Vec2Def struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

// PlatoonKey names the i-th (1-based) platoon of a vehicle type.
func PlatoonKey(vt VehicleType, i int) string {
	return fmt.Sprintf("%s_p_%d", vt, i)
}

// Lookup returns the default action for one platoon.
func (t *ActionTable) Lookup(team, key string) (ActionDef, error) {
	if t == nil {
		return ActionDef{}, fmt.Errorf("%w: no default action table", ErrConfiguration)
	}
	platoons, ok := t.Teams[team]
	if !ok {
		return ActionDef{}, fmt.Errorf("%w: team %q missing from default actions", ErrConfiguration, team)
	}
	def, ok := platoons[key]
	if !ok {
		return ActionDef{}, fmt.Errorf("%w: platoon %q missing from team %q", ErrConfiguration, key, team)
	}
	return def, nil
}

// Validate checks the entries every expected platoon of team needs. Node
// references must already be resolved to positions.
func (t *ActionTable) Validate(team string, nUAV, nUGV int) error {
	check := func(vt VehicleType, n int) error {
		for i := 1; i <= n; i++ {
			key := PlatoonKey(vt, i)
			def, err := t.Lookup(team, key)
			if err != nil {
				return err
			}
			if def.VehicleType != vt {
				return fmt.Errorf("%w: platoon %q has vehicle_type %q", ErrConfiguration, key, def.VehicleType)
			}
			if def.SourceNode != nil || def.SinkNode != nil {
				return fmt.Errorf("%w: platoon %q has unresolved node references (see ResolveNodes)", ErrConfiguration, key)
			}
			switch def.Primitive {
			case PrimitiveFormation:
			case PrimitivePatrolling:
				if def.SinkPos == nil {
					return fmt.Errorf("%w: patrolling platoon %q needs sink_pos or sink_node", ErrConfiguration, key)
				}
			default:
				return fmt.Errorf("%w: platoon %q has unknown primitive %q", ErrConfiguration, key, def.Primitive)
			}
		}
		return nil
	}
	if err := check(UAV, nUAV); err != nil {
		return err
	}
	return check(UGV, nUGV)
}

// NodeLocator resolves a node id to its position.
type NodeLocator interface {
	Len() int
	NodePos(id int) (float64, float64)
}

// ResolveNodes replaces source_node/sink_node references with positions.
func (t *ActionTable) ResolveNodes(nodes NodeLocator) error {
	resolve := func(key string, id *int) (*Vec2Def, error) {
		if id == nil {
			return nil, nil
		}
		if nodes == nil || *id < 0 || *id >= nodes.Len() {
			return nil, fmt.Errorf("%w: platoon %q references unknown node %d", ErrConfiguration, key, *id)
		}
		x, y := nodes.NodePos(*id)
		return &Vec2Def{X: x, Y: y}, nil
	}
	for _, platoons := range t.Teams {
		for key, def := range platoons {
			src, err := resolve(key, def.SourceNode)
			if err != nil {
				return err
			}
			sink, err := resolve(key, def.SinkNode)
			if err != nil {
				return err
			}
			if src != nil {
				def.SourcePos, def.SourceNode = src, nil
			}
			if sink != nil {
				def.SinkPos, def.SinkNode = sink, nil
			}
			platoons[key] = def
		}
	}
	return nil
}
