package mapdata

import (
	"fmt"
	"strconv"
	"strings"

	"recreate/internal/geom"
)

// DefaultReferenceNode is the node moved to the origin of centroid space.
const DefaultReferenceNode = 48

// 节点表坐标缩放系数
const nodeScale = 1.125

type Node struct {
	ID  int
	Pos geom.Vec2
}

// NodeTable is the static patrol/building graph vertex set.
type NodeTable struct {
	nodes []Node
	index *geom.Index
}

func NewNodeTable(pos []geom.Vec2) *NodeTable {
	nodes := make([]Node, len(pos))
	for i, p := range pos {
		nodes[i] = Node{ID: i, Pos: p}
	}
	return &NodeTable{nodes: nodes, index: geom.NewIndex(pos)}
}

// LoadNodes reads node positions from the first two CSV columns. Rows are
// rescaled and shifted so that node ref sits at the origin; ref < 0 skips
// the shift.
func LoadNodes(path string, ref int) (*NodeTable, error) {
	records, err := readCSV(path)
	if err != nil {
		return nil, fmt.Errorf("load nodes %s: %w", path, err)
	}
	var pos []geom.Vec2
	for i, rec := range records {
		if len(rec) < 2 {
			return nil, fmt.Errorf("load nodes %s: %w: row %d has %d columns", path, ErrMalformed, i, len(rec))
		}
		a, errA := strconv.ParseFloat(strings.TrimSpace(rec[0]), 64)
		b, errB := strconv.ParseFloat(strings.TrimSpace(rec[1]), 64)
		if errA != nil || errB != nil {
			if i == 0 {
				continue // header
			}
			return nil, fmt.Errorf("load nodes %s: %w: row %d is not numeric", path, ErrMalformed, i)
		}
		pos = append(pos, geom.Vec2{X: b * nodeScale, Y: a / nodeScale})
	}
	if ref >= 0 {
		if ref >= len(pos) {
			return nil, fmt.Errorf("load nodes %s: %w: reference node %d of %d", path, ErrMalformed, ref, len(pos))
		}
		origin := pos[ref]
		for i := range pos {
			pos[i] = pos[i].Sub(origin)
		}
	}
	return NewNodeTable(pos), nil
}

func (t *NodeTable) Len() int { return len(t.nodes) }

func (t *NodeTable) Node(i int) Node { return t.nodes[i] }

// Nearest returns the id of the node closest to p, or -1 for an empty table.
func (t *NodeTable) Nearest(p geom.Vec2) int {
	ns := t.index.Nearest(p, 1)
	if len(ns) == 0 {
		return -1
	}
	return ns[0].Idx
}

// NodePos exposes node coordinates for default-action node references.
func (t *NodeTable) NodePos(id int) (float64, float64) {
	p := t.nodes[id].Pos
	return p.X, p.Y
}
