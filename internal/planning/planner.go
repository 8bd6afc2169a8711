// Package planning finds walkable paths over the static occupancy grid.
package planning

import (
	"container/heap"
	"errors"
	"fmt"
	"math"

	"recreate/internal/geom"
	"recreate/internal/mapdata"
)

var ErrNoPathFound = errors.New("no path found")

// Planner runs A* over a shared read-only grid. It keeps no per-query state
// and is safe for concurrent use.
type Planner struct {
	grid *mapdata.Grid
}

func NewPlanner(grid *mapdata.Grid) *Planner {
	return &Planner{grid: grid}
}

// FindPath returns pixel-space waypoints from start to end inclusive.
// With smooth set, intermediate waypoints that have a clear line of sight
// past them are dropped.
func (p *Planner) FindPath(start, end geom.Vec2, smooth bool) ([]geom.Vec2, error) {
	scx, scy := p.grid.Cell(start)
	gcx, gcy := p.grid.Cell(end)
	if p.grid.IsBlocked(scx, scy) {
		return nil, fmt.Errorf("%w: start %v is blocked", ErrNoPathFound, start)
	}
	if p.grid.IsBlocked(gcx, gcy) {
		return nil, fmt.Errorf("%w: end %v is blocked", ErrNoPathFound, end)
	}

	cells := p.search(scx, scy, gcx, gcy)
	if cells == nil {
		return nil, fmt.Errorf("%w: %v -> %v", ErrNoPathFound, start, end)
	}
	if smooth {
		cells = p.smooth(cells)
	}

	path := make([]geom.Vec2, len(cells))
	for i, c := range cells {
		path[i] = geom.Vec2{X: float64(c[0]), Y: float64(c[1])}
	}
	// endpoints keep their exact sub-cell position
	path[0] = start
	if len(path) == 1 {
		if start != end {
			path = append(path, end)
		}
	} else {
		path[len(path)-1] = end
	}
	return path, nil
}

// --- A* ---

type pathNode struct {
	cx, cy int
	g, h   float64
	parent *pathNode
	index  int // heap index
}

type openList []*pathNode

func (ol openList) Len() int { return len(ol) }
func (ol openList) Less(i, j int) bool { return (ol[i].g + ol[i].h) < (ol[j].g + ol[j].h) }
func (ol openList) Swap(i, j int) { ol[i], ol[j] = ol[j], ol[i]; ol[i].index = i; ol[j].index = j }
func (ol *openList) Push(x any) { n := x.(*pathNode); n.index = len(*ol); *ol = append(*ol, n) }
func (ol *openList) Pop() any {
	old := *ol
	n := old[len(old)-1]
	old[len(old)-1] = nil
	*ol = old[:len(old)-1]
	return n
}

var dirs = [8][2]int{
	{1, 0}, {-1, 0}, {0, 1}, {0, -1},
	{1, 1}, {1, -1}, {-1, 1}, {-1, -1},
}

func octile(ax, ay, bx, by int) float64 {
	dx := math.Abs(float64(ax - bx))
	dy := math.Abs(float64(ay - by))
	return dx + dy + (math.Sqrt2-2)*math.Min(dx, dy)
}

func (p *Planner) search(scx, scy, gcx, gcy int) [][2]int {
	cols := p.grid.Cols()
	key := func(cx, cy int) int { return cy*cols + cx }

	n := cols * p.grid.Rows()
	closed := make([]bool, n)
	best := make([]float64, n)
	for i := range best {
		best[i] = math.Inf(1)
	}

	start := &pathNode{cx: scx, cy: scy, h: octile(scx, scy, gcx, gcy)}
	ol := &openList{start}
	heap.Init(ol)
	best[key(scx, scy)] = 0

	for ol.Len() > 0 {
		cur := heap.Pop(ol).(*pathNode)
		if cur.cx == gcx && cur.cy == gcy {
			return buildPath(cur)
		}
		k := key(cur.cx, cur.cy)
		if closed[k] {
			continue
		}
		closed[k] = true

		for _, d := range dirs {
			nx, ny := cur.cx+d[0], cur.cy+d[1]
			if p.grid.IsBlocked(nx, ny) {
				continue
			}
			// no diagonal corner-cutting through blocked cells
			if d[0] != 0 && d[1] != 0 {
				if p.grid.IsBlocked(cur.cx+d[0], cur.cy) || p.grid.IsBlocked(cur.cx, cur.cy+d[1]) {
					continue
				}
			}
			nk := key(nx, ny)
			if closed[nk] {
				continue
			}
			cost := 1.0
			if d[0] != 0 && d[1] != 0 {
				cost = math.Sqrt2
			}
			g := cur.g + cost
			if g >= best[nk] {
				continue
			}
			best[nk] = g
			heap.Push(ol, &pathNode{cx: nx, cy: ny, g: g, h: octile(nx, ny, gcx, gcy), parent: cur})
		}
	}
	return nil
}

func buildPath(end *pathNode) [][2]int {
	var cells [][2]int
	for n := end; n != nil; n = n.parent {
		cells = append(cells, [2]int{n.cx, n.cy})
	}
	for i, j := 0, len(cells)-1; i < j; i, j = i+1, j-1 {
		cells[i], cells[j] = cells[j], cells[i]
	}
	return cells
}

// --- smoothing ---

// smooth greedily keeps the farthest waypoint still visible from the last
// kept one.
func (p *Planner) smooth(cells [][2]int) [][2]int {
	if len(cells) < 3 {
		return cells
	}
	out := [][2]int{cells[0]}
	anchor := 0
	for anchor < len(cells)-1 {
		next := anchor + 1
		for j := len(cells) - 1; j > anchor+1; j-- {
			if p.lineOfSight(cells[anchor], cells[j]) {
				next = j
				break
			}
		}
		out = append(out, cells[next])
		anchor = next
	}
	return out
}

// lineOfSight walks the Bresenham line between a and b.
func (p *Planner) lineOfSight(a, b [2]int) bool {
	x0, y0, x1, y1 := a[0], a[1], b[0], b[1]
	dx := absInt(x1 - x0)
	dy := -absInt(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	e := dx + dy
	for {
		if p.grid.IsBlocked(x0, y0) {
			return false
		}
		if x0 == x1 && y0 == y1 {
			return true
		}
		e2 := 2 * e
		if e2 >= dy {
			// diagonal steps must not squeeze between two blocked cells
			if e2 <= dx && p.grid.IsBlocked(x0+sx, y0) && p.grid.IsBlocked(x0, y0+sy) {
				return false
			}
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
