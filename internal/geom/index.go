package geom

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/spatial/kdtree"
)

// Neighbor is one result of a nearest-neighbour query.
type Neighbor struct {
	Idx  int
	Pos  Vec2
	Dist float64
}

// Index is a static 2-d tree over a point set that remembers the original
// position of every point in the input slice.
type Index struct {
	tree *kdtree.Tree
	n    int
}

func NewIndex(pts []Vec2) *Index {
	ip := make(indexedPoints, len(pts))
	for i, p := range pts {
		ip[i] = indexedPoint{pos: p, idx: i}
	}
	if len(ip) == 0 {
		return &Index{}
	}
	return &Index{tree: kdtree.New(ip, false), n: len(ip)}
}

func (ix *Index) Len() int { return ix.n }

// Nearest returns up to k points closest to q, nearest first.
func (ix *Index) Nearest(q Vec2, k int) []Neighbor {
	if ix.tree == nil || k <= 0 {
		return nil
	}
	if k > ix.n {
		k = ix.n
	}
	keep := kdtree.NewNKeeper(k)
	ix.tree.NearestSet(keep, indexedPoint{pos: q, idx: -1})

	out := make([]Neighbor, 0, k)
	for _, c := range keep.Heap {
		p, ok := c.Comparable.(indexedPoint)
		if !ok {
			continue
		}
		out = append(out, Neighbor{Idx: p.idx, Pos: p.pos, Dist: math.Sqrt(c.Dist)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Dist != out[j].Dist {
			return out[i].Dist < out[j].Dist
		}
		return out[i].Idx < out[j].Idx
	})
	return out
}

type indexedPoint struct {
	pos Vec2
	idx int
}

func (p indexedPoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(indexedPoint)
	if d == 0 {
		return p.pos.X - q.pos.X
	}
	return p.pos.Y - q.pos.Y
}

func (p indexedPoint) Dims() int { return 2 }

// Distance is squared euclidean, as kdtree expects.
func (p indexedPoint) Distance(c kdtree.Comparable) float64 {
	d := p.pos.Sub(c.(indexedPoint).pos)
	return d.X*d.X + d.Y*d.Y
}

type indexedPoints []indexedPoint

func (p indexedPoints) Index(i int) kdtree.Comparable { return p[i] }
func (p indexedPoints) Len() int                      { return len(p) }
func (p indexedPoints) Pivot(d kdtree.Dim) int {
	return indexedPlane{indexedPoints: p, Dim: d}.Pivot()
}
func (p indexedPoints) Slice(start, end int) kdtree.Interface { return p[start:end] }

type indexedPlane struct {
	kdtree.Dim
	indexedPoints
}

func (p indexedPlane) Less(i, j int) bool {
	return p.indexedPoints[i].Compare(p.indexedPoints[j], p.Dim) < 0
}
func (p indexedPlane) Pivot() int { return kdtree.Partition(p, kdtree.MedianOfMedians(p)) }
func (p indexedPlane) Slice(start, end int) kdtree.SortSlicer {
	p.indexedPoints = p.indexedPoints[start:end]
	return p
}
func (p indexedPlane) Swap(i, j int) {
	p.indexedPoints[i], p.indexedPoints[j] = p.indexedPoints[j], p.indexedPoints[i]
}
