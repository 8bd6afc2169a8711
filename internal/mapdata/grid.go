// Package mapdata holds the static map artifacts shared by every platoon:
// the occupancy grid in pixel space and the patrol/building node table.
package mapdata

import (
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"recreate/internal/geom"
)

var ErrMalformed = errors.New("malformed map artifact")

// Grid is an immutable row-major walkability grid where true = blocked.
// x is the column and y the row, one cell per pixel.
type Grid struct {
	cols    int
	rows    int
	blocked []bool
}

func NewGrid(cols, rows int, blocked []bool) (*Grid, error) {
	if cols <= 0 || rows <= 0 {
		return nil, fmt.Errorf("%w: grid dimensions %dx%d", ErrMalformed, cols, rows)
	}
	if len(blocked) != cols*rows {
		return nil, fmt.Errorf("%w: %d cells for a %dx%d grid", ErrMalformed, len(blocked), cols, rows)
	}
	cp := make([]bool, len(blocked))
	copy(cp, blocked)
	return &Grid{cols: cols, rows: rows, blocked: cp}, nil
}

// EmptyGrid returns a fully walkable grid.
func EmptyGrid(cols, rows int) *Grid {
	g, err := NewGrid(cols, rows, make([]bool, cols*rows))
	if err != nil {
		panic(err)
	}
	return g
}

func (g *Grid) Cols() int { return g.cols }
func (g *Grid) Rows() int { return g.rows }

// IsBlocked returns true if the cell at (cx, cy) is not walkable.
func (g *Grid) IsBlocked(cx, cy int) bool {
	if cx < 0 || cy < 0 || cx >= g.cols || cy >= g.rows {
		return true
	}
	return g.blocked[cy*g.cols+cx]
}

// Cell maps a pixel-space point to its grid cell.
func (g *Grid) Cell(p geom.Vec2) (int, int) {
	return int(math.Floor(p.X)), int(math.Floor(p.Y))
}

// Bounds is the pixel-space extent of the grid.
func (g *Grid) Bounds() geom.Rect {
	return geom.Rect{Max: geom.Vec2{X: float64(g.cols - 1), Y: float64(g.rows - 1)}}
}

// CartesianBounds is Bounds expressed in centroid space.
func (g *Grid) CartesianBounds() geom.Rect {
	b := g.Bounds()
	return geom.Rect{Min: geom.PixelToCartesian(b.Min), Max: geom.PixelToCartesian(b.Max)}
}

// LoadGrid reads an occupancy grid from a .npy or .csv file. Any non-zero
// cell is treated as blocked.
func LoadGrid(path string) (*Grid, error) {
	var (
		cols, rows int
		values     []float64
		err        error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".npy":
		cols, rows, values, err = readNPY(path)
	case ".csv", ".txt":
		cols, rows, values, err = readGridCSV(path)
	default:
		return nil, fmt.Errorf("%w: unsupported grid format %q", ErrMalformed, filepath.Ext(path))
	}
	if err != nil {
		return nil, fmt.Errorf("load grid %s: %w", path, err)
	}
	blocked := make([]bool, len(values))
	for i, v := range values {
		blocked[i] = v != 0
	}
	return NewGrid(cols, rows, blocked)
}
