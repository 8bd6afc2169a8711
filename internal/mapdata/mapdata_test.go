package mapdata

import (
	"encoding/binary"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"recreate/internal/geom"
)

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func npyBytes(descr string, rows, cols int, payload []byte) []byte {
	header := "{'descr': '" + descr + "', 'fortran_order': False, 'shape': (" +
		strconv.Itoa(rows) + ", " + strconv.Itoa(cols) + "), }"
	for (10+len(header)+1)%64 != 0 {
		header += " "
	}
	header += "\n"
	out := append([]byte{}, npyMagic...)
	out = append(out, 1, 0)
	var hl [2]byte
	binary.LittleEndian.PutUint16(hl[:], uint16(len(header)))
	out = append(out, hl[:]...)
	out = append(out, header...)
	return append(out, payload...)
}

func TestLoadGridNPYBool(t *testing.T) {
	// 2 rows x 3 cols, only (x=2, y=0) and (x=0, y=1) blocked
	payload := []byte{0, 0, 1, 1, 0, 0}
	path := writeFile(t, "map.npy", npyBytes("|b1", 2, 3, payload))

	g, err := LoadGrid(path)
	if err != nil {
		t.Fatalf("LoadGrid: %v", err)
	}
	if g.Cols() != 3 || g.Rows() != 2 {
		t.Fatalf("dims = %dx%d, want 3x2", g.Cols(), g.Rows())
	}
	if !g.IsBlocked(2, 0) || !g.IsBlocked(0, 1) {
		t.Fatal("expected blocked cells missing")
	}
	if g.IsBlocked(0, 0) || g.IsBlocked(1, 1) {
		t.Fatal("free cells reported blocked")
	}
	if !g.IsBlocked(-1, 0) || !g.IsBlocked(3, 0) {
		t.Fatal("out of range cells must be blocked")
	}
}

func TestLoadGridNPYFloat64(t *testing.T) {
	vals := []float64{0, 0.5, 0, 0}
	payload := make([]byte, 8*len(vals))
	for i, v := range vals {
		binary.LittleEndian.PutUint64(payload[i*8:], math.Float64bits(v))
	}
	g, err := LoadGrid(writeFile(t, "map.npy", npyBytes("<f8", 2, 2, payload)))
	if err != nil {
		t.Fatalf("LoadGrid: %v", err)
	}
	if !g.IsBlocked(1, 0) || g.IsBlocked(0, 1) {
		t.Fatal("float grid decoded incorrectly")
	}
}

func TestLoadGridRejectsMalformed(t *testing.T) {
	cases := map[string][]byte{
		"bad.npy":    []byte("not numpy at all"),
		"trunc.npy":  npyBytes("|u1", 4, 4, []byte{0, 0}),
		"dtype.npy":  npyBytes("<c16", 1, 1, make([]byte, 16)),
		"neg.npy":    npyBytes("|u1", -2, 3, make([]byte, 6)),
		"zero.npy":   npyBytes("|u1", 0, 3, nil),
		"huge.npy":   npyBytes("<f8", 1<<40, 1<<40, make([]byte, 64)),
		"ragged.csv": []byte("0,0,0\n0,1\n"),
		"map.png":    []byte{},
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadGrid(writeFile(t, name, data))
			if !errors.Is(err, ErrMalformed) {
				t.Fatalf("expected ErrMalformed, got %v", err)
			}
		})
	}
}

func TestLoadGridCSV(t *testing.T) {
	g, err := LoadGrid(writeFile(t, "map.csv", []byte("# occupancy\n0,0,0,0\n0,1,1,0\n")))
	if err != nil {
		t.Fatalf("LoadGrid: %v", err)
	}
	if g.Cols() != 4 || g.Rows() != 2 {
		t.Fatalf("dims = %dx%d, want 4x2", g.Cols(), g.Rows())
	}
	if !g.IsBlocked(1, 1) || g.IsBlocked(3, 1) {
		t.Fatal("csv grid decoded incorrectly")
	}
}

func TestCartesianBounds(t *testing.T) {
	g := EmptyGrid(291, 231)
	b := g.CartesianBounds()
	if b.Min.X >= 0 || b.Max.X <= 0 || b.Min.Y >= 0 || b.Max.Y <= 0 {
		t.Fatalf("origin should be inside cartesian bounds, got %+v", b)
	}
	if !b.Contains(geom.Vec2{}) {
		t.Fatal("origin not contained")
	}
}

func TestLoadNodes(t *testing.T) {
	csv := "x,y\n0,0\n9,4\n18,8\n"
	table, err := LoadNodes(writeFile(t, "nodes.csv", []byte(csv)), 1)
	if err != nil {
		t.Fatalf("LoadNodes: %v", err)
	}
	if table.Len() != 3 {
		t.Fatalf("len = %d, want 3", table.Len())
	}
	if p := table.Node(1).Pos; p != (geom.Vec2{}) {
		t.Fatalf("reference node should be at origin, got %v", p)
	}
	// row (18, 8) -> (8*1.125, 18/1.125) = (9, 16); minus ref (4.5, 8)
	want := geom.Vec2{X: 4.5, Y: 8}
	if p := table.Node(2).Pos; math.Abs(p.X-want.X) > 1e-9 || math.Abs(p.Y-want.Y) > 1e-9 {
		t.Fatalf("node 2 = %v, want %v", p, want)
	}
	if got := table.Nearest(geom.Vec2{X: 4, Y: 7}); got != 2 {
		t.Fatalf("nearest = %d, want 2", got)
	}
}

func TestLoadNodesBadReference(t *testing.T) {
	_, err := LoadNodes(writeFile(t, "nodes.csv", []byte("0,0\n1,1\n")), DefaultReferenceNode)
	if !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}
