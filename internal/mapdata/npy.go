package mapdata

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"regexp"
	"strconv"
	"strings"
)

var npyMagic = []byte("\x93NUMPY")

var (
	descrRe = regexp.MustCompile(`'descr'\s*:\s*'([^']+)'`)
	orderRe = regexp.MustCompile(`'fortran_order'\s*:\s*(True|False)`)
	shapeRe = regexp.MustCompile(`'shape'\s*:\s*\(([^)]*)\)`)
)

// readNPY decodes a 2-d numpy array saved with np.save.
func readNPY(path string) (cols, rows int, values []float64, err error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, 0, nil, err
	}
	return decodeNPY(b)
}

func decodeNPY(b []byte) (cols, rows int, values []float64, err error) {
	if len(b) < 10 || !bytes.Equal(b[:6], npyMagic) {
		return 0, 0, nil, fmt.Errorf("%w: not a npy file", ErrMalformed)
	}
	major := b[6]
	var headerLen, off int
	switch major {
	case 1:
		headerLen = int(binary.LittleEndian.Uint16(b[8:10]))
		off = 10
	case 2, 3:
		if len(b) < 12 {
			return 0, 0, nil, fmt.Errorf("%w: truncated npy header", ErrMalformed)
		}
		headerLen = int(binary.LittleEndian.Uint32(b[8:12]))
		off = 12
	default:
		return 0, 0, nil, fmt.Errorf("%w: npy version %d", ErrMalformed, major)
	}
	if len(b) < off+headerLen {
		return 0, 0, nil, fmt.Errorf("%w: truncated npy header", ErrMalformed)
	}
	header := string(b[off : off+headerLen])
	data := b[off+headerLen:]

	descr := descrRe.FindStringSubmatch(header)
	order := orderRe.FindStringSubmatch(header)
	shape := shapeRe.FindStringSubmatch(header)
	if descr == nil || order == nil || shape == nil {
		return 0, 0, nil, fmt.Errorf("%w: npy header %q", ErrMalformed, header)
	}
	if order[1] == "True" {
		return 0, 0, nil, fmt.Errorf("%w: fortran-ordered arrays are not supported", ErrMalformed)
	}
	dims, err := parseShape(shape[1])
	if err != nil {
		return 0, 0, nil, err
	}
	if len(dims) != 2 {
		return 0, 0, nil, fmt.Errorf("%w: expected 2-d array, got shape %v", ErrMalformed, dims)
	}
	rows, cols = dims[0], dims[1]
	// every cell takes at least one byte, which also bounds rows*cols
	if cols > len(data) || rows > len(data)/cols {
		return 0, 0, nil, fmt.Errorf("%w: shape %dx%d exceeds npy payload of %d bytes", ErrMalformed, rows, cols, len(data))
	}
	n := rows * cols

	read, size, err := npyReader(descr[1])
	if err != nil {
		return 0, 0, nil, err
	}
	if len(data) < n*size {
		return 0, 0, nil, fmt.Errorf("%w: npy payload %d bytes, need %d: %v", ErrMalformed, len(data), n*size, io.ErrUnexpectedEOF)
	}
	values = make([]float64, n)
	for i := range values {
		values[i] = read(data[i*size:])
	}
	return cols, rows, values, nil
}

func parseShape(s string) ([]int, error) {
	var dims []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		d, err := strconv.Atoi(part)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("%w: shape %q", ErrMalformed, s)
		}
		dims = append(dims, d)
	}
	return dims, nil
}

func npyReader(descr string) (func([]byte) float64, int, error) {
	switch descr {
	case "|b1", "|u1":
		return func(b []byte) float64 { return float64(b[0]) }, 1, nil
	case "<i8":
		return func(b []byte) float64 { return float64(int64(binary.LittleEndian.Uint64(b))) }, 8, nil
	case "<i4":
		return func(b []byte) float64 { return float64(int32(binary.LittleEndian.Uint32(b))) }, 4, nil
	case "<f4":
		return func(b []byte) float64 { return float64(math.Float32frombits(binary.LittleEndian.Uint32(b))) }, 4, nil
	case "<f8":
		return func(b []byte) float64 { return math.Float64frombits(binary.LittleEndian.Uint64(b)) }, 8, nil
	}
	return nil, 0, fmt.Errorf("%w: unsupported npy dtype %q", ErrMalformed, descr)
}
