package mapdata

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	r.Comment = '#'
	var records [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func readGridCSV(path string) (cols, rows int, values []float64, err error) {
	records, err := readCSV(path)
	if err != nil {
		return 0, 0, nil, err
	}
	for i, rec := range records {
		if i == 0 {
			cols = len(rec)
		} else if len(rec) != cols {
			return 0, 0, nil, fmt.Errorf("%w: row %d has %d columns, want %d", ErrMalformed, i, len(rec), cols)
		}
		for _, field := range rec {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return 0, 0, nil, fmt.Errorf("%w: row %d: %v", ErrMalformed, i, err)
			}
			values = append(values, v)
		}
	}
	return cols, len(records), values, nil
}
