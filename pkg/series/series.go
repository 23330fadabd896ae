// Package series loads named numeric columns from CSV files.
package series

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/kilianp07/prosumer/core/model"
)

// ErrNoColumn is returned when a requested column is missing.
var ErrNoColumn = errors.New("column not found")

// Table holds the numeric columns of a CSV file in header order. Columns
// named "time" or "timestamp" are kept as raw labels in Index.
type Table struct {
	Columns []string
	Index   []string
	data    map[string]model.TimeSeries
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if len(t.Columns) == 0 {
		return len(t.Index)
	}
	return len(t.data[t.Columns[0]])
}

// Column returns the named column.
func (t *Table) Column(name string) (model.TimeSeries, error) {
	s, ok := t.data[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (have %s)", ErrNoColumn, name, strings.Join(t.Columns, ", "))
	}
	return s, nil
}

// Sum returns the elementwise sum of the named columns.
func (t *Table) Sum(names ...string) (model.TimeSeries, error) {
	out := make(model.TimeSeries, t.Len())
	for _, n := range names {
		s, err := t.Column(n)
		if err != nil {
			return nil, err
		}
		for i, v := range s {
			out[i] += v
		}
	}
	return out, nil
}

// Load reads the CSV file at path.
func Load(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	t, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Read parses CSV from r. The first row is the header; every other cell of a
// numeric column must parse as a float.
func Read(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	t := &Table{data: make(map[string]model.TimeSeries)}
	indexCol := -1
	for i, h := range header {
		h = strings.TrimSpace(h)
		header[i] = h
		switch {
		case isIndex(h) && indexCol < 0:
			indexCol = i
		case h == "":
			return nil, fmt.Errorf("%w: empty header in column %d", model.ErrInputShape, i+1)
		default:
			if _, dup := t.data[h]; dup {
				return nil, fmt.Errorf("%w: duplicate column %q", model.ErrInputShape, h)
			}
			t.Columns = append(t.Columns, h)
			t.data[h] = nil
		}
	}
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		for i, cell := range rec {
			if i == indexCol {
				t.Index = append(t.Index, cell)
				continue
			}
			v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
			if err != nil {
				return nil, fmt.Errorf("line %d column %s: %w", line, header[i], err)
			}
			t.data[header[i]] = append(t.data[header[i]], v)
		}
	}
	return t, nil
}

func isIndex(name string) bool {
	n := strings.ToLower(name)
	return n == "time" || n == "timestamp"
}
