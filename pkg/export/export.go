// Package export writes simulation outputs in CSV and JSON.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/kilianp07/prosumer/core/model"
)

// WriteJSON writes v to w as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteCSV writes aligned columns to w, one header row then one row per
// sample. Every column must have the same length.
func WriteCSV(w io.Writer, cols []model.NamedSeries) error {
	n := 0
	header := make([]string, len(cols))
	for i, c := range cols {
		header[i] = c.Name
		if i == 0 {
			n = len(c.Values)
		} else if len(c.Values) != n {
			return fmt.Errorf("%w: column %s has %d rows, want %d", model.ErrInputShape, c.Name, len(c.Values), n)
		}
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	rec := make([]string, len(cols))
	for row := 0; row < n; row++ {
		for i, c := range cols {
			rec[i] = strconv.FormatFloat(c.Values[row], 'f', -1, 64)
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFlowsCSV writes the input profiles followed by every flow of f.
func WriteFlowsCSV(w io.Writer, pv, demand model.TimeSeries, f *model.EnergyFlowSet) error {
	cols := append([]model.NamedSeries{{Name: "pv", Values: pv}, {Name: "demand", Values: demand}}, f.Series()...)
	return WriteCSV(w, cols)
}
