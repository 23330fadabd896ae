package model

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// TimeSeries is an ordered sequence of samples at a fixed timestep. The index
// position encodes time.
type TimeSeries []float64

// Sum returns the sum of all samples.
func (s TimeSeries) Sum() float64 {
	if len(s) == 0 {
		return 0
	}
	return floats.Sum(s)
}

// Max returns the largest sample, or 0 for an empty series.
func (s TimeSeries) Max() float64 {
	if len(s) == 0 {
		return 0
	}
	return floats.Max(s)
}

// Energy integrates the series (kW) over the timestep (h) and returns kWh.
func (s TimeSeries) Energy(timestep float64) float64 {
	return s.Sum() * timestep
}

// Clone returns an independent copy of s.
func (s TimeSeries) Clone() TimeSeries {
	if s == nil {
		return nil
	}
	out := make(TimeSeries, len(s))
	copy(out, s)
	return out
}

// Window returns s[from:from+n] clipped to the series bounds.
func (s TimeSeries) Window(from, n int) TimeSeries {
	if from >= len(s) || n <= 0 {
		return nil
	}
	to := from + n
	if to > len(s) {
		to = len(s)
	}
	return s[from:to]
}

// Mask marks the samples of a series where an action is admissible.
type Mask []bool

// And returns the elementwise conjunction of m with the other masks.
func (m Mask) And(others ...Mask) (Mask, error) {
	out := make(Mask, len(m))
	copy(out, m)
	for i, o := range others {
		if len(o) != len(m) {
			return nil, fmt.Errorf("%w: mask %d has %d samples, want %d", ErrInputShape, i+1, len(o), len(m))
		}
		for j := range out {
			out[j] = out[j] && o[j]
		}
	}
	return out, nil
}

// Indices returns the positions where the mask is set, in ascending order.
func (m Mask) Indices() []int {
	var idx []int
	for i, ok := range m {
		if ok {
			idx = append(idx, i)
		}
	}
	return idx
}

// Count returns the number of admissible samples.
func (m Mask) Count() int {
	n := 0
	for _, ok := range m {
		if ok {
			n++
		}
	}
	return n
}
