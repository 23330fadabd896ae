package scheduler

import (
	"fmt"

	"github.com/kilianp07/prosumer/core/model"
)

// PriceMask marks the slots whose tariff is at or below threshold.
func PriceMask(prices model.TimeSeries, threshold float64) model.Mask {
	m := make(model.Mask, len(prices))
	for i, p := range prices {
		m[i] = p <= threshold
	}
	return m
}

// CustomMask closes every cheap slot whose cheap window ends within lookahead
// steps, so that a cycle started there does not run into the expensive
// period.
func CustomMask(price model.Mask, lookahead int) model.Mask {
	m := make(model.Mask, len(price))
	for i := range m {
		m[i] = true
	}
	if lookahead <= 0 {
		return m
	}
	for i := 0; i+lookahead < len(price); i++ {
		if price[i] && !price[i+lookahead] {
			m[i] = false
		}
	}
	return m
}

// OccupancyMask builds an n-sample mask that is set when at least one
// occupant is at home. Each occupant series holds 1 for "present" and is
// upsampled by repeat; samples past the covered range copy the last value.
func OccupancyMask(occupants [][]float64, repeat, n int) (model.Mask, error) {
	if repeat <= 0 {
		return nil, fmt.Errorf("%w: repeat must be positive, got %d", model.ErrDomain, repeat)
	}
	if len(occupants) == 0 {
		return nil, fmt.Errorf("%w: no occupant series", model.ErrInputShape)
	}
	steps := len(occupants[0])
	present := make([]bool, steps)
	for k, occ := range occupants {
		if len(occ) != steps {
			return nil, fmt.Errorf("%w: occupant %d has %d samples, want %d", model.ErrInputShape, k, len(occ), steps)
		}
		for i, v := range occ {
			if v == 1 {
				present[i] = true
			}
		}
	}
	m := make(model.Mask, n)
	for i := range m {
		src := i / repeat
		if src >= steps {
			if i > 0 {
				m[i] = m[i-1]
			}
			continue
		}
		m[i] = present[src]
	}
	return m, nil
}

// Combine returns the conjunction of all masks.
func Combine(masks ...model.Mask) (model.Mask, error) {
	if len(masks) == 0 {
		return nil, fmt.Errorf("%w: no masks to combine", model.ErrInputShape)
	}
	return masks[0].And(masks[1:]...)
}
