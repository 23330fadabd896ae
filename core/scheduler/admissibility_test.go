package scheduler

import (
	"testing"

	"github.com/kilianp07/prosumer/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPriceMask(t *testing.T) {
	m := PriceMask(model.TimeSeries{0.1, 0.2, 0.15, 0.3}, 0.15)
	assert.Equal(t, model.Mask{true, false, true, false}, m)
}

func TestCustomMask(t *testing.T) {
	price := model.Mask{true, true, true, false, false, true}
	assert.Equal(t, model.Mask{true, false, false, true, true, true}, CustomMask(price, 2))
	assert.Equal(t, model.Mask{true, true, true, true, true, true}, CustomMask(price, 0))
}

func TestOccupancyMask(t *testing.T) {
	m, err := OccupancyMask([][]float64{{1, 0, 0}, {0, 0, 1}}, 2, 7)
	require.NoError(t, err)
	assert.Equal(t, model.Mask{true, true, false, false, true, true, true}, m)

	_, err = OccupancyMask([][]float64{{1, 0}, {1}}, 2, 4)
	assert.ErrorIs(t, err, model.ErrInputShape)
	_, err = OccupancyMask([][]float64{{1}}, 0, 4)
	assert.ErrorIs(t, err, model.ErrDomain)
}

func TestCombine(t *testing.T) {
	m, err := Combine(model.Mask{true, true, false}, model.Mask{true, false, false}, model.Mask{true, true, true})
	require.NoError(t, err)
	assert.Equal(t, model.Mask{true, false, false}, m)

	_, err = Combine()
	assert.ErrorIs(t, err, model.ErrInputShape)
	_, err = Combine(model.Mask{true}, model.Mask{true, false})
	assert.ErrorIs(t, err, model.ErrInputShape)
}
