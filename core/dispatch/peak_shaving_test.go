package dispatch

import (
	"testing"

	"github.com/kilianp07/prosumer/core/model"
	"github.com/kilianp07/prosumer/internal/numeric"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// twoSunnyDays returns 48 hourly samples with the same five-hour PV peak on
// both days and a flat 1 kW load.
func twoSunnyDays() (pv, demand model.TimeSeries) {
	pv = make(model.TimeSeries, 48)
	demand = make(model.TimeSeries, 48)
	for i := range demand {
		demand[i] = 1
	}
	for _, start := range []int{10, 34} {
		copy(pv[start:], []float64{2, 3, 4, 3, 2})
	}
	return pv, demand
}

func TestSolveThreshold(t *testing.T) {
	th, err := solveThreshold(model.TimeSeries{0, 1, 3, 1}, 2, 1, 4)
	require.NoError(t, err)
	assert.InDelta(t, 1, th, 1e-6)

	th, err = solveThreshold(model.TimeSeries{0.5, 0.5}, 2, 1, 4)
	require.NoError(t, err)
	assert.Zero(t, th)

	// the surplus above the threshold matches the headroom
	th, err = solveThreshold(model.TimeSeries{1, 2, 3, 2, 1}, 3, 0.5, 4)
	require.NoError(t, err)
	var above float64
	for _, x := range []float64{1, 2, 3, 2, 1} {
		if x > th {
			above += (x - th) * 0.5
		}
	}
	assert.InDelta(t, 3, above, 1e-6)
}

func TestPeakShavingDailyThreshold(t *testing.T) {
	pv, demand := twoSunnyDays()
	p := unitParams(3, 10)

	res, err := NewPeakShaving(Options{}, nil).SimulateWithThresholds(pv, demand, p)
	require.NoError(t, err)
	require.NoError(t, res.Flows.Check(pv, demand, p, 1e-6))

	ths := res.Thresholds()
	require.Len(t, ths, 2)
	assert.Equal(t, 0, ths[0].Index)
	assert.Equal(t, 24, ths[1].Index)
	assert.InDelta(t, 4.0/3, ths[0].Value, 1e-6)
	assert.InDelta(t, 4.0/3, ths[1].Value, 1e-6)

	f := res.Flows
	assertSeries(t, []float64{1, 4.0 / 3, 4.0 / 3, 4.0 / 3, 1}, f.InverterToGrid[10:15], "inverterToGrid")
	assert.InDelta(t, 3, f.PVToStorage[:24].Sum(), 1e-6)
	assert.InDelta(t, 3, f.LevelOfCharge[13], 1e-6)
	assert.InDelta(t, 0, f.LevelOfCharge[23], 1e-6)
}

func TestPeakShavingLowersExportPeak(t *testing.T) {
	pv, demand := twoSunnyDays()
	p := unitParams(3, 10)

	ps, err := NewPeakShaving(Options{}, nil).Simulate(pv, demand, p)
	require.NoError(t, err)
	sc, err := NewSelfConsumption(Options{}, nil).Simulate(pv, demand, p)
	require.NoError(t, err)

	assert.InDelta(t, 3, sc.InverterToGrid.Max(), 1e-9)
	assert.Less(t, ps.InverterToGrid.Max(), sc.InverterToGrid.Max())
	// same stored energy, only shifted to the peak
	assert.InDelta(t, sc.PVToStorage.Sum(), ps.PVToStorage.Sum(), 1e-6)
}

func TestPeakShavingSmallSurplusMatchesSelfConsumption(t *testing.T) {
	pv := model.TimeSeries{0, 0, 1.5, 1.5, 1.2, 0, 0}
	demand := model.TimeSeries{1, 1, 1, 1, 1, 1, 1}
	p := unitParams(10, 10)

	res, err := NewPeakShaving(Options{}, nil).SimulateWithThresholds(pv, demand, p)
	require.NoError(t, err)
	require.Len(t, res.Thresholds(), 1)
	assert.Zero(t, res.Thresholds()[0].Value)

	sc, err := NewSelfConsumption(Options{}, nil).Simulate(pv, demand, p)
	require.NoError(t, err)
	assert.Equal(t, sc, res.Flows)
}

func TestPeakShavingConvergenceFailure(t *testing.T) {
	orig := solveRoot
	solveRoot = func(func(float64) float64, float64, float64, float64, int) (float64, error) {
		return 0, numeric.ErrMaxIter
	}
	t.Cleanup(func() { solveRoot = orig })

	pv, demand := twoSunnyDays()
	f, err := NewPeakShaving(Options{}, nil).Simulate(pv, demand, unitParams(3, 10))
	assert.ErrorIs(t, err, ErrConvergence)
	assert.Nil(t, f)
}
