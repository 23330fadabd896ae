package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParametersValidate(t *testing.T) {
	ok := SimulationParameters{BatteryCapacity: 5, MaxPower: 3, BatteryEfficiency: 0.9, InverterEfficiency: 0.95, Timestep: 0.25}
	require.NoError(t, ok.Validate())

	cases := map[string]func(p *SimulationParameters){
		"zero timestep":      func(p *SimulationParameters) { p.Timestep = 0 },
		"zero battery eff":   func(p *SimulationParameters) { p.BatteryEfficiency = 0 },
		"inverter eff > 1":   func(p *SimulationParameters) { p.InverterEfficiency = 1.2 },
		"negative capacity":  func(p *SimulationParameters) { p.BatteryCapacity = -1 },
		"negative max power": func(p *SimulationParameters) { p.MaxPower = -0.1 },
	}
	for name, mutate := range cases {
		p := ok
		mutate(&p)
		err := p.Validate()
		if !errors.Is(err, ErrDomain) {
			t.Errorf("%s: expected ErrDomain, got %v", name, err)
		}
	}
}

func TestParametersHasStorage(t *testing.T) {
	assert.False(t, SimulationParameters{BatteryCapacity: 0, MaxPower: 5}.HasStorage())
	assert.False(t, SimulationParameters{BatteryCapacity: 5, MaxPower: 0}.HasStorage())
	assert.True(t, SimulationParameters{BatteryCapacity: 5, MaxPower: 5}.HasStorage())
	assert.Equal(t, 96, SimulationParameters{Timestep: 0.25}.StepsPerDay())
}

func TestMaskAnd(t *testing.T) {
	a := Mask{true, true, false, true}
	b := Mask{true, false, false, true}
	out, err := a.And(b)
	require.NoError(t, err)
	assert.Equal(t, Mask{true, false, false, true}, out)
	assert.Equal(t, []int{0, 3}, out.Indices())
	assert.Equal(t, 2, out.Count())
	// receiver untouched
	assert.True(t, a[1])

	_, err = a.And(Mask{true})
	assert.ErrorIs(t, err, ErrInputShape)
}

func TestTimeSeriesHelpers(t *testing.T) {
	s := TimeSeries{1, 3, 2}
	assert.InDelta(t, 6, s.Sum(), 1e-12)
	assert.InDelta(t, 3, s.Max(), 1e-12)
	assert.InDelta(t, 1.5, s.Energy(0.25), 1e-12)
	assert.Equal(t, TimeSeries{3, 2}, s.Window(1, 5))
	assert.Nil(t, s.Window(3, 2))
	assert.Zero(t, TimeSeries{}.Max())

	c := s.Clone()
	c[0] = 9
	assert.InDelta(t, 1, s[0], 0)
}

func TestFlowSetCheck(t *testing.T) {
	p := SimulationParameters{BatteryCapacity: 1, MaxPower: 1, BatteryEfficiency: 1, InverterEfficiency: 1, Timestep: 1}
	pv := TimeSeries{2, 0}
	demand := TimeSeries{1, 1}
	f := NewEnergyFlowSet(2)
	f.PVToInverter = TimeSeries{1, 0}
	f.PVToStorage = TimeSeries{1, 0}
	f.StorageToInverter = TimeSeries{0, 1}
	f.InverterToLoad = TimeSeries{1, 1}
	f.GridToLoad = TimeSeries{0, 0}
	f.InverterToGrid = TimeSeries{0, 0}
	f.LevelOfCharge = TimeSeries{1, 0}
	require.NoError(t, f.Check(pv, demand, p, 1e-9))

	f.GridToLoad[1] = 0.5
	err := f.Check(pv, demand, p, 1e-9)
	assert.ErrorIs(t, err, ErrInvariant)
	assert.Contains(t, err.Error(), "demand balance")

	assert.ErrorIs(t, f.Check(TimeSeries{1}, demand, p, 1e-9), ErrInputShape)
}

func TestFlowSetTotals(t *testing.T) {
	f := NewEnergyFlowSet(2)
	f.InverterToGrid = TimeSeries{2, 4}
	f.GridToLoad = TimeSeries{1, 0}
	f.LevelOfCharge = TimeSeries{0, 3}
	tot := f.Totals(0.5)
	assert.InDelta(t, 3, tot.InverterToGrid, 1e-12)
	assert.InDelta(t, 0.5, tot.GridToLoad, 1e-12)
	assert.InDelta(t, 3, tot.FinalCharge, 1e-12)
	assert.Len(t, f.Series(), 8)
}
