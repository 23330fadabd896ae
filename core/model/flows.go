package model

import (
	"fmt"
	"math"
)

// EnergyFlowSet holds the power flows of one simulation, one series per flow,
// all aligned on the input index. DC quantities are measured before the
// inverter, AC quantities after it.
type EnergyFlowSet struct {
	PVToInverter      TimeSeries `json:"pv_to_inverter"`      // DC
	PVToStorage       TimeSeries `json:"pv_to_storage"`       // DC
	StorageToInverter TimeSeries `json:"storage_to_inverter"` // DC
	InverterToLoad    TimeSeries `json:"inverter_to_load"`    // AC
	GridToLoad        TimeSeries `json:"grid_to_load"`        // AC
	InverterToGrid    TimeSeries `json:"inverter_to_grid"`    // AC
	ResidualPV        TimeSeries `json:"residual_pv"`         // DC
	LevelOfCharge     TimeSeries `json:"level_of_charge"`     // kWh
}

// NewEnergyFlowSet allocates a zeroed flow set of n samples.
func NewEnergyFlowSet(n int) *EnergyFlowSet {
	return &EnergyFlowSet{
		PVToInverter:      make(TimeSeries, n),
		PVToStorage:       make(TimeSeries, n),
		StorageToInverter: make(TimeSeries, n),
		InverterToLoad:    make(TimeSeries, n),
		GridToLoad:        make(TimeSeries, n),
		InverterToGrid:    make(TimeSeries, n),
		ResidualPV:        make(TimeSeries, n),
		LevelOfCharge:     make(TimeSeries, n),
	}
}

// Len returns the number of samples. All series share it.
func (f *EnergyFlowSet) Len() int { return len(f.LevelOfCharge) }

// Series returns the flows keyed by their exported column name, in a stable
// order suitable for tabular output.
func (f *EnergyFlowSet) Series() []NamedSeries {
	return []NamedSeries{
		{"pv_to_inverter", f.PVToInverter},
		{"pv_to_storage", f.PVToStorage},
		{"storage_to_inverter", f.StorageToInverter},
		{"inverter_to_load", f.InverterToLoad},
		{"grid_to_load", f.GridToLoad},
		{"inverter_to_grid", f.InverterToGrid},
		{"residual_pv", f.ResidualPV},
		{"level_of_charge", f.LevelOfCharge},
	}
}

// NamedSeries pairs a series with its column name.
type NamedSeries struct {
	Name   string
	Values TimeSeries
}

// Check verifies the energy balances of f against the inputs it was computed
// from. The first failing index is reported in a wrapped ErrInvariant.
//
//nolint:gocyclo
func (f *EnergyFlowSet) Check(pv, demand TimeSeries, p SimulationParameters, tol float64) error {
	n := f.Len()
	if len(pv) != n || len(demand) != n {
		return fmt.Errorf("%w: flows have %d samples, pv %d, demand %d", ErrInputShape, n, len(pv), len(demand))
	}
	for _, s := range f.Series() {
		if len(s.Values) != n {
			return fmt.Errorf("%w: %s has %d samples, want %d", ErrInputShape, s.Name, len(s.Values), n)
		}
	}
	for i := 0; i < n; i++ {
		if d := pv[i] - f.PVToInverter[i] - f.PVToStorage[i]; math.Abs(d) > tol {
			return fmt.Errorf("%w: pv balance off by %g at %d", ErrInvariant, d, i)
		}
		if d := f.InverterToLoad[i] + f.GridToLoad[i] - demand[i]; math.Abs(d) > tol {
			return fmt.Errorf("%w: demand balance off by %g at %d", ErrInvariant, d, i)
		}
		in := (f.PVToInverter[i] + f.StorageToInverter[i]) * p.InverterEfficiency
		if d := in - f.InverterToLoad[i] - f.InverterToGrid[i]; math.Abs(d) > tol {
			return fmt.Errorf("%w: inverter balance off by %g at %d", ErrInvariant, d, i)
		}
		if soc := f.LevelOfCharge[i]; soc < -tol || soc > p.BatteryCapacity+tol {
			return fmt.Errorf("%w: level of charge %g outside [0,%g] at %d", ErrInvariant, soc, p.BatteryCapacity, i)
		}
		if x := f.InverterToGrid[i] * f.GridToLoad[i]; math.Abs(x) > tol {
			return fmt.Errorf("%w: simultaneous import and export at %d", ErrInvariant, i)
		}
	}
	return nil
}

// FlowTotals aggregates a flow set into energies (kWh).
type FlowTotals struct {
	PVToInverter      float64 `json:"pv_to_inverter_kwh"`
	PVToStorage       float64 `json:"pv_to_storage_kwh"`
	StorageToInverter float64 `json:"storage_to_inverter_kwh"`
	InverterToLoad    float64 `json:"inverter_to_load_kwh"`
	GridToLoad        float64 `json:"grid_to_load_kwh"`
	InverterToGrid    float64 `json:"inverter_to_grid_kwh"`
	ResidualPV        float64 `json:"residual_pv_kwh"`
	FinalCharge       float64 `json:"final_charge_kwh"`
}

// Totals integrates every flow over the given timestep.
func (f *EnergyFlowSet) Totals(timestep float64) FlowTotals {
	t := FlowTotals{
		PVToInverter:      f.PVToInverter.Energy(timestep),
		PVToStorage:       f.PVToStorage.Energy(timestep),
		StorageToInverter: f.StorageToInverter.Energy(timestep),
		InverterToLoad:    f.InverterToLoad.Energy(timestep),
		GridToLoad:        f.GridToLoad.Energy(timestep),
		InverterToGrid:    f.InverterToGrid.Energy(timestep),
		ResidualPV:        f.ResidualPV.Energy(timestep),
	}
	if n := f.Len(); n > 0 {
		t.FinalCharge = f.LevelOfCharge[n-1]
	}
	return t
}
