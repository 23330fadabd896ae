// Package dispatch simulates how PV production, a battery, the grid and a
// household load exchange power at every timestep.
package dispatch

import (
	"fmt"
	"math"
	"time"

	"github.com/kilianp07/prosumer/core/model"
	"github.com/kilianp07/prosumer/infra/logger"
)

// Engine computes the energy flows for a PV and demand trace.
type Engine interface {
	Name() string
	Simulate(pv, demand model.TimeSeries, p model.SimulationParameters) (*model.EnergyFlowSet, error)
}

// Registered engine names.
const (
	EngineSelfConsumption = "self_consumption"
	EnginePeakShaving     = "peak_shaving"
	EngineNoBattery       = "no_battery"
)

// levelTol absorbs rounding when the battery is drained to exactly zero.
const levelTol = 1e-9

// stepInputs are the battery-independent quantities of one step.
type stepInputs struct {
	direct       []float64 // DC PV sent straight to the load
	residualLoad []float64 // AC load left after direct use
	residualPV   []float64 // DC PV left after direct use
}

// chargeRule returns the DC power sent to storage at step i given the level
// reached at step i-1.
type chargeRule func(i int, prevLevel float64) (float64, error)

func validateInputs(pv, demand model.TimeSeries, p model.SimulationParameters) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if len(pv) != len(demand) {
		return fmt.Errorf("%w: pv has %d samples, demand %d", model.ErrInputShape, len(pv), len(demand))
	}
	for i := range pv {
		if math.IsNaN(pv[i]) || pv[i] < 0 {
			return fmt.Errorf("%w: pv sample %d is %g", model.ErrDomain, i, pv[i])
		}
		if math.IsNaN(demand[i]) || demand[i] < 0 {
			return fmt.Errorf("%w: demand sample %d is %g", model.ErrDomain, i, demand[i])
		}
	}
	return nil
}

func splitDirect(pv, demand model.TimeSeries, etaInv float64) stepInputs {
	n := len(pv)
	in := stepInputs{
		direct:       make([]float64, n),
		residualLoad: make([]float64, n),
		residualPV:   make([]float64, n),
	}
	for i := range pv {
		in.direct[i] = math.Min(pv[i], demand[i]/etaInv)
		in.residualLoad[i] = math.Max(demand[i]-in.direct[i]*etaInv, 0)
		in.residualPV[i] = math.Max(pv[i]-demand[i]/etaInv, 0)
	}
	return in
}

// run executes the sequential battery recurrence. Index 0 only carries the
// initial level; storage flows start at index 1.
func run(pv, demand model.TimeSeries, p model.SimulationParameters, in stepInputs, level0 float64, charge chargeRule) (*model.EnergyFlowSet, error) {
	n := len(pv)
	f := model.NewEnergyFlowSet(n)
	eta := p.InverterEfficiency
	for i := 0; i < n; i++ {
		var c, d float64
		if i == 0 {
			f.LevelOfCharge[0] = level0
		} else {
			prev := f.LevelOfCharge[i-1]
			var err error
			if c, err = charge(i, prev); err != nil {
				return nil, err
			}
			d = math.Min(p.MaxPower, math.Min(in.residualLoad[i]/eta, prev/p.Timestep))
			level := math.Min(prev-(d-c)*p.Timestep, p.BatteryCapacity)
			if level < -levelTol {
				return nil, fmt.Errorf("%w: level of charge %g at %d", model.ErrInvariant, level, i)
			}
			f.LevelOfCharge[i] = math.Max(level, 0)
		}
		f.ResidualPV[i] = in.residualPV[i]
		f.PVToInverter[i] = in.direct[i] + in.residualPV[i] - c
		f.PVToStorage[i] = c
		f.StorageToInverter[i] = d
		f.InverterToLoad[i] = (in.direct[i] + d) * eta
		f.InverterToGrid[i] = (in.residualPV[i] - c) * eta
		f.GridToLoad[i] = demand[i] - f.InverterToLoad[i]
	}
	return f, nil
}

// limitCharge caps a requested charge by the power rating and the remaining
// headroom of the battery.
func limitCharge(want, prevLevel float64, p model.SimulationParameters) float64 {
	c := math.Min(want, math.Min(p.MaxPower, (p.BatteryCapacity-prevLevel)/p.Timestep))
	return math.Max(c, 0)
}

// observe records the run in the prometheus collectors and the debug log.
func observe(log logger.Logger, engine string, start time.Time, f *model.EnergyFlowSet, p model.SimulationParameters, err error) {
	dispatchDuration.WithLabelValues(engine).Observe(time.Since(start).Seconds())
	if err != nil {
		dispatchRuns.WithLabelValues(engine, "error").Inc()
		log.Warnf("%s dispatch failed: %v", engine, err)
		return
	}
	dispatchRuns.WithLabelValues(engine, "ok").Inc()
	dispatchSteps.WithLabelValues(engine).Add(float64(f.Len()))
	tot := f.Totals(p.Timestep)
	log.Debugw("dispatch finished", map[string]any{
		"engine":          engine,
		"steps":           f.Len(),
		"to_grid_kwh":     tot.InverterToGrid,
		"from_grid_kwh":   tot.GridToLoad,
		"final_level_kwh": tot.FinalCharge,
	})
}
