package dispatch

import (
	"time"

	"github.com/kilianp07/prosumer/core/model"
	"github.com/kilianp07/prosumer/infra/logger"
)

// NoBattery is the reference case without storage: PV feeds the load first
// and the remainder is exported.
type NoBattery struct {
	log logger.Logger
}

// NewNoBattery returns the storage-less engine.
func NewNoBattery(log logger.Logger) *NoBattery {
	return &NoBattery{log: logger.OrNop(log)}
}

// Name implements Engine.
func (e *NoBattery) Name() string { return EngineNoBattery }

// Simulate implements Engine. Battery parameters other than the efficiencies
// and timestep are ignored.
func (e *NoBattery) Simulate(pv, demand model.TimeSeries, p model.SimulationParameters) (f *model.EnergyFlowSet, err error) {
	start := time.Now()
	defer func() { observe(logger.OrNop(e.log), e.Name(), start, f, p, err) }()

	if err := validateInputs(pv, demand, p); err != nil {
		return nil, err
	}
	return noBattery(pv, demand, p), nil
}

func noBattery(pv, demand model.TimeSeries, p model.SimulationParameters) *model.EnergyFlowSet {
	in := splitDirect(pv, demand, p.InverterEfficiency)
	p.BatteryCapacity, p.MaxPower = 0, 0
	f, _ := run(pv, demand, p, in, 0, func(int, float64) (float64, error) { return 0, nil })
	return f
}
