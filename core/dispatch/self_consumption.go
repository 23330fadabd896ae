package dispatch

import (
	"time"

	"github.com/kilianp07/prosumer/core/model"
	"github.com/kilianp07/prosumer/infra/logger"
)

// SelfConsumption charges the battery with every kWh of surplus PV and
// discharges it as soon as the load exceeds PV.
type SelfConsumption struct {
	Options Options
	log     logger.Logger
}

// NewSelfConsumption returns a self-consumption engine. A nil logger disables
// logging.
func NewSelfConsumption(o Options, log logger.Logger) *SelfConsumption {
	return &SelfConsumption{Options: o, log: logger.OrNop(log)}
}

// Name implements Engine.
func (e *SelfConsumption) Name() string { return EngineSelfConsumption }

// Simulate implements Engine. Without usable storage it returns the NoBattery
// flows.
func (e *SelfConsumption) Simulate(pv, demand model.TimeSeries, p model.SimulationParameters) (f *model.EnergyFlowSet, err error) {
	start := time.Now()
	defer func() { observe(logger.OrNop(e.log), e.Name(), start, f, p, err) }()

	if err := e.Options.Validate(); err != nil {
		return nil, err
	}
	if err := validateInputs(pv, demand, p); err != nil {
		return nil, err
	}
	if !p.HasStorage() {
		return noBattery(pv, demand, p), nil
	}
	in := splitDirect(pv, demand, p.InverterEfficiency)
	return run(pv, demand, p, in, e.Options.initialLevel(p.BatteryCapacity), func(i int, prev float64) (float64, error) {
		if prev >= p.BatteryCapacity && !(e.Options.ChargeWhenFull && in.residualLoad[i] == 0) {
			return 0, nil
		}
		return limitCharge(in.residualPV[i]*p.BatteryEfficiency, prev, p), nil
	})
}
