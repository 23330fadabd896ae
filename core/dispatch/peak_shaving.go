package dispatch

import (
	"fmt"
	"math"
	"time"

	"github.com/kilianp07/prosumer/core/model"
	"github.com/kilianp07/prosumer/infra/logger"
	"github.com/kilianp07/prosumer/internal/numeric"
	"gonum.org/v1/gonum/floats"
)

// solveRoot points to the root finder used by the threshold search. It can be
// overridden in tests to simulate solver failures.
var solveRoot = numeric.Brent

// thresholdHorizonHours is the look-ahead used for each daily threshold,
// counted from the start of the day.
const thresholdHorizonHours = 23

// PeakShaving defers charging to the sunniest hours of each day: only PV
// above a daily export threshold is stored, where the threshold is chosen so
// that the energy above it fills the free battery capacity.
type PeakShaving struct {
	Options Options
	log     logger.Logger
}

// Threshold is the export cap (kW DC residual PV) chosen at a day boundary.
type Threshold struct {
	Index int     `json:"index"`
	Value float64 `json:"value"`
}

// PeakShavingResult bundles the flows with the thresholds used to produce
// them.
type PeakShavingResult struct {
	Flows      *model.EnergyFlowSet
	thresholds []Threshold
}

// Thresholds returns the daily thresholds in index order.
func (r *PeakShavingResult) Thresholds() []Threshold { return r.thresholds }

// NewPeakShaving returns a peak shaving engine. A nil logger disables logging.
func NewPeakShaving(o Options, log logger.Logger) *PeakShaving {
	return &PeakShaving{Options: o, log: logger.OrNop(log)}
}

// Name implements Engine.
func (e *PeakShaving) Name() string { return EnginePeakShaving }

// Simulate implements Engine.
func (e *PeakShaving) Simulate(pv, demand model.TimeSeries, p model.SimulationParameters) (*model.EnergyFlowSet, error) {
	res, err := e.SimulateWithThresholds(pv, demand, p)
	if err != nil {
		return nil, err
	}
	return res.Flows, nil
}

// SimulateWithThresholds runs the engine and also reports the threshold of
// every simulated day.
func (e *PeakShaving) SimulateWithThresholds(pv, demand model.TimeSeries, p model.SimulationParameters) (res *PeakShavingResult, err error) {
	start := time.Now()
	log := logger.OrNop(e.log)
	defer func() {
		var f *model.EnergyFlowSet
		if res != nil {
			f = res.Flows
		}
		observe(log, e.Name(), start, f, p, err)
	}()

	if err := e.Options.Validate(); err != nil {
		return nil, err
	}
	if err := validateInputs(pv, demand, p); err != nil {
		return nil, err
	}
	if !p.HasStorage() {
		return &PeakShavingResult{Flows: noBattery(pv, demand, p)}, nil
	}
	if len(pv) == 0 {
		return &PeakShavingResult{Flows: model.NewEnergyFlowSet(0)}, nil
	}

	in := splitDirect(pv, demand, p.InverterEfficiency)
	day := p.StepsPerDay()
	horizon := int(thresholdHorizonHours/p.Timestep + 0.5)
	upper := pv.Max()
	level0 := e.Options.initialLevel(p.BatteryCapacity)

	var thresholds []Threshold
	threshold, err := solveThreshold(model.TimeSeries(in.residualPV).Window(0, horizon), p.BatteryCapacity-level0, p.Timestep, upper)
	if err != nil {
		return nil, fmt.Errorf("day starting at 0: %w", err)
	}
	thresholds = append(thresholds, Threshold{Index: 0, Value: threshold})

	flows, err := run(pv, demand, p, in, level0, func(i int, prev float64) (float64, error) {
		if day > 0 && i%day == 0 {
			t, err := solveThreshold(model.TimeSeries(in.residualPV).Window(i, horizon), p.BatteryCapacity-prev, p.Timestep, upper)
			if err != nil {
				return 0, fmt.Errorf("day starting at %d: %w", i, err)
			}
			threshold = t
			thresholds = append(thresholds, Threshold{Index: i, Value: t})
			log.Debugf("peak shaving threshold %.4f kW at step %d", t, i)
		}
		if in.residualPV[i] <= threshold {
			return 0, nil
		}
		return limitCharge((in.residualPV[i]-threshold)*p.BatteryEfficiency, prev, p), nil
	})
	if err != nil {
		return nil, err
	}
	return &PeakShavingResult{Flows: flows, thresholds: thresholds}, nil
}

// solveThreshold returns the residual PV level above which the energy of the
// window equals headroom. A window whose whole surplus fits returns 0.
func solveThreshold(window model.TimeSeries, headroom, timestep, upper float64) (float64, error) {
	if window.Energy(timestep) <= headroom {
		thresholdSolves.WithLabelValues("fits").Inc()
		return 0, nil
	}
	excess := make([]float64, len(window))
	f := func(t float64) float64 {
		for j, x := range window {
			excess[j] = math.Max(x-t, 0)
		}
		return floats.Sum(excess)*timestep - headroom
	}
	tol := 1e-9 * math.Max(1, upper)
	t, err := solveRoot(f, 0, upper, tol, 0)
	if err != nil {
		thresholdSolves.WithLabelValues("failed").Inc()
		return 0, fmt.Errorf("%w: %v", ErrConvergence, err)
	}
	thresholdSolves.WithLabelValues("solved").Inc()
	return t, nil
}
