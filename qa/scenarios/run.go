package scenarios

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/prosumer/core/analysis"
	"github.com/kilianp07/prosumer/core/dispatch"
	"github.com/kilianp07/prosumer/core/factory"
	"github.com/kilianp07/prosumer/core/model"
	"github.com/kilianp07/prosumer/infra/logger"
)

func RunScenario(t *testing.T, sc *Scenario) {
	engine, err := dispatch.NewRegistry(logger.NopLogger{}).Create(factory.ModuleConfig{Type: sc.Engine, Conf: sc.Options})
	require.NoError(t, err)

	pv, demand := sc.Inputs()
	var flows *model.EnergyFlowSet
	var thresholds []dispatch.Threshold
	if ps, ok := engine.(*dispatch.PeakShaving); ok {
		res, err := ps.SimulateWithThresholds(pv, demand, sc.Params)
		require.NoError(t, err)
		flows, thresholds = res.Flows, res.Thresholds()
	} else {
		flows, err = engine.Simulate(pv, demand, sc.Params)
		require.NoError(t, err)
	}
	require.NoError(t, flows.Check(pv, demand, sc.Params, 1e-9))

	exp := sc.Expected
	assertSeries(t, "level_of_charge", exp.LevelOfCharge, flows.LevelOfCharge, sc.Tolerance)
	assertSeries(t, "inverter_to_load", exp.InverterToLoad, flows.InverterToLoad, sc.Tolerance)
	assertSeries(t, "inverter_to_grid", exp.InverterToGrid, flows.InverterToGrid, sc.Tolerance)
	assertSeries(t, "grid_to_load", exp.GridToLoad, flows.GridToLoad, sc.Tolerance)
	if exp.Thresholds != nil {
		got := make([]float64, len(thresholds))
		for i, th := range thresholds {
			got[i] = th.Value
		}
		assertSeries(t, "thresholds", exp.Thresholds, got, sc.Tolerance)
	}
	if exp.SelfConsumptionRate != nil {
		r, err := analysis.Analyze(pv, demand, flows, sc.Params)
		require.NoError(t, err)
		assert.InDelta(t, *exp.SelfConsumptionRate, r.SelfConsumptionRate, 1e-6, "scenario %s self consumption rate", sc.Name)
	}
}

func assertSeries(t *testing.T, name string, want, got []float64, tol float64) {
	t.Helper()
	if want == nil {
		return
	}
	require.Len(t, got, len(want), name)
	for i := range want {
		assert.InDelta(t, want[i], got[i], tol, "%s[%d]", name, i)
	}
}
