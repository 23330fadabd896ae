package app

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/prosumer/config"
	"github.com/kilianp07/prosumer/core/dispatch"
	coremetrics "github.com/kilianp07/prosumer/core/metrics"
	"github.com/kilianp07/prosumer/core/model"
	"github.com/kilianp07/prosumer/core/runlog"
	"github.com/kilianp07/prosumer/core/tariff"
	"github.com/kilianp07/prosumer/infra/logger"
)

type recordingSink struct {
	mu         sync.Mutex
	sims       []coremetrics.SimulationRecord
	shifts     []coremetrics.ShiftRecord
	thresholds []coremetrics.ThresholdEvent
	economics  []coremetrics.EconomicsEvent
}

func (r *recordingSink) RecordSimulation(rec coremetrics.SimulationRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sims = append(r.sims, rec)
	return nil
}

func (r *recordingSink) RecordShift(recs []coremetrics.ShiftRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.shifts = append(r.shifts, recs...)
	return nil
}

func (r *recordingSink) RecordThresholds(evs []coremetrics.ThresholdEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.thresholds = append(r.thresholds, evs...)
	return nil
}

func (r *recordingSink) RecordEconomics(ev coremetrics.EconomicsEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.economics = append(r.economics, ev)
	return nil
}

func goldenConfig() *config.Config {
	cfg := config.Default()
	cfg.Simulation.Parameters = model.SimulationParameters{
		BatteryCapacity: 2, MaxPower: 5, BatteryEfficiency: 1, InverterEfficiency: 1, Timestep: 1,
	}
	return cfg
}

func newService(t *testing.T, cfg *config.Config) (*Service, *recordingSink, runlog.Store) {
	t.Helper()
	store, err := runlog.NewJSONLStore(filepath.Join(t.TempDir(), "runs.jsonl"))
	require.NoError(t, err)
	sink := &recordingSink{}
	svc, err := New(cfg, WithSink(sink), WithStore(store), WithLogger(logger.NopLogger{}), WithGatherer(prometheus.NewRegistry()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })
	return svc, sink, store
}

func TestSimulateGolden(t *testing.T) {
	svc, sink, store := newService(t, goldenConfig())
	out, err := svc.Simulate(context.Background(), model.TimeSeries{0, 2, 4, 2}, model.TimeSeries{1, 1, 1, 1})
	require.NoError(t, err)

	assert.Equal(t, dispatch.EngineSelfConsumption, out.Engine)
	assert.Equal(t, model.TimeSeries{0, 1, 2, 2}, out.Flows.LevelOfCharge)
	assert.InDelta(t, 75, out.Report.SelfSufficiencyRate, 1e-9)
	assert.Nil(t, out.Economics)
	assert.Empty(t, out.Thresholds)

	require.Len(t, sink.sims, 1)
	assert.Equal(t, out.RunID, sink.sims[0].RunID)
	assert.InDelta(t, 3, sink.sims[0].Totals.InverterToLoad, 1e-9)

	recs, err := store.Query(context.Background(), runlog.Query{ID: out.RunID})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, 4, recs[0].Steps)
	assert.InDelta(t, 2, recs[0].Totals.FinalCharge, 1e-9)
}

func TestSimulatePeakShavingThresholds(t *testing.T) {
	cfg := goldenConfig()
	cfg.Dispatch.Engine = dispatch.EnginePeakShaving
	svc, sink, _ := newService(t, cfg)

	pv := make(model.TimeSeries, 48)
	demand := make(model.TimeSeries, 48)
	for d := 0; d < 2; d++ {
		for h := 10; h < 15; h++ {
			pv[d*24+h] = 3
		}
	}
	out, err := svc.Simulate(context.Background(), pv, demand)
	require.NoError(t, err)
	require.Len(t, out.Thresholds, 2)
	assert.Equal(t, 24, out.Thresholds[1].Index)
	require.Len(t, sink.thresholds, 2)
	assert.Equal(t, out.RunID, sink.thresholds[0].RunID)
}

func flatCalendar() tariff.Calendar {
	return tariff.Calendar{
		HighSeason: []tariff.Slot{{Start: "00:00:00", Band: "hollow"}, {Start: "08:00:00", Band: "full"}},
		LowSeason:  []tariff.Slot{{Start: "00:00:00", Band: "hollow"}, {Start: "06:00:00", Band: "full"}},
		HighStart:  "04-01",
		LowStart:   "10-01",
	}
}

func TestSimulateEconomics(t *testing.T) {
	cfg := goldenConfig()
	cfg.Simulation.PVPeak = 2
	cfg.Tariff.Calendar = flatCalendar()
	cfg.Tariff.Prices = map[string]float64{"hollow": 100, "full": 200}
	cfg.Economics.Enabled = true
	cfg.Economics.Financials.WACC = 0.05
	cfg.Economics.Financials.FeedInPrice = 40
	cfg.Economics.Investment.PVCostPerKW = 1000
	require.NoError(t, cfg.Validate())
	svc, sink, _ := newService(t, cfg)

	n := 365 * 24
	pv := make(model.TimeSeries, n)
	demand := make(model.TimeSeries, n)
	for i := range demand {
		demand[i] = 0.5
		if h := i % 24; h >= 9 && h < 16 {
			pv[i] = 2
		}
	}
	out, err := svc.Simulate(context.Background(), pv, demand)
	require.NoError(t, err)
	require.NotNil(t, out.Economics)
	assert.InDelta(t, -2000, out.Economics.CashFlows[0], 1e-9)
	assert.Len(t, out.Economics.CashFlows, 21)

	var total float64
	for _, e := range out.BandEnergy {
		total += e
	}
	assert.InDelta(t, out.Report.TotalLoad, total, 1e-6)
	require.Len(t, sink.economics, 1)
	assert.Equal(t, out.Economics.NPV, sink.economics[0].NPV)
}

func TestSimulateTariffTooShort(t *testing.T) {
	cfg := goldenConfig()
	cfg.Tariff.Calendar = flatCalendar()
	cfg.Tariff.Prices = map[string]float64{"hollow": 100, "full": 200}
	svc, _, _ := newService(t, cfg)
	n := 366 * 24
	_, err := svc.Simulate(context.Background(), make(model.TimeSeries, n), make(model.TimeSeries, n))
	assert.ErrorIs(t, err, model.ErrInputShape)
}

func TestShiftWithOccupancy(t *testing.T) {
	svc, sink, store := newService(t, goldenConfig())
	power := make(model.TimeSeries, 20)
	power[2], power[3], power[4] = 100, 100, 100
	out, err := svc.Shift(context.Background(), map[string]model.TimeSeries{"washing_machine": power}, [][]float64{{0, 1}}, 60)
	require.NoError(t, err)

	res := out.Results["washing_machine"]
	require.NotNil(t, res)
	assert.Equal(t, 1, res.Stats.NetShiftedCount)
	assert.Equal(t, 100.0, res.Power[10])
	assert.Equal(t, 1.0, res.Power[2])
	assert.InDelta(t, 8.0/60, res.Stats.MaxShiftHours, 1e-12)

	require.Len(t, sink.shifts, 1)
	recs, err := store.Query(context.Background(), runlog.Query{Kind: runlog.KindShift})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "washing_machine", recs[0].Appliance)
	assert.Equal(t, out.RunID+":washing_machine", recs[0].ID)
}

func TestShiftErrors(t *testing.T) {
	svc, _, _ := newService(t, goldenConfig())
	_, err := svc.Shift(context.Background(), map[string]model.TimeSeries{"a": {1, 2}, "b": {1}}, nil, 60)
	assert.ErrorIs(t, err, model.ErrInputShape)
	_, err = svc.Shift(context.Background(), nil, nil, 0)
	assert.ErrorIs(t, err, model.ErrDomain)

	out, err := svc.Shift(context.Background(), nil, nil, 60)
	require.NoError(t, err)
	assert.Empty(t, out.Results)
}

func TestAdmissibilityTariff(t *testing.T) {
	cfg := goldenConfig()
	cfg.Tariff.Calendar = flatCalendar()
	cfg.Tariff.Prices = map[string]float64{"hollow": 100, "full": 200}
	cfg.Shift.LookaheadSteps = 2
	svc, _, _ := newService(t, cfg)

	adm, err := svc.Admissibility(24, nil, 1)
	require.NoError(t, err)
	// hollow until 06:00, the last two cheap hours are closed by the lookahead
	assert.Equal(t, []int{0, 1, 2, 3}, adm.Indices())

	adm, err = svc.Admissibility(365*24+1, nil, 1)
	require.NoError(t, err)
	assert.Len(t, adm, 365*24+1)

	all, err := New(goldenConfig(), WithSink(coremetrics.NopSink{}), WithStore(runlog.NopStore{}), WithLogger(logger.NopLogger{}))
	require.NoError(t, err)
	adm, err = all.Admissibility(3, nil, 60)
	require.NoError(t, err)
	assert.Equal(t, 3, adm.Count())
}

func TestAlign(t *testing.T) {
	p, err := alignPrices(model.TimeSeries{1, 2}, 3)
	require.NoError(t, err)
	assert.Equal(t, model.TimeSeries{1, 2, 2}, p)
	p, err = alignPrices(model.TimeSeries{1, 2, 3}, 2)
	require.NoError(t, err)
	assert.Equal(t, model.TimeSeries{1, 2}, p)
	_, err = alignPrices(model.TimeSeries{1}, 3)
	assert.ErrorIs(t, err, model.ErrInputShape)

	b, err := alignBands([]string{"a", "b"}, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "b"}, b)
}
