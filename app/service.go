// Package app wires configuration, engines, metrics and the run log into the
// simulate and shift workflows used by the CLI.
package app

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kilianp07/prosumer/config"
	"github.com/kilianp07/prosumer/core/analysis"
	"github.com/kilianp07/prosumer/core/dispatch"
	"github.com/kilianp07/prosumer/core/economics"
	coremetrics "github.com/kilianp07/prosumer/core/metrics"
	"github.com/kilianp07/prosumer/core/model"
	"github.com/kilianp07/prosumer/core/monitoring"
	"github.com/kilianp07/prosumer/core/runlog"
	"github.com/kilianp07/prosumer/core/scheduler"
	"github.com/kilianp07/prosumer/core/tariff"
	"github.com/kilianp07/prosumer/infra/logger"
	"github.com/kilianp07/prosumer/infra/metrics"
)

// balanceTol bounds the energy balance residue accepted from an engine.
const balanceTol = 1e-6

// Service runs simulations and appliance shifts with the configured engine,
// metrics sinks and run log.
type Service struct {
	cfg       *config.Config
	engine    dispatch.Engine
	scheduler *scheduler.Scheduler
	sink      coremetrics.MetricsSink
	store     runlog.Store
	gatherer  prometheus.Gatherer
	log       logger.Logger
}

// Option customises a Service.
type Option func(*Service)

// WithSink replaces the sinks built from the metrics configuration.
func WithSink(s coremetrics.MetricsSink) Option { return func(svc *Service) { svc.sink = s } }

// WithStore replaces the run log built from the configuration.
func WithStore(s runlog.Store) Option { return func(svc *Service) { svc.store = s } }

// WithLogger sets the service logger.
func WithLogger(l logger.Logger) Option { return func(svc *Service) { svc.log = l } }

// WithGatherer sets the registry exposed over HTTP and dumped to the
// textfile. It defaults to prometheus.DefaultGatherer.
func WithGatherer(g prometheus.Gatherer) Option { return func(svc *Service) { svc.gatherer = g } }

// New creates a Service from the configuration.
func New(cfg *config.Config, opts ...Option) (*Service, error) {
	svc := &Service{cfg: cfg, gatherer: prometheus.DefaultGatherer}
	for _, o := range opts {
		o(svc)
	}
	if svc.log == nil {
		logger.SetLevel(cfg.Log.Level)
		if err := logger.SetFormat(cfg.Log.Format); err != nil {
			return nil, err
		}
		svc.log = logger.New("service")
	}

	engine, err := dispatch.NewRegistry(logger.New("dispatch")).Create(cfg.Dispatch.Module())
	if err != nil {
		return nil, fmt.Errorf("dispatch engine: %w", err)
	}
	svc.engine = engine
	svc.scheduler = scheduler.New(cfg.Shift, logger.New("scheduler"))

	if svc.sink == nil {
		sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
		if err != nil {
			return nil, fmt.Errorf("metrics sink: %w", err)
		}
		svc.sink = sink
	}
	if svc.store == nil {
		store, err := runlog.Open(cfg.RunLog)
		if err != nil {
			return nil, fmt.Errorf("run log: %w", err)
		}
		svc.store = store
	}
	return svc, nil
}

// Engine returns the configured dispatch engine.
func (s *Service) Engine() dispatch.Engine { return s.engine }

// ServeMetrics exposes the gatherer on the configured address until ctx is
// cancelled. It does nothing without a listen address.
func (s *Service) ServeMetrics(ctx context.Context) {
	if addr := s.cfg.Metrics.ListenAddr; addr != "" {
		metrics.Serve(ctx, addr, s.gatherer, s.log)
	}
}

// Close flushes the textfile exposition, closes the run log and releases
// the metrics sink connection.
func (s *Service) Close() error {
	var errs []error
	if path := s.cfg.Metrics.TextfilePath; path != "" {
		if err := metrics.WriteTextfile(path, s.gatherer); err != nil {
			errs = append(errs, fmt.Errorf("metrics textfile: %w", err))
		}
	}
	if err := s.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("run log: %w", err))
	}
	if c, ok := s.sink.(interface{ Close() }); ok {
		c.Close()
	}
	return errors.Join(errs...)
}

// SimulationOutput is the outcome of one dispatch run.
type SimulationOutput struct {
	RunID      string                     `json:"run_id"`
	Engine     string                     `json:"engine"`
	Flows      *model.EnergyFlowSet       `json:"flows"`
	Thresholds []dispatch.Threshold       `json:"thresholds,omitempty"`
	Report     analysis.Report            `json:"report"`
	Economics  *economics.Result          `json:"economics,omitempty"`
	BandEnergy map[string]float64         `json:"band_energy_kwh,omitempty"`
	Params     model.SimulationParameters `json:"params"`
}

// Simulate dispatches pv and demand with the configured installation, checks
// the balances, then analyses, prices and records the run.
func (s *Service) Simulate(ctx context.Context, pv, demand model.TimeSeries) (*SimulationOutput, error) {
	out, err := s.simulate(ctx, pv, demand)
	if err != nil {
		monitoring.CaptureException(err, map[string]string{"operation": "simulate", "engine": s.engine.Name()})
	}
	return out, err
}

func (s *Service) simulate(ctx context.Context, pv, demand model.TimeSeries) (*SimulationOutput, error) {
	p := s.cfg.Simulation.Parameters
	start := time.Now()
	out := &SimulationOutput{Engine: s.engine.Name(), Params: p}

	if ps, ok := s.engine.(*dispatch.PeakShaving); ok {
		res, err := ps.SimulateWithThresholds(pv, demand, p)
		if err != nil {
			return nil, err
		}
		out.Flows, out.Thresholds = res.Flows, res.Thresholds()
	} else {
		f, err := s.engine.Simulate(pv, demand, p)
		if err != nil {
			return nil, err
		}
		out.Flows = f
	}
	elapsed := time.Since(start)
	if err := out.Flows.Check(pv, demand, p, balanceTol); err != nil {
		return nil, err
	}

	report, err := analysis.Analyze(pv, demand, out.Flows, p)
	if err != nil {
		return nil, err
	}
	out.Report = report
	if err := s.priceRun(out, pv, demand); err != nil {
		return nil, err
	}

	rec := runlog.NewRunRecord(runlog.KindSimulation)
	out.RunID = rec.ID
	rec.Engine = out.Engine
	rec.Steps = len(pv)
	rec.Params = &p
	totals := out.Flows.Totals(p.Timestep)
	rec.Totals = &totals
	for _, th := range out.Thresholds {
		rec.Thresholds = append(rec.Thresholds, th.Value)
	}
	rec.DurationMS = float64(elapsed.Microseconds()) / 1000
	if err := s.store.Append(ctx, rec); err != nil {
		return nil, fmt.Errorf("run log: %w", err)
	}

	s.recordSimulation(out, rec.Timestamp, elapsed)
	s.log.Debugw("simulation done", report.Fields())
	return out, nil
}

// priceRun adds the band breakdown and the economics when a tariff is set.
func (s *Service) priceRun(out *SimulationOutput, pv, demand model.TimeSeries) error {
	tc := s.cfg.Tariff
	if !tc.Enabled() {
		return nil
	}
	sph := stepsPerHour(out.Params.Timestep)
	bands, err := tc.Calendar.Bands(sph, tc.Year)
	if err != nil {
		return fmt.Errorf("tariff: %w", err)
	}
	if bands, err = alignBands(bands, len(demand)); err != nil {
		return err
	}
	if out.BandEnergy, err = tariff.EnergyByBand(bands, demand, out.Params.Timestep); err != nil {
		return err
	}
	if !s.cfg.Economics.Enabled {
		return nil
	}
	prices := make(model.TimeSeries, len(bands))
	for i, b := range bands {
		price, ok := tc.Prices[b]
		if !ok {
			return fmt.Errorf("%w: no price for band %q", model.ErrDomain, b)
		}
		prices[i] = price / 1000
	}
	in := economics.InputsFromFlows(pv, demand, out.Flows, s.cfg.Simulation.PVPeak, out.Params.BatteryCapacity)
	res, err := economics.Analyze(in, s.cfg.Economics.Financials, s.cfg.Economics.Investment, prices, out.Params.Timestep)
	if err != nil {
		return fmt.Errorf("economics: %w", err)
	}
	out.Economics = &res
	return nil
}

func (s *Service) recordSimulation(out *SimulationOutput, at time.Time, elapsed time.Duration) {
	rec := coremetrics.SimulationRecord{
		RunID:               out.RunID,
		Engine:              out.Engine,
		Time:                at,
		Steps:               out.Flows.Len(),
		Timestep:            out.Params.Timestep,
		Totals:              out.Flows.Totals(out.Params.Timestep),
		SelfConsumptionRate: out.Report.SelfConsumptionRate,
		SelfSufficiencyRate: out.Report.SelfSufficiencyRate,
		Duration:            elapsed,
	}
	if err := s.sink.RecordSimulation(rec); err != nil {
		s.log.Warnf("record simulation: %v", err)
	}
	if tr, ok := s.sink.(coremetrics.ThresholdRecorder); ok && len(out.Thresholds) > 0 {
		evs := make([]coremetrics.ThresholdEvent, len(out.Thresholds))
		for i, th := range out.Thresholds {
			evs[i] = coremetrics.ThresholdEvent{RunID: out.RunID, Index: th.Index, Value: th.Value, Time: at}
		}
		if err := tr.RecordThresholds(evs); err != nil {
			s.log.Warnf("record thresholds: %v", err)
		}
	}
	if er, ok := s.sink.(coremetrics.EconomicsRecorder); ok && out.Economics != nil {
		e := out.Economics
		ev := coremetrics.EconomicsEvent{RunID: out.RunID, NPV: e.NPV, IRR: e.IRR, PBP: e.PBP, ElBill: e.ElBill, CostPerMWh: e.CostPerMWh, Time: at}
		if err := er.RecordEconomics(ev); err != nil {
			s.log.Warnf("record economics: %v", err)
		}
	}
}

// ShiftOutput is the outcome of shifting several appliances.
type ShiftOutput struct {
	RunID   string                       `json:"run_id"`
	Results map[string]*scheduler.Result `json:"results"`
}

// Shift reschedules every appliance trace against the admissibility built
// from the tariff and the occupants. stepsPerHour is the trace resolution.
func (s *Service) Shift(ctx context.Context, appliances map[string]model.TimeSeries, occupants [][]float64, stepsPerHour int) (*ShiftOutput, error) {
	out, err := s.shift(ctx, appliances, occupants, stepsPerHour)
	if err != nil && !errors.Is(err, context.Canceled) {
		monitoring.CaptureException(err, map[string]string{"operation": "shift"})
	}
	return out, err
}

func (s *Service) shift(ctx context.Context, appliances map[string]model.TimeSeries, occupants [][]float64, stepsPerHour int) (*ShiftOutput, error) {
	if stepsPerHour <= 0 {
		return nil, fmt.Errorf("%w: steps per hour must be positive, got %d", model.ErrDomain, stepsPerHour)
	}
	n := -1
	for name, tr := range appliances {
		if n >= 0 && len(tr) != n {
			return nil, fmt.Errorf("%w: appliance %s has %d samples, want %d", model.ErrInputShape, name, len(tr), n)
		}
		n = len(tr)
	}
	if n < 0 {
		return &ShiftOutput{Results: map[string]*scheduler.Result{}}, nil
	}
	adm, err := s.Admissibility(n, occupants, stepsPerHour)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	sc := s.cfg.Shift
	results, err := s.scheduler.ShiftAll(ctx, appliances, adm, sc.ShiftProbability, sc.Seed, 1/float64(stepsPerHour))
	if err != nil {
		return nil, err
	}
	elapsed := time.Since(start)

	base := runlog.NewRunRecord(runlog.KindShift)
	out := &ShiftOutput{RunID: base.ID, Results: results}
	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	sort.Strings(names)
	var recs []coremetrics.ShiftRecord
	for _, name := range names {
		res := results[name]
		rec := base
		rec.ID = base.ID + ":" + name
		rec.Appliance = name
		rec.Steps = n
		stats := res.Stats
		rec.Shift = &stats
		rec.DurationMS = float64(elapsed.Microseconds()) / 1000
		if err := s.store.Append(ctx, rec); err != nil {
			return nil, fmt.Errorf("run log: %w", err)
		}
		recs = append(recs, coremetrics.ShiftRecord{RunID: out.RunID, Appliance: name, Stats: stats, Time: rec.Timestamp})
		s.log.Infof("%s: %d cycles, %d shifted, %d unable, max shift %.2fh",
			name, stats.CycleCount, stats.NetShiftedCount, stats.UnableToShiftCount, stats.MaxShiftHours)
	}
	if sr, ok := s.sink.(coremetrics.ShiftRecorder); ok && len(recs) > 0 {
		if err := sr.RecordShift(recs); err != nil {
			s.log.Warnf("record shift: %v", err)
		}
	}
	return out, nil
}

// Admissibility combines the price, lookahead and occupancy masks of n
// samples. Without tariff nor occupants every slot is admissible.
func (s *Service) Admissibility(n int, occupants [][]float64, stepsPerHour int) (model.Mask, error) {
	var masks []model.Mask
	if tc := s.cfg.Tariff; tc.Enabled() {
		prices, err := tariff.YearlyPrices(tc.Calendar, tc.Prices, stepsPerHour, tc.Year)
		if err != nil {
			return nil, fmt.Errorf("tariff: %w", err)
		}
		if prices, err = alignPrices(prices, n); err != nil {
			return nil, err
		}
		price := scheduler.PriceMask(prices, tc.ShiftThreshold())
		masks = append(masks, price, scheduler.CustomMask(price, s.cfg.Shift.LookaheadSteps))
	}
	if len(occupants) > 0 {
		occ, err := scheduler.OccupancyMask(occupants, s.cfg.Shift.OccupancyRepeat, n)
		if err != nil {
			return nil, err
		}
		masks = append(masks, occ)
	}
	if len(masks) == 0 {
		all := make(model.Mask, n)
		for i := range all {
			all[i] = true
		}
		return all, nil
	}
	return scheduler.Combine(masks...)
}

// Query lists recorded runs.
func (s *Service) Query(ctx context.Context, q runlog.Query) ([]runlog.RunRecord, error) {
	return s.store.Query(ctx, q)
}

func stepsPerHour(timestep float64) int {
	return int(math.Round(1 / timestep))
}

// alignPrices fits a yearly price series to n samples: longer series are
// truncated and a single missing trailing sample repeats the last price.
func alignPrices(prices model.TimeSeries, n int) (model.TimeSeries, error) {
	switch {
	case len(prices) >= n:
		return prices[:n], nil
	case len(prices) == n-1 && n > 1:
		return append(prices.Clone(), prices[len(prices)-1]), nil
	default:
		return nil, fmt.Errorf("%w: tariff covers %d samples, profiles have %d", model.ErrInputShape, len(prices), n)
	}
}

func alignBands(bands []string, n int) ([]string, error) {
	switch {
	case len(bands) >= n:
		return bands[:n], nil
	case len(bands) == n-1 && n > 1:
		return append(bands[:len(bands):len(bands)], bands[len(bands)-1]), nil
	default:
		return nil, fmt.Errorf("%w: tariff covers %d samples, profiles have %d", model.ErrInputShape, len(bands), n)
	}
}
