package metrics

import (
	"errors"

	coremetrics "github.com/kilianp07/prosumer/core/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

// PromSink exposes the latest run results as Prometheus metrics.
type PromSink struct {
	factor     float64
	runs       *prometheus.CounterVec
	energy     *prometheus.GaugeVec
	rates      *prometheus.GaugeVec
	co2        *prometheus.GaugeVec
	cycles     *prometheus.GaugeVec
	shiftHours *prometheus.GaugeVec
	thresholds prometheus.Histogram
	economics  *prometheus.GaugeVec
}

// NewPromSink registers simulation metrics on the default Prometheus registerer.
func NewPromSink(cfg coremetrics.Config) (*PromSink, error) {
	return NewPromSinkWithRegistry(cfg, prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer. Collectors
// already registered by an earlier sink are reused.
func NewPromSinkWithRegistry(cfg coremetrics.Config, reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{factor: cfg.EmissionFactor}
	var err error
	if s.runs, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "simulation_runs_total",
		Help: "Number of recorded dispatch simulations",
	}, []string{"engine"})); err != nil {
		return nil, err
	}
	if s.energy, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "simulation_flow_energy_kwh",
		Help: "Energy carried by each flow over the last simulated horizon",
	}, []string{"engine", "flow"})); err != nil {
		return nil, err
	}
	if s.rates, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "simulation_rate_percent",
		Help: "Self-consumption (scr) and self-sufficiency (ssr) rates",
	}, []string{"engine", "kpi"})); err != nil {
		return nil, err
	}
	if s.co2, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "simulation_avoided_co2_kg",
		Help: "Grid emissions avoided by self-consumed PV",
	}, []string{"engine"})); err != nil {
		return nil, err
	}
	if s.cycles, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "appliance_cycles",
		Help: "Appliance cycles by outcome (total, shifted, unable)",
	}, []string{"appliance", "outcome"})); err != nil {
		return nil, err
	}
	if s.shiftHours, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "appliance_shift_hours",
		Help: "Maximum and average cycle displacement",
	}, []string{"appliance", "stat"})); err != nil {
		return nil, err
	}
	if s.thresholds, err = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "peak_shaving_threshold_kw",
		Help:    "Daily peak shaving thresholds",
		Buckets: prometheus.LinearBuckets(0, 0.5, 20),
	})); err != nil {
		return nil, err
	}
	if s.economics, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "investment_indicator",
		Help: "Investment indicators of the last economic analysis",
	}, []string{"indicator"})); err != nil {
		return nil, err
	}
	return s, nil
}

// register adds c to reg or returns the collector registered before it.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordSimulation sets the flow energies and rates of the run's engine.
func (s *PromSink) RecordSimulation(rec coremetrics.SimulationRecord) error {
	t := rec.Totals
	s.runs.WithLabelValues(rec.Engine).Inc()
	for flow, v := range map[string]float64{
		"pv_to_inverter":      t.PVToInverter,
		"pv_to_storage":       t.PVToStorage,
		"storage_to_inverter": t.StorageToInverter,
		"inverter_to_load":    t.InverterToLoad,
		"grid_to_load":        t.GridToLoad,
		"inverter_to_grid":    t.InverterToGrid,
		"residual_pv":         t.ResidualPV,
	} {
		s.energy.WithLabelValues(rec.Engine, flow).Set(v)
	}
	s.rates.WithLabelValues(rec.Engine, "scr").Set(rec.SelfConsumptionRate)
	s.rates.WithLabelValues(rec.Engine, "ssr").Set(rec.SelfSufficiencyRate)
	s.co2.WithLabelValues(rec.Engine).Set(t.InverterToLoad * s.factor)
	return nil
}

// RecordShift sets the cycle gauges of each appliance.
func (s *PromSink) RecordShift(recs []coremetrics.ShiftRecord) error {
	for _, r := range recs {
		s.cycles.WithLabelValues(r.Appliance, "total").Set(float64(r.Stats.CycleCount))
		s.cycles.WithLabelValues(r.Appliance, "shifted").Set(float64(r.Stats.NetShiftedCount))
		s.cycles.WithLabelValues(r.Appliance, "unable").Set(float64(r.Stats.UnableToShiftCount))
		s.shiftHours.WithLabelValues(r.Appliance, "max").Set(r.Stats.MaxShiftHours)
		s.shiftHours.WithLabelValues(r.Appliance, "avg").Set(r.Stats.AvgShiftHours)
	}
	return nil
}

// RecordThresholds observes each daily threshold.
func (s *PromSink) RecordThresholds(evs []coremetrics.ThresholdEvent) error {
	for _, ev := range evs {
		s.thresholds.Observe(ev.Value)
	}
	return nil
}

// RecordEconomics sets the investment gauges.
func (s *PromSink) RecordEconomics(ev coremetrics.EconomicsEvent) error {
	s.economics.WithLabelValues("npv").Set(ev.NPV)
	s.economics.WithLabelValues("irr").Set(ev.IRR)
	s.economics.WithLabelValues("pbp").Set(ev.PBP)
	s.economics.WithLabelValues("el_bill").Set(ev.ElBill)
	s.economics.WithLabelValues("cost_per_mwh").Set(ev.CostPerMWh)
	return nil
}
