package metrics

import (
	"time"

	"github.com/kilianp07/prosumer/core/model"
)

// SimulationRecord summarises one dispatch run.
type SimulationRecord struct {
	RunID    string
	Engine   string
	Time     time.Time
	Steps    int
	Timestep float64
	Totals   model.FlowTotals
	// SelfConsumptionRate and SelfSufficiencyRate are percentages.
	SelfConsumptionRate float64
	SelfSufficiencyRate float64
	Duration            time.Duration
}

// MetricsSink records simulation results for observability purposes.
type MetricsSink interface {
	RecordSimulation(rec SimulationRecord) error
}

// ShiftRecord captures the outcome of shifting one appliance.
type ShiftRecord struct {
	RunID     string
	Appliance string
	Stats     model.ShiftStats
	Time      time.Time
}

// ShiftRecorder records appliance shifting statistics.
type ShiftRecorder interface {
	RecordShift(recs []ShiftRecord) error
}

// ThresholdEvent is one daily peak shaving threshold.
type ThresholdEvent struct {
	RunID string
	Index int
	Value float64
	Time  time.Time
}

// ThresholdRecorder records peak shaving thresholds.
type ThresholdRecorder interface {
	RecordThresholds(evs []ThresholdEvent) error
}

// EconomicsEvent carries the headline indicators of an investment analysis.
type EconomicsEvent struct {
	RunID      string
	NPV        float64
	IRR        float64
	PBP        float64
	ElBill     float64
	CostPerMWh float64
	Time       time.Time
}

// EconomicsRecorder records investment indicators.
type EconomicsRecorder interface {
	RecordEconomics(ev EconomicsEvent) error
}

// NopSink implements MetricsSink with no-op methods.
type NopSink struct{}

func (NopSink) RecordSimulation(SimulationRecord) error { return nil }
func (NopSink) RecordShift([]ShiftRecord) error         { return nil }
func (NopSink) RecordThresholds([]ThresholdEvent) error { return nil }
func (NopSink) RecordEconomics(EconomicsEvent) error    { return nil }
