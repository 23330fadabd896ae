package mqtt

import (
	"errors"
	"math"
	"time"

	"github.com/kilianp07/prosumer/core/factory"
	coremetrics "github.com/kilianp07/prosumer/core/metrics"
	"github.com/kilianp07/prosumer/core/model"
)

func init() {
	_ = coremetrics.RegisterMetricsSink("mqtt", func(conf map[string]any) (coremetrics.MetricsSink, error) {
		var c Config
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewSink(c)
	})
}

// Sink publishes run summaries as JSON documents. Topics are
// <prefix>/simulation/<engine>, <prefix>/shift/<appliance>,
// <prefix>/thresholds and <prefix>/economics.
type Sink struct {
	client *PahoClient
}

// NewSink connects to the broker described by cfg.
func NewSink(cfg Config) (*Sink, error) {
	c, err := NewPahoClient(cfg)
	if err != nil {
		return nil, err
	}
	return &Sink{client: c}, nil
}

// Close disconnects from the broker.
func (s *Sink) Close() { s.client.Disconnect() }

type simulationMessage struct {
	RunID               string           `json:"run_id"`
	Engine              string           `json:"engine"`
	Timestamp           int64            `json:"timestamp"`
	Steps               int              `json:"steps"`
	Timestep            float64          `json:"timestep_h"`
	Totals              model.FlowTotals `json:"totals"`
	SelfConsumptionRate float64          `json:"self_consumption_rate"`
	SelfSufficiencyRate float64          `json:"self_sufficiency_rate"`
	DurationMS          float64          `json:"duration_ms"`
}

// RecordSimulation implements coremetrics.MetricsSink.
func (s *Sink) RecordSimulation(rec coremetrics.SimulationRecord) error {
	msg := simulationMessage{
		RunID:               rec.RunID,
		Engine:              rec.Engine,
		Timestamp:           rec.Time.UnixMilli(),
		Steps:               rec.Steps,
		Timestep:            rec.Timestep,
		Totals:              rec.Totals,
		SelfConsumptionRate: rec.SelfConsumptionRate,
		SelfSufficiencyRate: rec.SelfSufficiencyRate,
		DurationMS:          float64(rec.Duration) / float64(time.Millisecond),
	}
	return s.client.PublishJSON(s.client.Topic("simulation", rec.Engine), msg)
}

type shiftMessage struct {
	RunID     string           `json:"run_id"`
	Appliance string           `json:"appliance"`
	Timestamp int64            `json:"timestamp"`
	Stats     model.ShiftStats `json:"stats"`
}

// RecordShift publishes one message per appliance.
func (s *Sink) RecordShift(recs []coremetrics.ShiftRecord) error {
	var errs []error
	for _, r := range recs {
		msg := shiftMessage{RunID: r.RunID, Appliance: r.Appliance, Timestamp: r.Time.UnixMilli(), Stats: r.Stats}
		if err := s.client.PublishJSON(s.client.Topic("shift", r.Appliance), msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type thresholdMessage struct {
	RunID      string         `json:"run_id"`
	Timestamp  int64          `json:"timestamp"`
	Thresholds []thresholdRow `json:"thresholds"`
}

type thresholdRow struct {
	Index int     `json:"index"`
	Value float64 `json:"value_kw"`
}

// RecordThresholds publishes all thresholds of a run in a single message.
func (s *Sink) RecordThresholds(evs []coremetrics.ThresholdEvent) error {
	if len(evs) == 0 {
		return nil
	}
	msg := thresholdMessage{RunID: evs[0].RunID, Timestamp: evs[0].Time.UnixMilli()}
	for _, ev := range evs {
		msg.Thresholds = append(msg.Thresholds, thresholdRow{Index: ev.Index, Value: ev.Value})
	}
	return s.client.PublishJSON(s.client.Topic("thresholds"), msg)
}

type economicsMessage struct {
	RunID      string   `json:"run_id"`
	Timestamp  int64    `json:"timestamp"`
	NPV        *float64 `json:"npv"`
	IRR        *float64 `json:"irr"`
	PBP        *float64 `json:"pbp_years"`
	ElBill     *float64 `json:"el_bill"`
	CostPerMWh *float64 `json:"cost_per_mwh"`
}

// RecordEconomics publishes the investment indicators. Undefined values such
// as a missing IRR are sent as null.
func (s *Sink) RecordEconomics(ev coremetrics.EconomicsEvent) error {
	msg := economicsMessage{
		RunID:      ev.RunID,
		Timestamp:  ev.Time.UnixMilli(),
		NPV:        finite(ev.NPV),
		IRR:        finite(ev.IRR),
		PBP:        finite(ev.PBP),
		ElBill:     finite(ev.ElBill),
		CostPerMWh: finite(ev.CostPerMWh),
	}
	return s.client.PublishJSON(s.client.Topic("economics"), msg)
}

func finite(f float64) *float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}
