package metrics

import (
	"context"
	"math"
	"net/http"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/prosumer/core/metrics"
	"github.com/kilianp07/prosumer/infra/logger"
)

// InfluxConfig locates the InfluxDB bucket receiving run results.
type InfluxConfig struct {
	URL    string `json:"url"`
	Token  string `json:"token"`
	Org    string `json:"org"`
	Bucket string `json:"bucket"`
}

// InfluxSink writes simulation results to an InfluxDB instance using the
// official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(cfg InfluxConfig) *InfluxSink {
	base := strings.TrimSuffix(cfg.URL, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, cfg.Token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(cfg InfluxConfig) coremetrics.MetricsSink {
	sink := NewInfluxSink(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// Close releases the underlying HTTP client.
func (s *InfluxSink) Close() { s.client.Close() }

// RecordSimulation writes one point with the energy totals of the run.
func (s *InfluxSink) RecordSimulation(rec coremetrics.SimulationRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	t := rec.Totals
	p := write.NewPointWithMeasurement("simulation_run").
		AddTag("run_id", rec.RunID).
		AddTag("engine", rec.Engine).
		AddField("steps", rec.Steps).
		AddField("timestep_h", rec.Timestep).
		AddField("pv_to_inverter_kwh", round3(t.PVToInverter)).
		AddField("pv_to_storage_kwh", round3(t.PVToStorage)).
		AddField("storage_to_inverter_kwh", round3(t.StorageToInverter)).
		AddField("inverter_to_load_kwh", round3(t.InverterToLoad)).
		AddField("grid_to_load_kwh", round3(t.GridToLoad)).
		AddField("inverter_to_grid_kwh", round3(t.InverterToGrid)).
		AddField("scr_percent", round3(rec.SelfConsumptionRate)).
		AddField("ssr_percent", round3(rec.SelfSufficiencyRate)).
		SetTime(rec.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordShift writes one point per appliance.
func (s *InfluxSink) RecordShift(recs []coremetrics.ShiftRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, r := range recs {
		p := write.NewPointWithMeasurement("appliance_shift").
			AddTag("run_id", r.RunID).
			AddTag("appliance", r.Appliance).
			AddField("cycles", r.Stats.CycleCount).
			AddField("shifted", r.Stats.NetShiftedCount).
			AddField("unable", r.Stats.UnableToShiftCount).
			AddField("max_shift_h", round3(r.Stats.MaxShiftHours)).
			AddField("avg_shift_h", round3(r.Stats.AvgShiftHours)).
			SetTime(r.Time)
		if err := s.writeAPI.WritePoint(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// RecordThresholds writes the daily thresholds of a peak shaving run.
func (s *InfluxSink) RecordThresholds(evs []coremetrics.ThresholdEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, ev := range evs {
		p := write.NewPointWithMeasurement("peak_threshold").
			AddTag("run_id", ev.RunID).
			AddField("index", ev.Index).
			AddField("threshold_kw", round3(ev.Value)).
			SetTime(ev.Time)
		if err := s.writeAPI.WritePoint(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// RecordEconomics writes the investment indicators. Undefined indicators
// (NaN IRR or payback) are left out of the point.
func (s *InfluxSink) RecordEconomics(ev coremetrics.EconomicsEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("economics").
		AddTag("run_id", ev.RunID).
		AddField("npv", round3(ev.NPV)).
		AddField("el_bill", round3(ev.ElBill)).
		AddField("cost_per_mwh", round3(ev.CostPerMWh)).
		SetTime(ev.Time)
	if !math.IsNaN(ev.IRR) {
		p = p.AddField("irr", round3(ev.IRR))
	}
	if !math.IsNaN(ev.PBP) {
		p = p.AddField("pbp", round3(ev.PBP))
	}
	return s.writeAPI.WritePoint(ctx, p)
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
