package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kilianp07/prosumer/core/factory"
	coremetrics "github.com/kilianp07/prosumer/core/metrics"
)

// Sink types registered by this package.
const (
	SinkNop        = "nop"
	SinkPrometheus = "prometheus"
	SinkInflux     = "influx"
)

func init() {
	builtins := map[string]factory.Factory[coremetrics.MetricsSink]{
		SinkNop:        newNop,
		SinkPrometheus: newPrometheus,
		SinkInflux:     newInflux,
	}
	for name, f := range builtins {
		_ = coremetrics.RegisterMetricsSink(name, f)
	}
}

func newNop(map[string]any) (coremetrics.MetricsSink, error) { return coremetrics.NopSink{}, nil }

// newPrometheus registers on the default registerer, which is what the
// /metrics endpoint and the textfile writer gather from.
func newPrometheus(conf map[string]any) (coremetrics.MetricsSink, error) {
	var c struct {
		EmissionFactor float64 `json:"emission_factor"`
	}
	if err := factory.Decode(conf, &c); err != nil {
		return nil, err
	}
	if c.EmissionFactor < 0 {
		return nil, fmt.Errorf("emission_factor must not be negative, got %g", c.EmissionFactor)
	}
	return NewPromSinkWithRegistry(coremetrics.Config{EmissionFactor: c.EmissionFactor}, prometheus.DefaultRegisterer)
}

// newInflux returns a NopSink when the server fails its health check.
func newInflux(conf map[string]any) (coremetrics.MetricsSink, error) {
	var c InfluxConfig
	if err := factory.Decode(conf, &c); err != nil {
		return nil, err
	}
	if c.URL == "" || c.Bucket == "" {
		return nil, fmt.Errorf("url and bucket are required")
	}
	return NewInfluxSinkWithFallback(c), nil
}
