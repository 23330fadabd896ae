package metrics

import (
	"fmt"

	"github.com/kilianp07/prosumer/core/factory"
)

// Sink implementations register themselves from the init functions of
// infra/metrics and infra/mqtt.
var sinks = factory.NewRegistry[MetricsSink]()

// RegisterMetricsSink adds a sink factory under name.
func RegisterMetricsSink(name string, f factory.Factory[MetricsSink]) error {
	return sinks.Register(name, f)
}

// SinkTypes lists the registered sink types.
func SinkTypes() []string { return sinks.Names() }

// NewMetricsSink builds every sink listed in cfgs. No entry yields a NopSink,
// one entry is returned as built and several are fanned out by a MultiSink.
// When a sink fails to build, the ones already connected are closed.
func NewMetricsSink(cfgs []factory.ModuleConfig) (MetricsSink, error) {
	built := make([]MetricsSink, 0, len(cfgs))
	for i, c := range cfgs {
		s, err := sinks.Create(c)
		if err != nil {
			NewMultiSink(built...).Close()
			return nil, fmt.Errorf("metrics sink %d: %w", i, err)
		}
		built = append(built, s)
	}
	switch len(built) {
	case 0:
		return NopSink{}, nil
	case 1:
		return built[0], nil
	default:
		return NewMultiSink(built...), nil
	}
}
