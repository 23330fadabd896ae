package metrics

import "errors"

// MultiSink fans records out to multiple sinks. Optional recorder interfaces
// are forwarded only to sinks implementing them.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordSimulation forwards the record to all sinks. Every sink is tried;
// the errors are joined.
func (m *MultiSink) RecordSimulation(rec SimulationRecord) error {
	var errs []error
	for _, s := range m.Sinks {
		errs = append(errs, s.RecordSimulation(rec))
	}
	return errors.Join(errs...)
}

// RecordShift forwards shifting statistics.
func (m *MultiSink) RecordShift(recs []ShiftRecord) error {
	var errs []error
	for _, s := range m.Sinks {
		if r, ok := s.(ShiftRecorder); ok {
			errs = append(errs, r.RecordShift(recs))
		}
	}
	return errors.Join(errs...)
}

// RecordThresholds forwards peak shaving thresholds.
func (m *MultiSink) RecordThresholds(evs []ThresholdEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if r, ok := s.(ThresholdRecorder); ok {
			errs = append(errs, r.RecordThresholds(evs))
		}
	}
	return errors.Join(errs...)
}

// RecordEconomics forwards investment indicators.
func (m *MultiSink) RecordEconomics(ev EconomicsEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if r, ok := s.(EconomicsRecorder); ok {
			errs = append(errs, r.RecordEconomics(ev))
		}
	}
	return errors.Join(errs...)
}

// Close releases every sink holding a connection.
func (m *MultiSink) Close() {
	for _, s := range m.Sinks {
		if c, ok := s.(interface{ Close() }); ok {
			c.Close()
		}
	}
}
