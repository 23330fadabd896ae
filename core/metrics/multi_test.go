package metrics

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type recordSink struct {
	count int
	err   error
}

func (r *recordSink) RecordSimulation(SimulationRecord) error {
	r.count++
	return r.err
}

func (r *recordSink) RecordShift([]ShiftRecord) error {
	r.count++
	return nil
}

// simOnly implements none of the optional recorders.
type simOnly struct{ count int }

func (s *simOnly) RecordSimulation(SimulationRecord) error {
	s.count++
	return nil
}

// TestMultiSink ensures events are forwarded to all sinks.
func TestMultiSink(t *testing.T) {
	s1 := &recordSink{}
	s2 := &recordSink{}
	s3 := &simOnly{}
	m := NewMultiSink(s1, s2, s3)
	assert.NoError(t, m.RecordSimulation(SimulationRecord{Engine: "self_consumption"}))
	assert.NoError(t, m.RecordShift(nil))
	assert.NoError(t, m.RecordThresholds(nil))
	assert.NoError(t, m.RecordEconomics(EconomicsEvent{}))
	assert.Equal(t, 2, s1.count)
	assert.Equal(t, 2, s2.count)
	assert.Equal(t, 1, s3.count)
}

func TestMultiSinkJoinsErrors(t *testing.T) {
	boom := errors.New("boom")
	s1 := &recordSink{err: boom}
	s2 := &recordSink{}
	err := NewMultiSink(s1, s2).RecordSimulation(SimulationRecord{})
	assert.ErrorIs(t, err, boom)
	// later sinks still receive the record
	assert.Equal(t, 1, s2.count)
}

type closingSink struct {
	simOnly
	closed bool
}

func (c *closingSink) Close() { c.closed = true }

func TestMultiSinkClose(t *testing.T) {
	c := &closingSink{}
	NewMultiSink(&simOnly{}, c).Close()
	assert.True(t, c.closed)
}
