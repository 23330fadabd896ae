// Package runlog persists one record per simulation or shift run so past
// runs can be listed and compared.
package runlog

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/prosumer/core/model"
)

// Kind distinguishes the run families.
type Kind string

const (
	KindSimulation Kind = "simulation"
	KindShift      Kind = "shift"
)

// RunRecord captures the inputs and outcome of one run.
type RunRecord struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Kind      Kind      `json:"kind"`
	// Engine is set for simulations, Appliance for shift runs.
	Engine     string                      `json:"engine,omitempty"`
	Appliance  string                      `json:"appliance,omitempty"`
	Steps      int                         `json:"steps"`
	Params     *model.SimulationParameters `json:"params,omitempty"`
	Totals     *model.FlowTotals           `json:"totals,omitempty"`
	Thresholds []float64                   `json:"thresholds,omitempty"`
	Shift      *model.ShiftStats           `json:"shift,omitempty"`
	DurationMS float64                     `json:"duration_ms"`
}

// NewRunRecord stamps a record with a fresh ID and the current UTC time.
func NewRunRecord(kind Kind) RunRecord {
	return RunRecord{ID: uuid.NewString(), Timestamp: time.Now().UTC(), Kind: kind}
}

// Query defines filters for retrieving records. Zero fields match anything.
type Query struct {
	Start  time.Time
	End    time.Time
	Kind   Kind
	Engine string
	ID     string
}

// Match reports whether r passes every filter of q.
func (q Query) Match(r RunRecord) bool {
	if !q.Start.IsZero() && r.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && r.Timestamp.After(q.End) {
		return false
	}
	if q.Kind != "" && r.Kind != q.Kind {
		return false
	}
	if q.Engine != "" && r.Engine != q.Engine {
		return false
	}
	return q.ID == "" || r.ID == q.ID
}

// Store persists RunRecords and supports querying.
type Store interface {
	Append(ctx context.Context, rec RunRecord) error
	Query(ctx context.Context, q Query) ([]RunRecord, error)
	Close() error
}

// NopStore discards every record.
type NopStore struct{}

func (NopStore) Append(context.Context, RunRecord) error           { return nil }
func (NopStore) Query(context.Context, Query) ([]RunRecord, error) { return nil, nil }
func (NopStore) Close() error                                      { return nil }
