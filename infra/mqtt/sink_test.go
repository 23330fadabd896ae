package mqtt

import (
	"encoding/json"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/prosumer/core/factory"
	coremetrics "github.com/kilianp07/prosumer/core/metrics"
	"github.com/kilianp07/prosumer/core/model"
)

func newTestSink(t *testing.T, mc *mockClient) *Sink {
	t.Helper()
	useMock(t, mc)
	s, err := NewSink(Config{Broker: "tcp://localhost:1883", ClientID: "id", TopicPrefix: "house", BackoffMS: 1})
	require.NoError(t, err)
	return s
}

func TestSinkRecordSimulation(t *testing.T) {
	mc := &mockClient{}
	s := newTestSink(t, mc)
	at := time.Date(2015, 6, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.RecordSimulation(coremetrics.SimulationRecord{
		RunID: "r1", Engine: "self_consumption", Time: at, Steps: 96, Timestep: 0.25,
		Totals:              model.FlowTotals{InverterToLoad: 4, GridToLoad: 6},
		SelfConsumptionRate: 80, SelfSufficiencyRate: 40, Duration: 3 * time.Millisecond,
	}))
	require.Len(t, mc.published, 1)
	assert.Equal(t, "house/simulation/self_consumption", mc.published[0].topic)

	var msg map[string]any
	require.NoError(t, json.Unmarshal(mc.published[0].payload, &msg))
	assert.Equal(t, "r1", msg["run_id"])
	assert.EqualValues(t, at.UnixMilli(), msg["timestamp"])
	assert.EqualValues(t, 3, msg["duration_ms"])
	assert.EqualValues(t, 40, msg["self_sufficiency_rate"])
	totals := msg["totals"].(map[string]any)
	assert.EqualValues(t, 6, totals["grid_to_load_kwh"])
}

func TestSinkRecordShiftPerAppliance(t *testing.T) {
	mc := &mockClient{}
	s := newTestSink(t, mc)
	require.NoError(t, s.RecordShift([]coremetrics.ShiftRecord{
		{RunID: "r:dish", Appliance: "dish_washer", Stats: model.ShiftStats{CycleCount: 3}},
		{RunID: "r:wash", Appliance: "washing_machine", Stats: model.ShiftStats{CycleCount: 5, NetShiftedCount: 2}},
	}))
	require.Len(t, mc.published, 2)
	assert.Equal(t, "house/shift/dish_washer", mc.published[0].topic)
	assert.Equal(t, "house/shift/washing_machine", mc.published[1].topic)
	assert.Contains(t, string(mc.published[1].payload), `"net_shifted_count":2`)
}

func TestSinkRecordShiftJoinsErrors(t *testing.T) {
	fail := fmt.Errorf("offline")
	mc := &mockClient{}
	s := newTestSink(t, mc)
	mc.publishErrs = []error{fail, fail, fail, fail}
	err := s.RecordShift([]coremetrics.ShiftRecord{{Appliance: "a"}, {Appliance: "b"}})
	require.ErrorIs(t, err, fail)
	assert.Len(t, mc.published, 5)
}

func TestSinkRecordThresholds(t *testing.T) {
	mc := &mockClient{}
	s := newTestSink(t, mc)
	require.NoError(t, s.RecordThresholds(nil))
	assert.Empty(t, mc.published)

	require.NoError(t, s.RecordThresholds([]coremetrics.ThresholdEvent{
		{RunID: "r", Index: 0, Value: 1.5}, {RunID: "r", Index: 96, Value: 2.25},
	}))
	require.Len(t, mc.published, 1)
	assert.Equal(t, "house/thresholds", mc.published[0].topic)
	assert.JSONEq(t, `{"run_id":"r","timestamp":-62135596800000,"thresholds":[{"index":0,"value_kw":1.5},{"index":96,"value_kw":2.25}]}`,
		string(mc.published[0].payload))
}

func TestSinkRecordEconomicsNullsUndefined(t *testing.T) {
	mc := &mockClient{}
	s := newTestSink(t, mc)
	require.NoError(t, s.RecordEconomics(coremetrics.EconomicsEvent{RunID: "r", NPV: -120.5, IRR: math.NaN(), PBP: math.NaN(), ElBill: 300}))
	require.Len(t, mc.published, 1)
	var msg map[string]any
	require.NoError(t, json.Unmarshal(mc.published[0].payload, &msg))
	assert.EqualValues(t, -120.5, msg["npv"])
	assert.Nil(t, msg["irr"])
	assert.Nil(t, msg["pbp_years"])
	assert.Contains(t, msg, "irr")
}

func TestSinkRegistered(t *testing.T) {
	mc := &mockClient{}
	useMock(t, mc)
	sink, err := coremetrics.NewMetricsSink([]factory.ModuleConfig{{
		Type: "mqtt",
		Conf: map[string]any{"broker": "tcp://localhost:1883", "topic_prefix": "x", "qos": 1},
	}})
	require.NoError(t, err)
	s, ok := sink.(*Sink)
	require.True(t, ok)
	s.Close()
	assert.True(t, mc.disconnected)

	_, err = coremetrics.NewMetricsSink([]factory.ModuleConfig{{Type: "mqtt", Conf: map[string]any{"unknown": true}}})
	assert.Error(t, err)
}
