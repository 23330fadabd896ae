package dispatch

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	dispatchRuns     *prometheus.CounterVec
	dispatchDuration *prometheus.HistogramVec
	dispatchSteps    *prometheus.CounterVec
	thresholdSolves  *prometheus.CounterVec
)

// newCollectors creates new metric collectors.
func newCollectors() (*prometheus.CounterVec, *prometheus.HistogramVec, *prometheus.CounterVec, *prometheus.CounterVec) {
	runs := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_runs_total",
			Help: "Number of dispatch simulations by engine and result",
		},
		[]string{"engine", "result"},
	)
	dur := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dispatch_duration_seconds",
			Help:    "Wall time of one dispatch simulation",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"engine"},
	)
	steps := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_steps_total",
			Help: "Number of simulated timesteps",
		},
		[]string{"engine"},
	)
	solves := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "peak_shaving_threshold_solves_total",
			Help: "Daily threshold searches by outcome (fits, solved, failed)",
		},
		[]string{"outcome"},
	)
	return runs, dur, steps, solves
}

func init() {
	dispatchRuns, dispatchDuration, dispatchSteps, thresholdSolves = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers dispatch metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(dispatchRuns, dispatchDuration, dispatchSteps, thresholdSolves)
}

// ResetMetrics reinitializes metrics collectors for testing purposes and
// registers them on the provided registry if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	dispatchRuns, dispatchDuration, dispatchSteps, thresholdSolves = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
