// Package metrics defines the events emitted by simulation and shifting runs
// and the sinks that record them. Sinks like PromSink and InfluxSink live in
// infra/metrics and register themselves with the factory helpers here, which
// return a MultiSink automatically when multiple sinks are configured.
package metrics
