// Package infra holds the adapters between the simulator and the outside
// world: the zerolog logger, the Prometheus and InfluxDB metrics sinks and
// the MQTT publisher. Core packages only see them through the interfaces of
// core/logger and core/metrics.
package infra
