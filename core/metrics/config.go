package metrics

import (
	"fmt"

	"github.com/kilianp07/prosumer/core/factory"
)

// Config defines settings for metrics sinks.
type Config struct {
	Sinks []factory.ModuleConfig `json:"sinks"`
	// EmissionFactor is the grid carbon intensity in kg CO2 per kWh, used
	// to report the emissions avoided by self-consumption.
	EmissionFactor float64 `json:"emission_factor"`
	// ListenAddr exposes /metrics over HTTP while a run is in progress.
	ListenAddr string `json:"listen_addr"`
	// TextfilePath receives the final Prometheus exposition for the
	// node_exporter textfile collector.
	TextfilePath string `json:"textfile_path"`
}

// Validate checks that every sink names a type.
func (c Config) Validate() error {
	for i, s := range c.Sinks {
		if s.Type == "" {
			return fmt.Errorf("metrics sink %d has no type", i)
		}
	}
	if c.EmissionFactor < 0 {
		return fmt.Errorf("emission factor must not be negative, got %g", c.EmissionFactor)
	}
	return nil
}
