package dispatch

import (
	"fmt"

	"github.com/kilianp07/prosumer/core/factory"
	"github.com/kilianp07/prosumer/core/model"
)

// InitialCharge selects the battery level before the first step.
type InitialCharge string

const (
	// InitialEmpty starts with an empty battery.
	InitialEmpty InitialCharge = "empty"
	// InitialHalf starts with the battery at half capacity.
	InitialHalf InitialCharge = "half"
)

// Options tunes the storage engines.
type Options struct {
	InitialCharge InitialCharge `json:"initial_charge" yaml:"initial_charge"`
	// ChargeWhenFull lets a step with no residual load run the regular charge
	// formula even when the previous level already reached capacity.
	ChargeWhenFull bool `json:"charge_when_full" yaml:"charge_when_full"`
}

// Validate rejects unknown initial charge modes. The empty value means
// InitialEmpty.
func (o Options) Validate() error {
	switch o.InitialCharge {
	case "", InitialEmpty, InitialHalf:
		return nil
	default:
		return fmt.Errorf("%w: unknown initial charge %q", model.ErrDomain, o.InitialCharge)
	}
}

func (o Options) initialLevel(capacity float64) float64 {
	if o.InitialCharge == InitialHalf {
		return capacity / 2
	}
	return 0
}

// Config selects the engine used by the simulate command. Options holds the
// raw engine settings decoded by the registry factory.
type Config struct {
	Engine  string         `json:"engine"`
	Options map[string]any `json:"options"`
}

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	if c.Engine == "" {
		c.Engine = EngineSelfConsumption
	}
}

// Module converts the config into a registry module description.
func (c Config) Module() factory.ModuleConfig {
	return factory.ModuleConfig{Type: c.Engine, Conf: c.Options}
}

// Validate checks that the configured engine exists and its options decode.
func (c Config) Validate() error {
	_, err := NewRegistry(nil).Create(c.Module())
	return err
}
