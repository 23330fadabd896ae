package dispatch

import (
	"github.com/kilianp07/prosumer/core/factory"
	"github.com/kilianp07/prosumer/infra/logger"
)

// NewRegistry returns a registry holding the built-in engines. Engines created
// from it log through log.
func NewRegistry(log logger.Logger) *factory.Registry[Engine] {
	reg := factory.NewRegistry[Engine]()
	_ = reg.Register(EngineSelfConsumption, func(conf map[string]any) (Engine, error) {
		o, err := decodeOptions(conf)
		if err != nil {
			return nil, err
		}
		return NewSelfConsumption(o, log), nil
	})
	_ = reg.Register(EnginePeakShaving, func(conf map[string]any) (Engine, error) {
		o, err := decodeOptions(conf)
		if err != nil {
			return nil, err
		}
		return NewPeakShaving(o, log), nil
	})
	_ = reg.Register(EngineNoBattery, func(map[string]any) (Engine, error) {
		return NewNoBattery(log), nil
	})
	return reg
}

func decodeOptions(conf map[string]any) (Options, error) {
	var o Options
	if err := factory.Decode(conf, &o); err != nil {
		return o, err
	}
	return o, o.Validate()
}
