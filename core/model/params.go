package model

import "fmt"

// SimulationParameters describes the PV/battery installation used by the
// dispatch engines. Energies are in kWh, powers in kW and the timestep in
// hours.
type SimulationParameters struct {
	BatteryCapacity    float64 `json:"battery_capacity" yaml:"battery_capacity"`
	MaxPower           float64 `json:"max_power" yaml:"max_power"`
	BatteryEfficiency  float64 `json:"battery_efficiency" yaml:"battery_efficiency"`
	InverterEfficiency float64 `json:"inverter_efficiency" yaml:"inverter_efficiency"`
	Timestep           float64 `json:"timestep" yaml:"timestep"`
}

// Validate checks that every divisor used by the engines is positive and that
// efficiencies lie in (0,1].
func (p SimulationParameters) Validate() error {
	if p.Timestep <= 0 {
		return fmt.Errorf("%w: timestep must be positive, got %g", ErrDomain, p.Timestep)
	}
	if p.BatteryEfficiency <= 0 || p.BatteryEfficiency > 1 {
		return fmt.Errorf("%w: battery efficiency must be in (0,1], got %g", ErrDomain, p.BatteryEfficiency)
	}
	if p.InverterEfficiency <= 0 || p.InverterEfficiency > 1 {
		return fmt.Errorf("%w: inverter efficiency must be in (0,1], got %g", ErrDomain, p.InverterEfficiency)
	}
	if p.BatteryCapacity < 0 {
		return fmt.Errorf("%w: battery capacity must not be negative, got %g", ErrDomain, p.BatteryCapacity)
	}
	if p.MaxPower < 0 {
		return fmt.Errorf("%w: max power must not be negative, got %g", ErrDomain, p.MaxPower)
	}
	return nil
}

// HasStorage reports whether the battery can exchange any energy at all.
func (p SimulationParameters) HasStorage() bool {
	return p.BatteryCapacity > 0 && p.MaxPower > 0
}

// StepsPerDay returns the number of samples covering 24 hours.
func (p SimulationParameters) StepsPerDay() int {
	return int(24/p.Timestep + 0.5)
}
