package config

import (
	"fmt"
	"strings"

	"github.com/kilianp07/prosumer/core/economics"
	"github.com/kilianp07/prosumer/core/model"
	"github.com/kilianp07/prosumer/core/tariff"
	"github.com/rs/zerolog"
)

// SimulationConfig describes the installation and the input profiles.
type SimulationConfig struct {
	Parameters model.SimulationParameters `json:"parameters"`
	// PVPeak scales a normalised PV profile to the installed kWp.
	PVPeak float64 `json:"pv_peak"`
}

// SetDefaults fills the efficiencies and the quarter-hour timestep when unset.
func (c *SimulationConfig) SetDefaults() {
	p := &c.Parameters
	if p.Timestep == 0 {
		p.Timestep = 0.25
	}
	if p.BatteryEfficiency == 0 {
		p.BatteryEfficiency = 0.9
	}
	if p.InverterEfficiency == 0 {
		p.InverterEfficiency = 1
	}
	if c.PVPeak == 0 {
		c.PVPeak = 1
	}
}

// Validate checks the installation parameters.
func (c SimulationConfig) Validate() error {
	if c.PVPeak < 0 {
		return fmt.Errorf("pv_peak must not be negative, got %g", c.PVPeak)
	}
	return c.Parameters.Validate()
}

// TariffConfig holds the time-of-use calendar and the price of each band in
// currency per MWh.
type TariffConfig struct {
	Calendar     tariff.Calendar    `json:"calendar"`
	Prices       map[string]float64 `json:"prices"`
	StepsPerHour int                `json:"steps_per_hour"`
	Year         int                `json:"year"`
	// ShiftBand names the band whose price bounds the admissible shift slots.
	ShiftBand string `json:"shift_band"`
}

// Enabled reports whether a tariff was configured.
func (c TariffConfig) Enabled() bool { return len(c.Prices) > 0 }

// SetDefaults fills unset fields.
func (c *TariffConfig) SetDefaults() {
	if c.StepsPerHour == 0 {
		c.StepsPerHour = 4
	}
	if c.Year == 0 {
		c.Year = 2015
	}
	if c.ShiftBand == "" {
		c.ShiftBand = "hollow"
	}
}

// Validate checks the calendar when a tariff is configured.
func (c TariffConfig) Validate() error {
	if !c.Enabled() {
		return nil
	}
	if c.StepsPerHour <= 0 {
		return fmt.Errorf("steps_per_hour must be positive, got %d", c.StepsPerHour)
	}
	if _, ok := c.Prices[c.ShiftBand]; !ok {
		return fmt.Errorf("no price for shift band %q", c.ShiftBand)
	}
	return c.Calendar.Validate()
}

// ShiftThreshold returns the price per kWh at or below which shifting is
// admissible.
func (c TariffConfig) ShiftThreshold() float64 {
	return c.Prices[c.ShiftBand] / 1000
}

// EconomicsConfig enables the profitability analysis of simulate runs.
type EconomicsConfig struct {
	Enabled    bool                 `json:"enabled"`
	Financials economics.Financials `json:"financials"`
	Investment economics.Investment `json:"investment"`
}

// SetDefaults fills unset fields.
func (c *EconomicsConfig) SetDefaults() {
	c.Financials.SetDefaults()
	c.Investment.SetDefaults()
}

// Validate checks both parameter sets when enabled.
func (c EconomicsConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if err := c.Financials.Validate(); err != nil {
		return err
	}
	return c.Investment.Validate()
}

// LogConfig selects the application log level and output format.
type LogConfig struct {
	Level string `json:"level"`
	// Format is "json" or "console". Empty follows APP_ENV.
	Format string `json:"format"`
}

// SetDefaults applies the info level.
func (c *LogConfig) SetDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
}

// Validate rejects unknown level and format names.
func (c LogConfig) Validate() error {
	if _, err := zerolog.ParseLevel(c.Level); err != nil {
		return fmt.Errorf("unknown log level %q", c.Level)
	}
	switch strings.ToLower(c.Format) {
	case "", "json", "console":
		return nil
	default:
		return fmt.Errorf("unknown log format %q", c.Format)
	}
}

// MonitoringConfig enables Sentry error reporting of failed runs.
type MonitoringConfig struct {
	// DSN of the Sentry project. Empty disables reporting.
	DSN              string  `json:"dsn"`
	Environment      string  `json:"environment"`
	Release          string  `json:"release"`
	TracesSampleRate float64 `json:"traces_sample_rate"`
}

// Validate checks the sample rate.
func (c MonitoringConfig) Validate() error {
	if c.TracesSampleRate < 0 || c.TracesSampleRate > 1 {
		return fmt.Errorf("traces_sample_rate must be in [0,1], got %g", c.TracesSampleRate)
	}
	return nil
}
