// Package config loads the prosumer configuration file and applies
// environment overrides.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/prosumer/core/dispatch"
	"github.com/kilianp07/prosumer/core/metrics"
	"github.com/kilianp07/prosumer/core/runlog"
	"github.com/kilianp07/prosumer/core/scheduler"
)

// Config is the application configuration, one field per top-level section.
type Config struct {
	Simulation SimulationConfig `json:"simulation"`
	Dispatch   dispatch.Config  `json:"dispatch"`
	Shift      scheduler.Config `json:"shift"`
	Tariff     TariffConfig     `json:"tariff"`
	Economics  EconomicsConfig  `json:"economics"`
	Metrics    metrics.Config   `json:"metrics"`
	RunLog     runlog.Config    `json:"runlog"`
	Log        LogConfig        `json:"log"`
	Monitoring MonitoringConfig `json:"monitoring"`
}

// Default returns a configuration with every section defaulted.
func Default() *Config {
	cfg := &Config{Shift: scheduler.DefaultConfig()}
	cfg.SetDefaults()
	return cfg
}

// SetDefaults fills unset fields of every section.
func (c *Config) SetDefaults() {
	c.Simulation.SetDefaults()
	c.Dispatch.SetDefaults()
	c.Tariff.SetDefaults()
	c.Economics.SetDefaults()
	c.RunLog.SetDefaults()
	c.Log.SetDefaults()
}

// Validate checks every section.
func (c *Config) Validate() error {
	checks := []struct {
		section string
		check   func() error
	}{
		{"simulation", c.Simulation.Validate},
		{"dispatch", c.Dispatch.Validate},
		{"shift", c.Shift.Validate},
		{"tariff", c.Tariff.Validate},
		{"economics", c.Economics.Validate},
		{"metrics", c.Metrics.Validate},
		{"runlog", c.RunLog.Validate},
		{"log", c.Log.Validate},
		{"monitoring", c.Monitoring.Validate},
	}
	for _, ch := range checks {
		if err := ch.check(); err != nil {
			return fmt.Errorf("%s: %w", ch.section, err)
		}
	}
	if c.Economics.Enabled && !c.Tariff.Enabled() {
		return fmt.Errorf("economics: a tariff is required to price the grid exchanges")
	}
	return nil
}

func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	// Optional environment overrides
	if err := k.Load(env.Provider("K_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "k_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	cfg := &Config{Shift: scheduler.DefaultConfig()}
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
