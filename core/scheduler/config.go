package scheduler

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/kilianp07/prosumer/core/model"
	"gopkg.in/yaml.v3"
)

// Config defines cycle detection, shifting and mask parameters.
type Config struct {
	// Floor replaces zero samples of the shifted trace.
	Floor float64 `json:"floor" yaml:"floor"`
	// IdleLevel is the power at or below which the appliance is idle.
	IdleLevel        float64 `json:"idle_level" yaml:"idle_level"`
	ShiftProbability float64 `json:"shift_probability" yaml:"shift_probability"`
	Seed             uint64  `json:"seed" yaml:"seed"`
	// PriceThreshold marks slots with a tariff at or below it as admissible.
	PriceThreshold float64 `json:"price_threshold" yaml:"price_threshold"`
	// LookaheadSteps closes a slot when the cheap window ends within that
	// many steps.
	LookaheadSteps int `json:"lookahead_steps" yaml:"lookahead_steps"`
	// OccupancyRepeat is the number of trace samples per occupancy sample.
	OccupancyRepeat int `json:"occupancy_repeat" yaml:"occupancy_repeat"`
}

// DefaultConfig returns the settings used for minute-resolution traces with
// ten-minute occupancy data.
func DefaultConfig() Config {
	return Config{
		Floor:            1,
		IdleLevel:        1,
		ShiftProbability: 1,
		LookaheadSteps:   60,
		OccupancyRepeat:  10,
	}
}

// Validate checks the ranges of every field.
func (c Config) Validate() error {
	if math.IsNaN(c.ShiftProbability) || c.ShiftProbability < 0 || c.ShiftProbability > 1 {
		return fmt.Errorf("%w: shift_probability must be in [0,1], got %g", model.ErrDomain, c.ShiftProbability)
	}
	if c.Floor < 0 || c.IdleLevel < 0 {
		return fmt.Errorf("%w: floor and idle_level must not be negative", model.ErrDomain)
	}
	if c.LookaheadSteps < 0 {
		return fmt.Errorf("%w: lookahead_steps must not be negative", model.ErrDomain)
	}
	if c.OccupancyRepeat <= 0 {
		return fmt.Errorf("%w: occupancy_repeat must be positive", model.ErrDomain)
	}
	return nil
}

// LoadConfig loads Config from a JSON or YAML file. Fields missing from the
// file keep their DefaultConfig value.
func LoadConfig(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, err
	}
	defer f.Close()
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if ext != "yaml" && ext != "yml" && ext != "json" {
		return Config{}, fmt.Errorf("unsupported config format: .%s", ext)
	}
	return DecodeConfig(f, ext)
}

// DecodeConfig reads from r to decode a Config.
func DecodeConfig(r io.Reader, format string) (Config, error) {
	cfg := DefaultConfig()
	switch strings.ToLower(format) {
	case "yaml", "yml":
		dec := yaml.NewDecoder(r)
		if err := dec.Decode(&cfg); err != nil && err != io.EOF {
			return cfg, err
		}
	case "json":
		dec := json.NewDecoder(r)
		if err := dec.Decode(&cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported format: %s", format)
	}
	return cfg, cfg.Validate()
}
