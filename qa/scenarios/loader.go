package scenarios

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/prosumer/core/model"
)

// Expected lists the series and indicators a scenario must reproduce. Empty
// fields are not checked.
type Expected struct {
	LevelOfCharge       []float64 `yaml:"level_of_charge,omitempty"`
	InverterToLoad      []float64 `yaml:"inverter_to_load,omitempty"`
	InverterToGrid      []float64 `yaml:"inverter_to_grid,omitempty"`
	GridToLoad          []float64 `yaml:"grid_to_load,omitempty"`
	Thresholds          []float64 `yaml:"thresholds,omitempty"`
	SelfConsumptionRate *float64  `yaml:"self_consumption_rate,omitempty"`
}

type Scenario struct {
	Name        string                     `yaml:"name"`
	Description string                     `yaml:"description,omitempty"`
	Engine      string                     `yaml:"engine"`
	Options     map[string]any             `yaml:"options,omitempty"`
	Params      model.SimulationParameters `yaml:"params"`
	PV          []float64                  `yaml:"pv"`
	Demand      []float64                  `yaml:"demand"`
	// Repeat tiles PV and Demand this many times, for multi-day scenarios.
	Repeat    int      `yaml:"repeat,omitempty"`
	Tolerance float64  `yaml:"tolerance,omitempty"`
	Expected  Expected `yaml:"expected"`
}

func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, err
	}
	if sc.Tolerance == 0 {
		sc.Tolerance = 1e-9
	}
	return &sc, nil
}

// Inputs returns the PV and demand profiles after tiling.
func (sc *Scenario) Inputs() (model.TimeSeries, model.TimeSeries) {
	n := sc.Repeat
	if n < 1 {
		n = 1
	}
	var pv, demand model.TimeSeries
	for i := 0; i < n; i++ {
		pv = append(pv, sc.PV...)
		demand = append(demand, sc.Demand...)
	}
	return pv, demand
}
