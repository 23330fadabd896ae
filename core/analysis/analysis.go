// Package analysis derives the headline indicators of a dispatch run: how much
// PV is consumed on site, how much of the load it covers and where the losses
// go.
package analysis

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/kilianp07/prosumer/core/model"
)

// Report aggregates a flow set into energies (kWh), rates (%) and battery
// usage indicators.
type Report struct {
	TotalLoad            float64 `json:"total_load_kwh"`
	TotalPV              float64 `json:"total_pv_kwh"`
	SelfConsumption      float64 `json:"self_consumption_kwh"`
	TotalToGrid          float64 `json:"total_to_grid_kwh"`
	TotalFromGrid        float64 `json:"total_from_grid_kwh"`
	SelfConsumptionRate  float64 `json:"self_consumption_rate"`
	SelfSufficiencyRate  float64 `json:"self_sufficiency_rate"`
	BatteryGeneration    float64 `json:"battery_generation_kwh"`
	BatteryConsumption   float64 `json:"battery_consumption_kwh"`
	BatteryLosses        float64 `json:"battery_losses_kwh"`
	InverterLosses       float64 `json:"inverter_losses_kwh"`
	AverageDepth         float64 `json:"average_depth"`
	EquivalentFullCycles float64 `json:"equivalent_full_cycles"`
	// Residue closes the energy balance and should be close to zero.
	Residue float64 `json:"residue_kwh"`
}

// Analyze computes the report of flows produced from pv and demand with p.
func Analyze(pv, demand model.TimeSeries, flows *model.EnergyFlowSet, p model.SimulationParameters) (Report, error) {
	if err := p.Validate(); err != nil {
		return Report{}, err
	}
	if flows == nil || len(pv) != flows.Len() || len(demand) != flows.Len() {
		return Report{}, fmt.Errorf("%w: flows do not match the %d pv and %d demand samples", model.ErrInputShape, len(pv), len(demand))
	}
	dt := p.Timestep
	tot := flows.Totals(dt)
	r := Report{
		TotalLoad:          demand.Energy(dt),
		TotalPV:            pv.Energy(dt),
		SelfConsumption:    tot.InverterToLoad,
		TotalToGrid:        tot.InverterToGrid,
		TotalFromGrid:      tot.GridToLoad,
		BatteryGeneration:  tot.StorageToInverter,
		BatteryConsumption: tot.PVToStorage,
	}
	r.BatteryLosses = r.BatteryConsumption - r.BatteryGeneration
	r.InverterLosses = (r.TotalPV - r.BatteryLosses) * (1 - p.InverterEfficiency)
	if r.TotalPV > 0 {
		r.SelfConsumptionRate = r.SelfConsumption / r.TotalPV * 100
	}
	if r.TotalLoad > 0 {
		r.SelfSufficiencyRate = r.SelfConsumption / r.TotalLoad * 100
	}
	if days := float64(len(pv)) * dt / 24; p.BatteryCapacity > 0 && days > 0 {
		r.AverageDepth = r.BatteryGeneration / (days * p.BatteryCapacity)
		r.EquivalentFullCycles = days * r.AverageDepth
	}
	r.Residue = r.TotalPV + r.TotalFromGrid - r.TotalToGrid - r.BatteryLosses - r.InverterLosses - r.TotalLoad
	return r, nil
}

// Fields returns the report as a flat map, suitable for structured logging.
func (r Report) Fields() map[string]any {
	return map[string]any{
		"total_load_kwh":       r.TotalLoad,
		"total_pv_kwh":         r.TotalPV,
		"self_consumption_kwh": r.SelfConsumption,
		"to_grid_kwh":          r.TotalToGrid,
		"from_grid_kwh":        r.TotalFromGrid,
		"scr_percent":          r.SelfConsumptionRate,
		"ssr_percent":          r.SelfSufficiencyRate,
		"full_cycles":          r.EquivalentFullCycles,
		"residue_kwh":          r.Residue,
	}
}

// Print writes a human readable summary to w.
func (r Report) Print(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	rows := []struct {
		label string
		value float64
		unit  string
	}{
		{"Total consumption", r.TotalLoad, "kWh"},
		{"Total PV production", r.TotalPV, "kWh"},
		{"Self consumption", r.SelfConsumption, "kWh"},
		{"Total fed to the grid", r.TotalToGrid, "kWh"},
		{"Total bought from the grid", r.TotalFromGrid, "kWh"},
		{"Self consumption rate (SCR)", r.SelfConsumptionRate, "%"},
		{"Self sufficiency rate (SSR)", r.SelfSufficiencyRate, "%"},
		{"Energy provided by the battery", r.BatteryGeneration, "kWh"},
		{"Average charging/discharging depth", r.AverageDepth, ""},
		{"Equivalent full cycles", r.EquivalentFullCycles, ""},
		{"Battery losses", r.BatteryLosses, "kWh"},
		{"Inverter losses", r.InverterLosses, "kWh"},
		{"Residue (check)", r.Residue, "kWh"},
	}
	for _, row := range rows {
		if _, err := fmt.Fprintf(tw, "%s:\t%.3g\t%s\n", row.label, row.value, row.unit); err != nil {
			return err
		}
	}
	return tw.Flush()
}
