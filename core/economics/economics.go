// Package economics evaluates the profitability of a PV/battery installation
// from the flows of a one year dispatch run.
package economics

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/kilianp07/prosumer/core/model"
	"github.com/kilianp07/prosumer/internal/numeric"
	"gonum.org/v1/gonum/floats"
)

// solveRoot is overridable in tests.
var solveRoot = numeric.Brent

// IRR search interval.
const (
	irrLow  = -0.99
	irrHigh = 10.0
)

// Inputs are the yearly profiles of one installation, in kW.
type Inputs struct {
	Generation   model.TimeSeries
	Load         model.TimeSeries
	ToGrid       model.TimeSeries
	FromGrid     model.TimeSeries
	SelfConsumed model.TimeSeries
	// CapacityPV in kWp and CapacityBattery in kWh size the investment.
	CapacityPV      float64
	CapacityBattery float64
}

// InputsFromFlows builds the inputs of a dispatch run.
func InputsFromFlows(pv, demand model.TimeSeries, f *model.EnergyFlowSet, capacityPV, capacityBattery float64) Inputs {
	return Inputs{
		Generation:      pv,
		Load:            demand,
		ToGrid:          f.InverterToGrid,
		FromGrid:        f.GridToLoad,
		SelfConsumed:    f.InverterToLoad,
		CapacityPV:      capacityPV,
		CapacityBattery: capacityBattery,
	}
}

// Financials describes the tariff scheme and the cost of capital.
type Financials struct {
	WACC        float64 `json:"wacc" yaml:"wacc"`
	NetMetering bool    `json:"net_metering" yaml:"net_metering"`
	TimeHorizon int     `json:"time_horizon" yaml:"time_horizon"`
	// GridFixed is the yearly fixed grid fee, GridPerKW the yearly fee per kW
	// of peak demand.
	GridFixed float64 `json:"grid_fixed" yaml:"grid_fixed"`
	GridPerKW float64 `json:"grid_per_kw" yaml:"grid_per_kw"`
	// FeedInPrice is paid per MWh sold to the grid.
	FeedInPrice float64 `json:"feed_in_price" yaml:"feed_in_price"`
}

// SetDefaults fills unset fields.
func (f *Financials) SetDefaults() {
	if f.TimeHorizon == 0 {
		f.TimeHorizon = 20
	}
}

// Validate checks the horizon and the discount rate.
func (f Financials) Validate() error {
	if f.TimeHorizon < 1 {
		return fmt.Errorf("%w: time horizon must be at least one year, got %d", model.ErrDomain, f.TimeHorizon)
	}
	if f.WACC <= -1 {
		return fmt.Errorf("%w: wacc must be above -1, got %g", model.ErrDomain, f.WACC)
	}
	return nil
}

// Investment holds the technology costs. OM is the yearly operation and
// maintenance cost per unit of capex.
type Investment struct {
	FixedPVCost       float64 `json:"fixed_pv_cost" yaml:"fixed_pv_cost"`
	PVCostPerKW       float64 `json:"pv_cost_per_kw" yaml:"pv_cost_per_kw"`
	FixedBatteryCost  float64 `json:"fixed_battery_cost" yaml:"fixed_battery_cost"`
	BatteryCostPerKWh float64 `json:"battery_cost_per_kwh" yaml:"battery_cost_per_kwh"`
	PVLifetime        int     `json:"pv_lifetime" yaml:"pv_lifetime"`
	BatteryLifetime   int     `json:"battery_lifetime" yaml:"battery_lifetime"`
	OM                float64 `json:"om" yaml:"om"`
}

// SetDefaults fills unset lifetimes.
func (v *Investment) SetDefaults() {
	if v.PVLifetime == 0 {
		v.PVLifetime = 20
	}
	if v.BatteryLifetime == 0 {
		v.BatteryLifetime = 10
	}
}

// Validate rejects negative costs and non positive lifetimes.
func (v Investment) Validate() error {
	for name, c := range map[string]float64{
		"fixed pv cost": v.FixedPVCost, "pv cost per kw": v.PVCostPerKW,
		"fixed battery cost": v.FixedBatteryCost, "battery cost per kwh": v.BatteryCostPerKWh, "om": v.OM,
	} {
		if c < 0 {
			return fmt.Errorf("%w: %s must not be negative, got %g", model.ErrDomain, name, c)
		}
	}
	if v.PVLifetime < 1 || v.BatteryLifetime < 1 {
		return fmt.Errorf("%w: lifetimes must be at least one year", model.ErrDomain)
	}
	return nil
}

// capex returns the PV and battery investments. Fixed costs only apply to
// installed components.
func (v Investment) capex(in Inputs) (pv, battery float64) {
	if in.CapacityPV > 0 {
		pv = v.FixedPVCost + v.PVCostPerKW*in.CapacityPV
	}
	if in.CapacityBattery > 0 {
		battery = v.FixedBatteryCost + v.BatteryCostPerKWh*in.CapacityBattery
	}
	return pv, battery
}

// Result gathers the yearly balance and the profitability indicators. IRR is
// NaN when the cash flows never change sign, PBP when the discounted
// cumulative cash flow never turns positive.
type Result struct {
	NPV             float64   `json:"npv"`
	IRR             float64   `json:"irr"`
	PBP             float64   `json:"pbp"`
	RevSelling      float64   `json:"rev_selling"`
	CostBuying      float64   `json:"cost_buying"`
	AnnualGridCosts float64   `json:"annual_grid_costs"`
	ElBill          float64   `json:"el_bill"`
	CostPerMWh      float64   `json:"cost_per_mwh"`
	CostGrid        float64   `json:"cost_grid"`
	CashFlows       []float64 `json:"cash_flows"`
	NPVCurve        []float64 `json:"npv_curve"`
}

// MarshalJSON writes undefined IRR and PBP as null.
func (r Result) MarshalJSON() ([]byte, error) {
	type plain Result
	return json.Marshal(struct {
		plain
		IRR *float64 `json:"irr"`
		PBP *float64 `json:"pbp"`
	}{plain(r), defined(r.IRR), defined(r.PBP)})
}

func defined(f float64) *float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

// Analyze evaluates an installation over fin.TimeHorizon years. prices is the
// retail price of every sample in currency per kWh, timestep is in hours.
func Analyze(in Inputs, fin Financials, inv Investment, prices model.TimeSeries, timestep float64) (Result, error) {
	if err := validate(in, fin, inv, prices, timestep); err != nil {
		return Result{}, err
	}
	years := fin.TimeHorizon
	pvInv, batInv := inv.capex(in)

	var r Result
	r.AnnualGridCosts = fin.GridFixed + fin.GridPerKW*in.Load.Max()
	if fin.NetMetering {
		var net, bought float64
		for i := range in.Load {
			net += (in.Generation[i] - in.Load[i]) * timestep
			bought += prices[i] * (in.Load[i] - in.Generation[i]) * timestep
		}
		r.RevSelling = math.Max(0, net) * fin.FeedInPrice / 1000
		r.CostBuying = math.Max(bought, 0)
	} else {
		r.RevSelling = in.ToGrid.Energy(timestep) * fin.FeedInPrice / 1000
		r.CostBuying = floats.Dot(prices, in.FromGrid) * timestep
	}
	reference := floats.Dot(prices, in.Load) * timestep
	r.ElBill = r.RevSelling - r.CostBuying - r.AnnualGridCosts

	cf := make([]float64, years+1)
	cf[0] = -pvInv - batInv
	for y := inv.BatteryLifetime; y < years; y += inv.BatteryLifetime {
		cf[y] -= batInv
	}
	yearly := r.ElBill + reference - inv.OM*(batInv+pvInv)
	for y := 1; y <= years; y++ {
		cf[y] += yearly
	}
	r.CashFlows = cf
	r.NPVCurve = discountedCumulative(cf, fin.WACC)
	r.NPV = r.NPVCurve[years]
	r.PBP = payback(r.NPVCurve)
	r.IRR = irr(cf)

	load := in.Load.Energy(timestep)
	if load > 0 {
		batTotal := batInv + batInv/math.Pow(1+fin.WACC, float64(inv.BatteryLifetime))
		annualInv := (pvInv+batTotal)*crf(fin.WACC, inv.PVLifetime) + inv.OM*(batTotal+pvInv)
		r.CostPerMWh = (annualInv + r.AnnualGridCosts - r.RevSelling + r.CostBuying) / load * 1000
		r.CostGrid = r.AnnualGridCosts / load * 1000
	}
	return r, nil
}

func validate(in Inputs, fin Financials, inv Investment, prices model.TimeSeries, timestep float64) error {
	if timestep <= 0 {
		return fmt.Errorf("%w: timestep must be positive, got %g", model.ErrDomain, timestep)
	}
	if err := fin.Validate(); err != nil {
		return err
	}
	if err := inv.Validate(); err != nil {
		return err
	}
	n := len(in.Load)
	for name, s := range map[string]model.TimeSeries{
		"generation": in.Generation, "to grid": in.ToGrid, "from grid": in.FromGrid,
		"self consumed": in.SelfConsumed, "prices": prices,
	} {
		if len(s) != n {
			return fmt.Errorf("%w: %s has %d samples, load %d", model.ErrInputShape, name, len(s), n)
		}
	}
	return nil
}

// NPV discounts cash flows, the first one being undiscounted.
func NPV(rate float64, cashFlows []float64) float64 {
	var v float64
	for i, c := range cashFlows {
		v += c / math.Pow(1+rate, float64(i))
	}
	return v
}

func discountedCumulative(cf []float64, rate float64) []float64 {
	out := make([]float64, len(cf))
	var acc float64
	for i, c := range cf {
		acc += c / math.Pow(1+rate, float64(i))
		out[i] = acc
	}
	return out
}

// payback interpolates the first year where the cumulative discounted cash
// flow turns from negative to positive.
func payback(curve []float64) float64 {
	for i := 1; i < len(curve); i++ {
		if curve[i-1] < 0 && curve[i] >= 0 {
			return float64(i-1) + -curve[i-1]/(curve[i]-curve[i-1])
		}
	}
	return math.NaN()
}

func irr(cf []float64) float64 {
	r, err := solveRoot(func(rate float64) float64 { return NPV(rate, cf) }, irrLow, irrHigh, 1e-10, 200)
	if err != nil {
		return math.NaN()
	}
	return r
}

// crf is the capital recovery factor of n yearly annuities at rate.
func crf(rate float64, n int) float64 {
	if rate == 0 {
		return 1 / float64(n)
	}
	g := math.Pow(1+rate, float64(n))
	return rate * g / (g - 1)
}

// MostRepresentative returns the index of the bill closest to the mean of
// bills.
func MostRepresentative(bills []float64) (int, error) {
	if len(bills) == 0 {
		return 0, fmt.Errorf("%w: no bill to compare", model.ErrInputShape)
	}
	var mean float64
	for _, b := range bills {
		mean += b
	}
	mean /= float64(len(bills))
	best := 0
	for i, b := range bills {
		if math.Abs(b-mean) < math.Abs(bills[best]-mean) {
			best = i
		}
	}
	return best, nil
}
