// Package plot renders dispatch results as standalone HTML charts.
package plot

import (
	"fmt"
	"io"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/kilianp07/prosumer/core/model"
)

// Window selects the samples [From, From+Steps) to draw.
type Window struct {
	From  int
	Steps int
}

// DispatchHTML writes a line chart of the inputs, the grid exchanges and the
// battery level over w to out. timestep labels the x axis in hours.
func DispatchHTML(out io.Writer, pv, demand model.TimeSeries, f *model.EnergyFlowSet, timestep float64, w Window) error {
	if f == nil || len(pv) != f.Len() || len(demand) != f.Len() {
		return fmt.Errorf("%w: flows do not match the inputs", model.ErrInputShape)
	}
	if w.Steps <= 0 {
		w.Steps = f.Len() - w.From
	}
	if w.From < 0 || w.From >= f.Len() {
		return fmt.Errorf("%w: window start %d outside [0,%d)", model.ErrInputShape, w.From, f.Len())
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Dispatch", Subtitle: fmt.Sprintf("%d steps of %gh", w.Steps, timestep)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Hour"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "kW / kWh"}),
		charts.WithTooltipOpts(opts.Tooltip{Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Bottom: "0"}),
	)

	pvw := pv.Window(w.From, w.Steps)
	xAxis := make([]string, len(pvw))
	for i := range xAxis {
		xAxis[i] = strconv.FormatFloat(float64(w.From+i)*timestep, 'f', 2, 64)
	}
	line.SetXAxis(xAxis).
		AddSeries("PV", lineData(pvw)).
		AddSeries("Demand", lineData(demand.Window(w.From, w.Steps))).
		AddSeries("Grid to load", lineData(f.GridToLoad.Window(w.From, w.Steps))).
		AddSeries("Inverter to grid", lineData(f.InverterToGrid.Window(w.From, w.Steps))).
		AddSeries("Level of charge", lineData(f.LevelOfCharge.Window(w.From, w.Steps)))

	if err := line.Render(out); err != nil {
		return fmt.Errorf("failed to render chart: %w", err)
	}
	return nil
}

func lineData(s model.TimeSeries) []opts.LineData {
	out := make([]opts.LineData, len(s))
	for i, v := range s {
		out[i] = opts.LineData{Value: v}
	}
	return out
}
