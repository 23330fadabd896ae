package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kilianp07/prosumer/core/model"
	"github.com/kilianp07/prosumer/pkg/export"
	"github.com/kilianp07/prosumer/pkg/plot"
	"github.com/kilianp07/prosumer/pkg/series"
)

var simulateFlags struct {
	pvPath        string
	pvColumn      string
	demandPath    string
	demandColumns []string
	out           string
	format        string
	plotPath      string
	plotFrom      int
	plotSteps     int
}

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Dispatch a PV and demand profile through the configured engine",
	RunE:  simulate,
}

func init() {
	f := simulateCmd.Flags()
	f.StringVar(&simulateFlags.pvPath, "pv", "", "CSV file holding the normalised PV profile")
	f.StringVar(&simulateFlags.pvColumn, "pv-column", "pv", "PV column name")
	f.StringVar(&simulateFlags.demandPath, "demand", "", "CSV file holding the demand profile (defaults to --pv)")
	f.StringSliceVar(&simulateFlags.demandColumns, "demand-columns", []string{"demand"}, "demand columns summed into the load")
	f.StringVarP(&simulateFlags.out, "out", "o", "-", "flows output file, - for stdout")
	f.StringVar(&simulateFlags.format, "format", "csv", "flows output format: csv or json")
	f.StringVar(&simulateFlags.plotPath, "plot", "", "write an HTML dispatch chart to this file")
	f.IntVar(&simulateFlags.plotFrom, "plot-from", 0, "first step drawn in the chart")
	f.IntVar(&simulateFlags.plotSteps, "plot-steps", 0, "number of steps drawn, 0 for all")
	_ = simulateCmd.MarkFlagRequired("pv")
	rootCmd.AddCommand(simulateCmd)
}

func simulate(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, cfg, err := newService()
	if err != nil {
		return err
	}
	defer closeService(svc)
	svc.ServeMetrics(ctx)

	pv, demand, err := loadProfiles(cfg.Simulation.PVPeak)
	if err != nil {
		return err
	}
	res, err := svc.Simulate(ctx, pv, demand)
	if err != nil {
		return fmt.Errorf("simulate: %w", err)
	}

	if err := res.Report.Print(cmd.ErrOrStderr()); err != nil {
		return err
	}
	if e := res.Economics; e != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "NPV: %.2f  IRR: %.4f  PBP: %.2f years  bill: %.2f  LCOE: %.2f/MWh\n",
			e.NPV, e.IRR, e.PBP, e.ElBill, e.CostPerMWh)
	}

	err = withOutput(cmd.OutOrStdout(), simulateFlags.out, func(w io.Writer) error {
		switch simulateFlags.format {
		case "json":
			return export.WriteJSON(w, res)
		case "csv":
			return export.WriteFlowsCSV(w, pv, demand, res.Flows)
		default:
			return fmt.Errorf("unknown format %q", simulateFlags.format)
		}
	})
	if err != nil {
		return err
	}
	if simulateFlags.plotPath == "" {
		return nil
	}
	return withOutput(cmd.OutOrStdout(), simulateFlags.plotPath, func(w io.Writer) error {
		win := plot.Window{From: simulateFlags.plotFrom, Steps: simulateFlags.plotSteps}
		return plot.DispatchHTML(w, pv, demand, res.Flows, cfg.Simulation.Parameters.Timestep, win)
	})
}

func loadProfiles(pvPeak float64) (model.TimeSeries, model.TimeSeries, error) {
	pvTable, err := series.Load(simulateFlags.pvPath)
	if err != nil {
		return nil, nil, err
	}
	pv, err := pvTable.Column(simulateFlags.pvColumn)
	if err != nil {
		return nil, nil, err
	}
	pv = pv.Clone()
	for i := range pv {
		pv[i] *= pvPeak
	}
	demandTable := pvTable
	if simulateFlags.demandPath != "" {
		if demandTable, err = series.Load(simulateFlags.demandPath); err != nil {
			return nil, nil, err
		}
	}
	demand, err := demandTable.Sum(simulateFlags.demandColumns...)
	if err != nil {
		return nil, nil, err
	}
	return pv, demand, nil
}

// withOutput runs write against path, or against stdout when path is "-".
func withOutput(stdout io.Writer, path string, write func(io.Writer) error) error {
	if path == "-" {
		return write(stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
