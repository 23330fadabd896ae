package cmd

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kilianp07/prosumer/core/model"
	"github.com/kilianp07/prosumer/pkg/export"
	"github.com/kilianp07/prosumer/pkg/series"
)

var shiftFlags struct {
	input        string
	appliances   []string
	occupancy    string
	stepsPerHour int
	out          string
	stats        string
}

var shiftCmd = &cobra.Command{
	Use:   "shift",
	Short: "Move appliance cycles into admissible time windows",
	RunE:  shift,
}

func init() {
	f := shiftCmd.Flags()
	f.StringVar(&shiftFlags.input, "input", "", "CSV file with one column per appliance")
	f.StringSliceVar(&shiftFlags.appliances, "appliances", nil, "appliance columns to shift, all columns when empty")
	f.StringVar(&shiftFlags.occupancy, "occupancy", "", "CSV file with one presence column per occupant")
	f.IntVar(&shiftFlags.stepsPerHour, "steps-per-hour", 60, "resolution of the appliance traces")
	f.StringVarP(&shiftFlags.out, "out", "o", "-", "shifted traces output file, - for stdout")
	f.StringVar(&shiftFlags.stats, "stats", "", "write per-appliance statistics as JSON to this file")
	_ = shiftCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(shiftCmd)
}

func shift(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, _, err := newService()
	if err != nil {
		return err
	}
	defer closeService(svc)
	svc.ServeMetrics(ctx)

	table, err := series.Load(shiftFlags.input)
	if err != nil {
		return err
	}
	names := shiftFlags.appliances
	if len(names) == 0 {
		names = table.Columns
	}
	appliances := make(map[string]model.TimeSeries, len(names))
	for _, n := range names {
		if appliances[n], err = table.Column(n); err != nil {
			return err
		}
	}
	var occupants [][]float64
	if shiftFlags.occupancy != "" {
		occ, err := series.Load(shiftFlags.occupancy)
		if err != nil {
			return err
		}
		for _, c := range occ.Columns {
			s, _ := occ.Column(c)
			occupants = append(occupants, s)
		}
	}

	res, err := svc.Shift(ctx, appliances, occupants, shiftFlags.stepsPerHour)
	if err != nil {
		return err
	}

	cols := make([]model.NamedSeries, 0, 2*len(names))
	stats := make(map[string]model.ShiftStats, len(names))
	for _, n := range names {
		cols = append(cols,
			model.NamedSeries{Name: n, Values: appliances[n]},
			model.NamedSeries{Name: n + "_shift", Values: res.Results[n].Power})
		stats[n] = res.Results[n].Stats
	}
	if err := withOutput(cmd.OutOrStdout(), shiftFlags.out, func(w io.Writer) error {
		return export.WriteCSV(w, cols)
	}); err != nil {
		return err
	}
	if shiftFlags.stats == "" {
		return nil
	}
	return withOutput(cmd.OutOrStdout(), shiftFlags.stats, func(w io.Writer) error {
		return export.WriteJSON(w, stats)
	})
}
