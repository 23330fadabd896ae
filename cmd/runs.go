package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/prosumer/core/runlog"
)

var runsFlags struct {
	kind   string
	engine string
	since  time.Duration
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List the runs recorded in the run log",
	RunE:  listRuns,
}

func init() {
	f := runsCmd.Flags()
	f.StringVar(&runsFlags.kind, "kind", "", "filter by kind: simulation or shift")
	f.StringVar(&runsFlags.engine, "engine", "", "filter by dispatch engine")
	f.DurationVar(&runsFlags.since, "since", 0, "only list runs younger than this duration")
	rootCmd.AddCommand(runsCmd)
}

func listRuns(cmd *cobra.Command, args []string) error {
	svc, _, err := newService()
	if err != nil {
		return err
	}
	defer closeService(svc)

	q := runlog.Query{Kind: runlog.Kind(runsFlags.kind), Engine: runsFlags.engine}
	if runsFlags.since > 0 {
		q.Start = time.Now().Add(-runsFlags.since)
	}
	recs, err := svc.Query(cmd.Context(), q)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTIME\tKIND\tENGINE/APPLIANCE\tSTEPS\tDURATION")
	for _, r := range recs {
		subject := r.Engine
		if subject == "" {
			subject = r.Appliance
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%.1fms\n",
			r.ID, r.Timestamp.Format(time.RFC3339), r.Kind, subject, r.Steps, r.DurationMS)
	}
	return tw.Flush()
}
