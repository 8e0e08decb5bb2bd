package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pratik-mahalle/satwatch/internal/state"
	"github.com/pratik-mahalle/satwatch/internal/view"
)

func newAnomaliesCmd(opts *options) *cobra.Command {
	var (
		filter view.FilterState
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "anomalies",
		Short: "List recent anomalies",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := checkFilter(filter)
			if err != nil {
				return err
			}
			if limit > 0 {
				opts.v.Set(limitKey, limit)
			}

			s := opts.newSession()
			snap, err := s.load(context.Background(), opts, state.ResourceAnomalies)
			if err != nil {
				return err
			}
			events := view.Filter(snap.Anomalies, f)

			if format := opts.format(); format != defaultFormat {
				return printOutput(opts.stdout, format, events)
			}

			t := NewTable(opts.stdout, "TIME", "SATELLITE", "SEVERITY", "SCORE", "ISSUES")
			for _, row := range view.HistoryRows(events) {
				t.AddRow(
					orDash(row.Time),
					row.SatelliteID,
					formatSeverity(string(row.Severity)),
					formatScore(row.Score),
					truncate(orDash(strings.Join(row.Issues, ", ")), 60),
				)
			}
			t.Render()
			if len(events) > view.MaxHistoryRows {
				fmt.Fprintf(opts.stdout, "\n%d more not shown; use -o json for the full list\n", len(events)-view.MaxHistoryRows)
			}
			return nil
		},
	}

	addFilterFlags(cmd, &filter)
	cmd.Flags().IntVar(&limit, "limit", 0, "number of anomalies to request from the backend (default from config)")
	return cmd
}

func newAlertsCmd(opts *options) *cobra.Command {
	var filter view.FilterState

	cmd := &cobra.Command{
		Use:   "alerts",
		Short: "Show active alerts",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := checkFilter(filter)
			if err != nil {
				return err
			}

			s := opts.newSession()
			snap, err := s.load(context.Background(), opts, state.ResourceAnomalies)
			if err != nil {
				return err
			}
			alerts := view.DeriveAlerts(view.Filter(snap.Anomalies, f))

			if format := opts.format(); format != defaultFormat {
				return printOutput(opts.stdout, format, alerts)
			}

			if len(alerts) == 0 {
				fmt.Fprintln(opts.stdout, "No active alerts")
				return nil
			}

			t := NewTable(opts.stdout, "TIME", "SATELLITE", "SEVERITY", "SCORE", "ISSUE")
			for _, a := range alerts {
				t.AddRow(orDash(a.Timestamp), a.SatelliteID, formatSeverity(a.Severity), formatScore(a.Score), truncate(a.Issue, 60))
			}
			t.Render()
			return nil
		},
	}

	addFilterFlags(cmd, &filter)
	return cmd
}
