package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/pratik-mahalle/satwatch/internal/state"
)

func newSatellitesCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:     "satellites",
		Aliases: []string{"sats"},
		Short:   "List satellites",
		RunE: func(cmd *cobra.Command, args []string) error {
			s := opts.newSession()
			snap, err := s.load(context.Background(), opts, state.ResourceSatellites)
			if err != nil {
				return err
			}

			if format := opts.format(); format != defaultFormat {
				return printOutput(opts.stdout, format, snap.Satellites)
			}

			t := NewTable(opts.stdout, "SATELLITE", "STATUS", "SEVERITY", "LAST TELEMETRY")
			for _, sat := range snap.Satellites {
				status := "offline"
				if sat.Online {
					status = "online"
				}
				last := "-"
				if sat.LastTelemetry != nil {
					last = sat.LastTelemetry.UTC().Format("2006-01-02 15:04:05")
				}
				t.AddRow(sat.ID, formatStatus(status), formatSeverity(string(sat.LatestSeverity)), last)
			}
			t.Render()
			return nil
		},
	}
}
