package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pratik-mahalle/satwatch/internal/state"
	"github.com/pratik-mahalle/satwatch/internal/view"
)

func newStatusCmd(opts *options) *cobra.Command {
	var filter view.FilterState

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show dashboard summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := checkFilter(filter)
			if err != nil {
				return err
			}

			s := opts.newSession()
			snap, err := s.load(context.Background(), opts)
			if err != nil {
				return err
			}
			d := view.Derive(snap, f, time.Now())

			if format := opts.format(); format != defaultFormat {
				return printOutput(opts.stdout, format, d)
			}
			renderSummary(opts, d)
			return nil
		},
	}

	addFilterFlags(cmd, &filter)
	return cmd
}

// renderSummary prints the dashboard header used by status and watch
func renderSummary(opts *options, d view.Dashboard) {
	w := opts.stdout

	fmt.Fprintln(w, "satwatch dashboard")
	fmt.Fprintln(w, strings.Repeat("=", 40))

	conn := "connected"
	if !d.Connected {
		conn = "disconnected (showing last known data)"
	}
	fmt.Fprintf(w, "  Backend:       %s\n", formatStatus(conn))
	fmt.Fprintf(w, "  Filter:        %s\n", describeFilter(d.Filter))
	fmt.Fprintln(w)

	fmt.Fprintf(w, "  Today:         %d anomalies\n", d.KPIs.TotalToday)
	fmt.Fprintf(w, "  Critical:      %d\n", d.KPIs.Critical)
	fmt.Fprintf(w, "  Avg score:     %s\n", formatScore(d.KPIs.AvgScore))
	fmt.Fprintf(w, "  Online:        %d/%d satellites\n", d.KPIs.OnlineSatellites, len(d.Satellites))

	if d.ServerStats != nil {
		fmt.Fprintf(w, "  Server stats:  %d today, %d critical, avg %s, %d online\n",
			d.ServerStats.TotalAnomaliesToday,
			d.ServerStats.CriticalAnomalies,
			formatScore(d.ServerStats.AverageScore),
			d.ServerStats.OnlineSatellites)
	}
	fmt.Fprintln(w)

	for _, r := range state.Resources {
		st := d.Resources[r]
		line := fmt.Sprintf("  %-13s  %s", string(r)+":", resourceStatus(st))
		if st.Error != nil {
			line += fmt.Sprintf(" (%s: %s)", st.Error.Kind, truncate(st.Error.Message, 60))
		}
		fmt.Fprintln(w, line)
	}
}

func resourceStatus(st state.ResourceState) string {
	switch {
	case st.Phase == state.PhaseFetching:
		return formatStatus("fetching")
	case st.Stale():
		return formatStatus("stale")
	case st.Error != nil:
		return formatStatus("failed")
	case !st.Loaded:
		return formatStatus("pending")
	default:
		return formatStatus("ok") + " updated " + st.UpdatedAt.UTC().Format("15:04:05")
	}
}

func describeFilter(f view.FilterState) string {
	parts := []string{"satellite " + f.SatelliteID}
	if f.From != "" {
		parts = append(parts, "from "+f.From)
	}
	if f.To != "" {
		parts = append(parts, "to "+f.To)
	}
	return strings.Join(parts, ", ")
}
