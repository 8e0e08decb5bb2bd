package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/pratik-mahalle/satwatch/internal/view"
	"github.com/pratik-mahalle/satwatch/internal/worker"
)

const (
	clearScreen    = "\033[H\033[2J"
	renderDebounce = 200 * time.Millisecond
	defaultWidth   = 100
)

func newWatchCmd(opts *options) *cobra.Command {
	var (
		filter    view.FilterState
		intervals worker.Intervals
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Keep polling the backend and redraw the dashboard on every change",
		Long: `watch runs the full sync pipeline in-process: it probes the backend, refreshes
satellites, anomalies and statistics on their own schedules, and redraws the
dashboard whenever something changes. Refreshes are skipped while the backend
is unreachable; the last known data stays on screen.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := checkFilter(filter)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runWatch(ctx, opts, f, intervals)
		},
	}

	def := worker.DefaultIntervals()
	addFilterFlags(cmd, &filter)
	cmd.Flags().DurationVar(&intervals.Health, "health-interval", def.Health, "connectivity probe interval")
	cmd.Flags().DurationVar(&intervals.Satellites, "satellites-interval", def.Satellites, "satellite refresh interval")
	cmd.Flags().DurationVar(&intervals.Anomalies, "anomalies-interval", def.Anomalies, "anomaly refresh interval")
	cmd.Flags().DurationVar(&intervals.Stats, "stats-interval", def.Stats, "statistics refresh interval")
	return cmd
}

func runWatch(ctx context.Context, opts *options, f view.FilterState, intervals worker.Intervals) error {
	s := opts.newSession()
	changes, cancel := s.store.Subscribe()
	defer cancel()

	poller := worker.NewPoller(s.syncer, s.monitor, intervals, s.logger)
	if err := poller.Start(ctx); err != nil {
		return err
	}
	defer poller.Stop()

	tty, width := terminal(opts.stdout)
	render := func() error {
		d := view.Derive(s.store.Snapshot(), f, time.Now())
		if format := opts.format(); format != defaultFormat {
			return printFrame(opts.stdout, format, d)
		}
		if tty {
			fmt.Fprint(opts.stdout, clearScreen)
		}
		renderWatch(opts, d, width)
		return nil
	}

	if err := render(); err != nil {
		return err
	}

	debounce := time.NewTimer(renderDebounce)
	debounce.Stop()
	pending := false

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-changes:
			if !pending {
				pending = true
				debounce.Reset(renderDebounce)
			}
		case <-debounce.C:
			pending = false
			if err := render(); err != nil {
				return err
			}
		}
	}
}

// terminal reports whether w is an interactive terminal and its width
func terminal(w io.Writer) (bool, int) {
	file, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(file.Fd())) {
		return false, defaultWidth
	}
	width, _, err := term.GetSize(int(file.Fd()))
	if err != nil || width <= 0 {
		return true, defaultWidth
	}
	return true, width
}

// printFrame writes one self-contained document per redraw
func printFrame(w io.Writer, format string, d view.Dashboard) error {
	if format == "json" {
		return json.NewEncoder(w).Encode(d)
	}
	if format == "yaml" {
		fmt.Fprintln(w, "---")
	}
	return printOutput(w, format, d)
}

func renderWatch(opts *options, d view.Dashboard, width int) {
	w := opts.stdout
	renderSummary(opts, d)

	issueWidth := width - 50
	if issueWidth < 20 {
		issueWidth = 20
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Alerts")
	if len(d.Alerts) == 0 {
		fmt.Fprintln(w, "  none")
	} else {
		t := NewTable(w, "TIME", "SATELLITE", "SEVERITY", "SCORE", "ISSUE")
		for _, a := range d.Alerts {
			t.AddRow(orDash(a.Timestamp), a.SatelliteID, formatSeverity(a.Severity), formatScore(a.Score), truncate(a.Issue, issueWidth))
		}
		t.Render()
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Recent anomalies")
	t := NewTable(w, "TIME", "SATELLITE", "SEVERITY", "SCORE", "ISSUES")
	for _, row := range d.History {
		t.AddRow(orDash(row.Time), row.SatelliteID, formatSeverity(string(row.Severity)), formatScore(row.Score),
			truncate(orDash(strings.Join(row.Issues, ", ")), issueWidth))
	}
	t.Render()

	fmt.Fprintf(w, "\nUpdated %s. Ctrl-C to exit.\n", d.GeneratedAt.UTC().Format("15:04:05"))
}
