package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pratik-mahalle/satwatch/internal/pkg/logger"
	"github.com/pratik-mahalle/satwatch/internal/services"
	"github.com/pratik-mahalle/satwatch/internal/state"
	"github.com/pratik-mahalle/satwatch/internal/view"
	"github.com/pratik-mahalle/satwatch/pkg/client"
)

// session is an in-process copy of the sync pipeline used by one command
type session struct {
	client  *client.Client
	store   *state.Store
	syncer  *services.Synchronizer
	monitor *services.Monitor
	logger  *logger.Logger
}

func (o *options) newSession() *session {
	log := o.newLogger()
	c := o.newClient()
	store := state.New()

	return &session{
		client:  c,
		store:   store,
		syncer:  services.NewSynchronizer(c, store, log, o.v.GetInt(limitKey)),
		monitor: services.NewMonitor(c, store, log),
		logger:  log,
	}
}

// load probes the backend and refreshes the given resources (all when none).
// A failed probe is an error; failed refreshes are reported as warnings so
// whatever did load can still be shown.
func (s *session) load(ctx context.Context, o *options, resources ...state.Resource) (state.Snapshot, error) {
	if !s.monitor.Check(ctx) {
		return s.store.Snapshot(), fmt.Errorf("telemetry backend unreachable at %s", s.client.BaseURL())
	}

	if len(resources) == 0 {
		resources = state.Resources
	}
	for _, r := range resources {
		if err := s.syncer.Refresh(ctx, r); err != nil {
			fmt.Fprintf(o.stderr, "warning: %v\n", err)
		}
	}
	return s.store.Snapshot(), nil
}

// addFilterFlags registers the shared filter flags
func addFilterFlags(cmd *cobra.Command, f *view.FilterState) {
	cmd.Flags().StringVar(&f.SatelliteID, "satellite", view.AllSatellites, "satellite id, or 'all'")
	cmd.Flags().StringVar(&f.From, "from", "", "inclusive start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.To, "to", "", "inclusive end date (YYYY-MM-DD)")
}

// checkFilter normalises and validates a filter built from flags
func checkFilter(f view.FilterState) (view.FilterState, error) {
	f = f.Normalize()
	if errs := f.Validate(); len(errs) > 0 {
		return f, fmt.Errorf("invalid filter: %s", errs[0].Message)
	}
	return f, nil
}
