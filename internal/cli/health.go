package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newHealthCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Probe the telemetry backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := opts.newClient()
			err := c.Health(context.Background())

			status := "connected"
			if err != nil {
				status = "disconnected"
			}

			if format := opts.format(); format != defaultFormat {
				result := map[string]interface{}{
					"server": c.BaseURL(),
					"status": status,
				}
				if err != nil {
					result["error"] = err.Error()
				}
				if perr := printOutput(opts.stdout, format, result); perr != nil {
					return perr
				}
			} else {
				fmt.Fprintf(opts.stdout, "Backend: %s\n", c.BaseURL())
				fmt.Fprintf(opts.stdout, "Status:  %s\n", formatStatus(status))
			}

			if err != nil {
				return fmt.Errorf("health check failed: %w", err)
			}
			return nil
		},
	}
}
