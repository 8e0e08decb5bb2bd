package cli

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

func newConfigCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage CLI configuration",
	}

	cmd.AddCommand(newConfigInitCmd(opts))
	cmd.AddCommand(newConfigSetCmd(opts))
	cmd.AddCommand(newConfigGetCmd(opts))
	cmd.AddCommand(newConfigListCmd(opts))

	return cmd
}

func newConfigInitCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Interactive first-time setup",
		RunE: func(cmd *cobra.Command, args []string) error {
			reader := bufio.NewReader(cmd.InOrStdin())

			current := opts.baseURL()
			fmt.Fprintf(opts.stdout, "Telemetry backend URL [%s]: ", current)
			url, _ := reader.ReadString('\n')
			url = strings.TrimSpace(url)
			if url == "" {
				url = current
			}

			fmt.Fprintf(opts.stdout, "Default output format (table/json/yaml) [%s]: ", defaultFormat)
			format, _ := reader.ReadString('\n')
			format = strings.TrimSpace(format)
			if format == "" {
				format = defaultFormat
			}
			if !validFormat(format) {
				return fmt.Errorf("unsupported output format %q", format)
			}

			opts.v.Set(serverURLKey, url)
			opts.v.Set(outputKey, format)

			path, err := opts.writeConfig()
			if err != nil {
				return err
			}
			fmt.Fprintf(opts.stdout, "Configuration saved to %s\n", path)
			return nil
		},
	}
}

func newConfigSetCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if args[0] == outputKey && !validFormat(args[1]) {
				return fmt.Errorf("unsupported output format %q", args[1])
			}
			opts.v.Set(args[0], args[1])
			if _, err := opts.writeConfig(); err != nil {
				return err
			}
			fmt.Fprintf(opts.stdout, "Set %s = %s\n", args[0], args[1])
			return nil
		},
	}
}

func newConfigGetCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			val := opts.v.Get(args[0])
			if val == nil {
				fmt.Fprintf(opts.stdout, "%s: (not set)\n", args[0])
			} else {
				fmt.Fprintf(opts.stdout, "%s: %v\n", args[0], val)
			}
			return nil
		},
	}
}

func newConfigListCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show all configuration values",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings := opts.v.AllSettings()
			keys := make([]string, 0, len(settings))
			for key := range settings {
				keys = append(keys, key)
			}
			sort.Strings(keys)

			for _, key := range keys {
				fmt.Fprintf(opts.stdout, "%s: %v\n", key, settings[key])
			}
			return nil
		},
	}
}

func (o *options) writeConfig() (string, error) {
	path := o.cfgFile
	if path == "" {
		dir, err := configDir()
		if err != nil {
			return "", err
		}
		path = filepath.Join(dir, "config.yaml")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := o.v.WriteConfigAs(path); err != nil {
		return "", fmt.Errorf("failed to write config: %w", err)
	}
	return path, nil
}

func validFormat(format string) bool {
	switch format {
	case "table", "json", "yaml":
		return true
	}
	return false
}
