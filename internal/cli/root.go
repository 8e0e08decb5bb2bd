package cli

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pratik-mahalle/satwatch/internal/pkg/logger"
	"github.com/pratik-mahalle/satwatch/pkg/client"
)

const (
	configDirName = ".satwatch"
	defaultFormat = "table"
	envPrefix     = "SATWATCH"
	serverURLKey  = "server_url"
	outputKey     = "output"
	timeoutKey    = "timeout"
	healthKey     = "health_timeout"
	limitKey      = "anomaly_limit"
)

// options holds state shared by every command of one invocation
type options struct {
	cfgFile      string
	outputFormat string
	serverURL    string
	verbose      bool

	v      *viper.Viper
	stdout io.Writer
	stderr io.Writer
}

// NewRootCmd builds the satwatch command tree
func NewRootCmd() *cobra.Command {
	opts := &options{v: viper.New()}

	rootCmd := &cobra.Command{
		Use:   "satwatch",
		Short: "satwatch - satellite telemetry anomaly monitor",
		Long: `satwatch polls a satellite telemetry backend, reconciles its satellites,
anomalies and statistics, and shows filtered anomalies, alerts and KPIs
in the terminal.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			opts.stdout = cmd.OutOrStdout()
			opts.stderr = cmd.ErrOrStderr()
			return opts.initConfig()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.cfgFile, "config", "", "config file (default $HOME/.satwatch/config.yaml)")
	flags.StringVarP(&opts.outputFormat, "output", "o", "", "output format: table, json, yaml")
	flags.StringVar(&opts.serverURL, "server", "", "telemetry backend URL (overrides config)")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "log sync activity to stderr")

	_ = opts.v.BindPFlag(outputKey, flags.Lookup("output"))

	rootCmd.AddCommand(newConfigCmd(opts))
	rootCmd.AddCommand(newHealthCmd(opts))
	rootCmd.AddCommand(newStatusCmd(opts))
	rootCmd.AddCommand(newSatellitesCmd(opts))
	rootCmd.AddCommand(newAnomaliesCmd(opts))
	rootCmd.AddCommand(newAlertsCmd(opts))
	rootCmd.AddCommand(newWatchCmd(opts))

	return rootCmd
}

// Execute runs the CLI
func Execute() error {
	return NewRootCmd().Execute()
}

func (o *options) initConfig() error {
	if o.cfgFile != "" {
		o.v.SetConfigFile(o.cfgFile)
	} else {
		dir, err := configDir()
		if err != nil {
			return err
		}
		o.v.AddConfigPath(dir)
		o.v.SetConfigName("config")
		o.v.SetConfigType("yaml")
	}

	o.v.SetEnvPrefix(envPrefix)
	o.v.AutomaticEnv()
	// SATWATCH_API_BASE_URL is shared with the daemon
	_ = o.v.BindEnv(serverURLKey, envPrefix+"_SERVER_URL", envPrefix+"_API_BASE_URL")

	o.v.SetDefault(serverURLKey, client.DefaultBaseURL)
	o.v.SetDefault(outputKey, defaultFormat)
	o.v.SetDefault(timeoutKey, client.DefaultTimeout)
	o.v.SetDefault(healthKey, client.DefaultHealthTimeout)
	o.v.SetDefault(limitKey, 50)

	if err := o.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}
	return nil
}

func configDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, configDirName), nil
}

func (o *options) baseURL() string {
	if o.serverURL != "" {
		return o.serverURL
	}
	return o.v.GetString(serverURLKey)
}

func (o *options) newClient() *client.Client {
	return client.NewClient(client.Config{
		BaseURL:       o.baseURL(),
		Timeout:       o.duration(timeoutKey, client.DefaultTimeout),
		HealthTimeout: o.duration(healthKey, client.DefaultHealthTimeout),
	})
}

func (o *options) duration(key string, def time.Duration) time.Duration {
	if d := o.v.GetDuration(key); d > 0 {
		return d
	}
	return def
}

func (o *options) newLogger() *logger.Logger {
	level := "warn"
	if o.verbose {
		level = "debug"
	}
	return logger.New(logger.Config{Level: level, Format: "console", Output: o.stderr})
}

func (o *options) format() string {
	if o.outputFormat != "" {
		return o.outputFormat
	}
	return o.v.GetString(outputKey)
}
