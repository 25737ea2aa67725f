// Package cmd implements the coastcare command line.
package cmd

import (
	"io"
	"os"

	"github.com/coastcare/coastal-alerts/internal/conf"
	"github.com/coastcare/coastal-alerts/internal/logger"
	"github.com/spf13/cobra"
)

// Version is set at build time with -ldflags "-X .../internal/cmd.Version=...".
var Version = "dev"

// options are the persistent flags shared by every subcommand.
type options struct {
	configPath string
	logOut     io.Writer
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&options{logOut: os.Stderr})
}

func newRootCommand(opts *options) *cobra.Command {
	root := &cobra.Command{
		Use:   "coastcare",
		Short: "Coastal sensor anomaly detection and alerting.",
		Long: `CoastCare ingests coastal sensor readings, detects anomalies and
notifies subscribed users by email, in-app, SMS and push.

Configuration is read from --config, ./config.yaml or /etc/coastcare/config.yaml,
and may be overridden with COASTCARE_* environment variables.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to config.yaml")

	root.AddCommand(
		newServeCommand(opts),
		newMigrateCommand(opts),
		newEmailCommand(opts),
		newIngestCommand(opts),
	)
	return root
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	root := NewRootCommand()
	if err := root.Execute(); err != nil {
		root.PrintErrln("Error:", err)
		return 1
	}
	return 0
}

// load reads settings and builds the service logger.
func (o *options) load() (*conf.Settings, logger.Logger, error) {
	settings, err := conf.Load(o.configPath)
	if err != nil {
		return nil, nil, err
	}
	log := logger.NewSlogLogger(o.logOut, logger.ParseLevel(settings.Log.Level), settings.Location()).
		With(logger.String("service", settings.Main.Name))
	return settings, log, nil
}
