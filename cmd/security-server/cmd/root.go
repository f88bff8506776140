package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/catpoint/internal/config"
	"github.com/oshokin/catpoint/internal/logger"
	"github.com/oshokin/catpoint/internal/service/server"
	"github.com/oshokin/catpoint/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// stateFile path where security state is persisted.
	stateFile string
	// logLevel overrides the configured log level.
	logLevel string

	// rootCmd represents the base command for running the security server.
	rootCmd = &cobra.Command{
		Use:   "security-server [listen-address]",
		Short: "Run the catpoint security gRPC server.",
		Long: `Starts the catpoint security server.

The server derives the alarm status from the arming mode, door/window/motion
sensors and camera images, and serves it over gRPC. Only the port from the
ServerAddress setting is used for listening (e.g., :7000); a listen address
argument overrides it (e.g., :9090, 0.0.0.0:7000).

Depending on the configuration the server also persists state to a file or
Redis, exchanges sensor and status messages over MQTT, exposes Prometheus
metrics, records transitions in Postgres and archives cat images in S3.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(_ *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			// Use listen address argument if provided, otherwise rely on config.
			var listenAddress string
			if len(args) > 0 {
				listenAddress = args[0]
			}

			options := &server.Options{
				ConfigPath:    configPath,
				ListenAddress: listenAddress,
				StateFile:     stateFile,
				LogLevel:      logLevel,
			}

			return server.Run(ctx, options)
		},
	}
)

// Execute runs the security-server command and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		logger.Errorf(context.Background(), "Security server failed: %v", err)
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.Flags().
		StringVarP(&stateFile, "state-file", "s", "", "path to persist security state (overrides state_file)")
	rootCmd.Flags().
		StringVarP(&logLevel, "log-level", "l", "", "minimum log level: debug, info, warn or error (overrides log_level)")
}
