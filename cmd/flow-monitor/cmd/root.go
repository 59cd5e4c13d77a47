package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"

	"github.com/oshokin/flow-monitor/internal/config"
	"github.com/oshokin/flow-monitor/internal/logger"
	"github.com/oshokin/flow-monitor/internal/version"
)

// errUnknownLogLevel is returned for an unsupported --log-level value.
var errUnknownLogLevel = errors.New("unknown log level")

var (
	// configPath stores the path to the configuration YAML file.
	configPath string
	// logLevel is the minimum level written to the log.
	logLevel string
	// logFile redirects the log from stderr to a file.
	logFile string

	// rootCmd represents the base command when called without any subcommands.
	rootCmd = &cobra.Command{
		Use:   "flow-monitor",
		Short: "Monitor an industrial process diagram and raise spec-violation alarms.",
		Long: `Polls equipment status and sensor measurements for the selected process diagram,
derives node and connection state, and raises an alarm once per spec-violation transition
of every watched measurement.

Use "run" to start the monitor and the other commands to control a running instance.`,
		SilenceUsage:      true,
		PersistentPreRunE: setupLogger,
	}
)

// Execute runs the flow-monitor CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	flags.StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	flags.StringVar(&logFile, "log-file", "", "write the log to this file instead of stderr")
}

func setupLogger(*cobra.Command, []string) error {
	level, ok := logger.ParseLogLevel(logLevel)
	if !ok {
		return fmt.Errorf("%w: %q", errUnknownLogLevel, logLevel)
	}

	logger.SetLevel(level)

	if logFile == "" {
		return nil
	}

	file, err := os.OpenFile(filepath.Clean(logFile), os.O_CREATE|os.O_WRONLY|os.O_APPEND, config.DefaultFilePermissions)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}

	logger.SetLogger(logger.New(nil, zapcore.Lock(file)))

	return nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
}

// serverAddressArg returns the optional trailing server address argument.
func serverAddressArg(args []string, index int) string {
	if len(args) > index {
		return args[index]
	}

	return ""
}
