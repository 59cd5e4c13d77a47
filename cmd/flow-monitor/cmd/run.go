package cmd

import (
	"github.com/spf13/cobra"

	"github.com/oshokin/flow-monitor/internal/service/server"
)

var (
	// runOptions collects the flags of the run command.
	runOptions = new(server.Options)

	// runCmd starts the monitor.
	runCmd = &cobra.Command{
		Use:   "run [listen-address]",
		Short: "Run the monitor with its gRPC and HTTP APIs.",
		Long: `Loads settings and the flow catalog, selects the initial flow and starts the poll scheduler.

The gRPC API listens on the port of server_addr unless a listen address is given (e.g., :9090).
The HTTP/WebSocket API and /metrics listen on http_addr when it is set.
With --tui the terminal dashboard runs in the foreground; use --log-file to keep logs off the screen.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signalContext()
			defer stop()

			runOptions.ConfigPath = configPath
			runOptions.ListenAddress = serverAddressArg(args, 0)

			return server.Run(ctx, runOptions)
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	flags := runCmd.Flags()
	flags.StringVar(&runOptions.HTTPAddress, "http", "", "HTTP/WebSocket listen address, overrides http_addr")
	flags.StringVar(&runOptions.ViewFile, "view-file", "", "file receiving the derived view, overrides view_file")
	flags.StringVarP(&runOptions.Flow, "flow", "f", "", "flow selected on start, overrides initial_flow")
	flags.BoolVar(&runOptions.Dashboard, "tui", false, "run the terminal dashboard")

	rootCmd.AddCommand(runCmd)
}
