package cmd

import (
	"github.com/spf13/cobra"

	"github.com/oshokin/flow-monitor/internal/service/client"
)

// selectCmd switches the diagram of a running monitor.
//
//nolint:gochecknoglobals // Required by Cobra CLI framework architecture.
var selectCmd = &cobra.Command{
	Use:   "select <flow-id> [server-address]",
	Short: "Switch a running monitor to another flow.",
	Long: `Selects the flow to monitor. The cycle in flight for the previous flow is discarded
and a forced refresh of the new flow follows immediately.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(_ *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()

		options := &client.Options{
			ConfigPath:    configPath,
			ServerAddress: serverAddressArg(args, 1),
		}

		return client.Select(ctx, options, args[0])
	},
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.AddCommand(selectCmd)
}
