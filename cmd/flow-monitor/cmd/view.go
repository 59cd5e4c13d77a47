package cmd

import (
	"github.com/spf13/cobra"

	"github.com/oshokin/flow-monitor/internal/service/client"
)

// viewCmd prints the current view of a running monitor.
//
//nolint:gochecknoglobals // Required by Cobra CLI framework architecture.
var viewCmd = &cobra.Command{
	Use:   "view [server-address]",
	Short: "Print the current diagram view as JSON.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()

		options := &client.Options{
			ConfigPath:    configPath,
			ServerAddress: serverAddressArg(args, 0),
		}

		return client.Show(ctx, options, cmd.OutOrStdout())
	},
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.AddCommand(viewCmd)
}
