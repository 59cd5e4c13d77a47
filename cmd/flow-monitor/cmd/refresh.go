package cmd

import (
	"github.com/spf13/cobra"

	"github.com/oshokin/flow-monitor/internal/service/client"
)

var (
	// force bypasses the auto-refresh rate limit.
	force bool

	// refreshCmd asks a running monitor for a poll cycle.
	refreshCmd = &cobra.Command{
		Use:   "refresh [server-address]",
		Short: "Ask a running monitor to poll now.",
		Long: `Requests one poll cycle from a running monitor and prints its outcome.

Without --force the request is subject to the same rate limit as automatic refreshes.
A forced refresh also clears the transient state of every node.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			options := &client.Options{
				ConfigPath:    configPath,
				ServerAddress: serverAddressArg(args, 0),
			}

			return client.Refresh(ctx, options, force)
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	refreshCmd.Flags().BoolVar(&force, "force", false, "bypass the rate limit and reset transient node state")

	rootCmd.AddCommand(refreshCmd)
}
