package cmd

import (
	"github.com/spf13/cobra"

	"github.com/oshokin/flow-monitor/internal/service/checker"
)

var (
	// jsonOutput prints every alarm as a JSON line on stdout.
	jsonOutput bool

	// alarmsCmd follows the alarm stream.
	alarmsCmd = &cobra.Command{
		Use:   "alarms [server-address]",
		Short: "Follow the alarms of a running monitor.",
		Long: `Subscribes to the alarm stream of a running monitor and logs every alarm.
The stream is reopened when the monitor restarts.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			options := &checker.Options{
				ConfigPath:    configPath,
				ServerAddress: serverAddressArg(args, 0),
			}

			if jsonOutput {
				options.Output = cmd.OutOrStdout()
			}

			return checker.Run(ctx, options)
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	alarmsCmd.Flags().BoolVar(&jsonOutput, "json", false, "print every alarm as a JSON line on stdout")

	rootCmd.AddCommand(alarmsCmd)
}
