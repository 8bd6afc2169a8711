package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

var version = "0.1.0-dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "recreate",
		Short: "Reconstruct red-team complexity states from session telemetry",
		Long: `recreate replays recorded blue-team telemetry through the red-team
platoon primitives (formation hold, patrolling, engagement) and writes the
reconstructed per-tick complexity states.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().String("config", "", "Config directory (default $RECREATE_CONFIG_DIR or assets)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: info, debug, trace")
	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON")

	rootCmd.AddCommand(
		newVersionCmd(),
		newRunCmd(),
		newBatchCmd(),
		newValidateCmd(),
	)
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]string{"version": version})
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "recreate version %s\n", version)
			}
		},
	}
}
