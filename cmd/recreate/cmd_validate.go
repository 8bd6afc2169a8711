package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"recreate/internal/telemetry"
)

func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [session.jsonl...]",
		Short: "Check config, map artifacts and optional session files",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadEnvironment(cmd)
			if err != nil {
				return err
			}
			team, _ := cmd.Flags().GetString("team")
			if _, err := env.newManager(team, env.log); err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "config ok: %d uav + %d ugv platoons, grid %dx%d, %d nodes\n",
				env.cfg.Simulation.NUAVPlatoons, env.cfg.Simulation.NUGVPlatoons,
				env.grid.Cols(), env.grid.Rows(), env.nodeCount())

			for _, path := range args {
				ticks, err := telemetry.LoadFile(path)
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "%s: %d ticks\n", path, len(ticks))
			}
			return nil
		},
	}
	cmd.Flags().String("team", "red", "Team whose default actions are checked")
	return cmd
}
