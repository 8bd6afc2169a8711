package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"recreate/internal/store"
	"recreate/internal/telemetry"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <session.jsonl>",
		Short: "Replay one session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadEnvironment(cmd)
			if err != nil {
				return err
			}
			team, _ := cmd.Flags().GetString("team")
			out, _ := cmd.Flags().GetString("out")
			dbPath, _ := cmd.Flags().GetString("db")
			id, _ := cmd.Flags().GetString("session-id")
			if id == "" {
				id = sessionID(args[0])
			}
			if out == "" && dbPath == "" {
				out = "out.json"
			}

			ticks, err := telemetry.LoadFile(args[0])
			if err != nil {
				return err
			}
			log := env.log.With("session", id)
			am, err := env.newManager(team, log)
			if err != nil {
				return err
			}
			res, err := am.Replay(ticks)
			if err != nil {
				return err
			}

			if out != "" {
				if err := store.WriteJSON(out, res); err != nil {
					return err
				}
			}
			if dbPath != "" {
				db, err := store.Open(dbPath, storeNodes(env))
				if err != nil {
					return err
				}
				defer db.Close()
				sess := store.Session{ID: id, Team: team, Config: env.cfg}
				if err := db.SaveReplay(cmd.Context(), sess, res); err != nil {
					return err
				}
			}

			summary := summarize(id, res)
			if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
				_, err := cmd.OutOrStdout().Write(append(store.MarshalPretty(summary), '\n'))
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Replay %s finished. ticks=%d events=%d engagements=%d -> %s\n",
				id, summary.Ticks, summary.Events, summary.Engagements, destination(out, dbPath))
			return nil
		},
	}
	cmd.Flags().String("team", "red", "Team whose default actions are replayed")
	cmd.Flags().String("out", "", "JSON output file (default out.json unless --db is set)")
	cmd.Flags().String("db", "", "SQLite database to store the replay in")
	cmd.Flags().String("session-id", "", "Session id (default: telemetry file name)")
	cmd.Flags().Bool("parallel", false, "Run the platoons of a tick concurrently")
	cmd.Flags().Uint64("seed", 0, "Shooting seed")
	return cmd
}

func destination(out, db string) string {
	switch {
	case out != "" && db != "":
		return out + ", " + db
	case db != "":
		return db
	}
	return out
}
