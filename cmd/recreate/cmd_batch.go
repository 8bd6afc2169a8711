package main

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"recreate/internal/store"
	"recreate/internal/telemetry"
)

func newBatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch [session.jsonl...]",
		Short: "Replay many sessions concurrently",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadEnvironment(cmd)
			if err != nil {
				return err
			}
			team, _ := cmd.Flags().GetString("team")
			dir, _ := cmd.Flags().GetString("dir")
			outDir, _ := cmd.Flags().GetString("out-dir")
			dbPath, _ := cmd.Flags().GetString("db")
			summaryPath, _ := cmd.Flags().GetString("out")
			workers, _ := cmd.Flags().GetInt("workers")
			if workers <= 0 {
				workers = env.workers
			}

			files := append([]string(nil), args...)
			if dir != "" {
				matches, err := filepath.Glob(filepath.Join(dir, "*.jsonl"))
				if err != nil {
					return err
				}
				files = append(files, matches...)
			}
			if len(files) == 0 {
				return fmt.Errorf("no session files given")
			}
			sort.Strings(files)

			var db *store.SQLiteStore
			if dbPath != "" {
				db, err = store.Open(dbPath, storeNodes(env))
				if err != nil {
					return err
				}
				defer db.Close()
			}

			var (
				mu        sync.Mutex
				summaries = make([]sessionSummary, 0, len(files))
			)
			g, ctx := errgroup.WithContext(cmd.Context())
			g.SetLimit(workers)
			for _, path := range files {
				g.Go(func() error {
					if err := ctx.Err(); err != nil {
						return err
					}
					s, err := replaySession(ctx, env, team, path, outDir, db)
					if err != nil {
						return fmt.Errorf("session %s: %w", path, err)
					}
					mu.Lock()
					summaries = append(summaries, s)
					mu.Unlock()
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}
			sort.Slice(summaries, func(i, j int) bool { return summaries[i].Session < summaries[j].Session })

			ticks, engagements := 0, 0
			for _, s := range summaries {
				ticks += s.Ticks
				engagements += s.Engagements
			}
			total := map[string]any{
				"runs":        len(summaries),
				"ticks":       ticks,
				"engagements": engagements,
				"sessions":    summaries,
			}

			if summaryPath != "" {
				if err := store.WriteJSON(summaryPath, total); err != nil {
					return err
				}
			}
			if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
				_, err := cmd.OutOrStdout().Write(append(store.MarshalPretty(total), '\n'))
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Batch %d done. ticks=%d engagements=%d\n", len(summaries), ticks, engagements)
			return nil
		},
	}
	cmd.Flags().String("team", "red", "Team whose default actions are replayed")
	cmd.Flags().String("dir", "", "Directory of *.jsonl sessions")
	cmd.Flags().String("out-dir", "", "Write one JSON replay per session here")
	cmd.Flags().String("db", "", "SQLite database to store every replay in")
	cmd.Flags().String("out", "", "Batch summary JSON file")
	cmd.Flags().Int("workers", 0, "Concurrent sessions (default $RECREATE_WORKERS or 4)")
	cmd.Flags().Bool("parallel", false, "Run the platoons of a tick concurrently")
	cmd.Flags().Uint64("seed", 0, "Shooting seed")
	return cmd
}

func replaySession(ctx context.Context, env *environment, team, path, outDir string, db *store.SQLiteStore) (sessionSummary, error) {
	id := sessionID(path)
	ticks, err := telemetry.LoadFile(path)
	if err != nil {
		return sessionSummary{}, err
	}
	am, err := env.newManager(team, env.log.With("session", id))
	if err != nil {
		return sessionSummary{}, err
	}
	res, err := am.Replay(ticks)
	if err != nil {
		return sessionSummary{}, err
	}
	if outDir != "" {
		if err := store.WriteJSON(filepath.Join(outDir, id+".json"), res); err != nil {
			return sessionSummary{}, err
		}
	}
	if db != nil {
		if err := db.SaveReplay(ctx, store.Session{ID: id, Team: team, Config: env.cfg}, res); err != nil {
			return sessionSummary{}, err
		}
	}
	return summarize(id, res), nil
}
