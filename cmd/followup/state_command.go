package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"followup/internal/granola"
	"followup/internal/runlock"
	"followup/internal/state"
)

func newStateCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "state",
		Short: "Show processed and deferred meetings",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			st := state.NewStore(cfg.StatePath(), state.Options{}).Load()

			// Titles are best effort; state only records identifiers.
			titles := map[string]string{}
			if snapshot, err := granola.NewReader(cfg.Paths.GranolaDir, cfg.Paths.CacheFile, nil).Read(); err == nil {
				for id, doc := range snapshot.Documents {
					titles[id] = doc.DisplayTitle()
				}
			}

			out := cmd.OutOrStdout()
			lastRun := "never"
			if st.LastRun != nil {
				lastRun = st.LastRun.Local().Format(time.DateTime)
			}
			fmt.Fprintf(out, "State file: %s\n", cfg.StatePath())
			fmt.Fprintf(out, "Last run:   %s\n", lastRun)
			fmt.Fprintf(out, "Run lock:   %s\n", lockStatus(cfg.LockPath()))
			fmt.Fprintf(out, "Processed:  %d\n", len(st.ProcessedIDs))
			fmt.Fprintf(out, "Deferred:   %d\n\n", len(st.DeferredIDs))

			if len(st.DeferredIDs) > 0 {
				fmt.Fprintln(out, "Deferred (oldest first)")
				fmt.Fprintln(out, renderTable([]string{"Meeting ID", "Title"}, idRows(st.DeferredIDs, titles), nil))
			}

			processed := st.ProcessedIDs
			if limit > 0 && len(processed) > limit {
				processed = processed[len(processed)-limit:]
			}
			if len(processed) > 0 {
				recent := make([]string, 0, len(processed))
				for i := len(processed) - 1; i >= 0; i-- {
					recent = append(recent, processed[i])
				}
				fmt.Fprintln(out, "Processed (most recent first)")
				fmt.Fprintln(out, renderTable([]string{"Meeting ID", "Title"}, idRows(recent, titles), nil))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of processed meetings to list (0 for all)")
	return cmd
}

func idRows(ids []string, titles map[string]string) [][]string {
	rows := make([][]string, 0, len(ids))
	for _, id := range ids {
		title, ok := titles[id]
		if !ok {
			title = "(not in cache)"
		}
		rows = append(rows, []string{id, title})
	}
	return rows
}

func lockStatus(path string) string {
	locked, err := runlock.Locked(path)
	if err != nil {
		return "unknown (" + err.Error() + ")"
	}
	if !locked {
		return "free"
	}
	if pid, ok := runlock.New(path).Holder(); ok {
		return fmt.Sprintf("held by pid %d", pid)
	}
	return "held"
}
