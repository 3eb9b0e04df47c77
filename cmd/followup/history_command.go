package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"followup/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var (
		limit     int
		meetingID string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent runs and meeting outcomes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !cfg.History.Enabled {
				fmt.Fprintln(out, "History is disabled (set history.enabled = true)")
				return nil
			}
			store, err := history.Open(cfg.HistoryPath())
			if err != nil {
				return err
			}
			defer store.Close()

			if meetingID == "" {
				runs, err := store.RecentRuns(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if len(runs) == 0 {
					fmt.Fprintln(out, "No runs recorded")
					return nil
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Started", "Outcome", "Eligible", "Drafted", "Skipped", "Deferred", "Failed", "Duration"},
					runRows(runs),
					[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight, alignRight},
				))
			}

			outcomes, err := store.MeetingOutcomes(cmd.Context(), meetingID, limit)
			if err != nil {
				return err
			}
			if len(outcomes) == 0 {
				if meetingID != "" {
					fmt.Fprintf(out, "No outcomes recorded for %s\n", meetingID)
				}
				return nil
			}
			rows := make([][]string, 0, len(outcomes))
			for _, o := range outcomes {
				rows = append(rows, []string{formatTimestamp(o.RecordedAt), o.Title, o.Outcome, o.Detail})
			}
			fmt.Fprintln(out, renderTable([]string{"Recorded", "Meeting", "Outcome", "Detail"}, rows, nil))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of rows to show")
	cmd.Flags().StringVar(&meetingID, "meeting", "", "Show outcomes for a single meeting ID")
	return cmd
}

func runRows(runs []history.Run) [][]string {
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		duration := "-"
		if !run.FinishedAt.IsZero() {
			duration = run.FinishedAt.Sub(run.StartedAt).Round(time.Second).String()
		}
		outcome := run.Outcome
		if outcome == "" {
			outcome = "running"
		}
		rows = append(rows, []string{
			formatTimestamp(run.StartedAt),
			outcome,
			strconv.Itoa(run.Counts.Eligible),
			strconv.Itoa(run.Counts.Success),
			strconv.Itoa(run.Counts.Skipped),
			strconv.Itoa(run.Counts.Deferred),
			strconv.Itoa(run.Counts.Failed),
			duration,
		})
	}
	return rows
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(time.DateTime)
}
