package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"followup/internal/workflow"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var noSettle bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Process recent and deferred meetings once",
		Long: "Process recent and deferred meetings once.\n\n" +
			"Intended to be invoked by a trigger whenever the notes cache changes. " +
			"A second invocation while one is running exits immediately.",
		RunE: func(cmd *cobra.Command, args []string) error {
			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			cfg, logger, err := ctx.logger()
			if err != nil {
				return err
			}
			runner, closeFn, err := workflow.NewRunnerFromConfig(signalCtx, cfg, logger)
			if err != nil {
				return err
			}
			defer closeFn()
			if noSettle {
				runner = runner.WithoutSettleDelay()
			}

			summary, err := runner.Run(signalCtx)
			printSummary(cmd.OutOrStdout(), summary, shouldColorize(cmd.OutOrStdout()))
			return err
		},
	}

	cmd.Flags().BoolVar(&noSettle, "no-settle", false, "Skip the initial wait for the cache file to settle")
	return cmd
}

func printSummary(out io.Writer, summary workflow.Summary, colorize bool) {
	switch summary.Outcome {
	case workflow.RunLockHeld:
		fmt.Fprintln(out, renderStatusLine("Run", statusInfo, "another run is in progress; nothing to do", colorize))
		return
	case workflow.RunAbortedLock:
		fmt.Fprintln(out, renderStatusLine("Run", statusError, "run lock unavailable; see log for details", colorize))
		return
	case workflow.RunAbortedCache:
		fmt.Fprintln(out, renderStatusLine("Run", statusError, "notes cache unreadable; see log for details", colorize))
		return
	case workflow.RunAbortedAuth:
		fmt.Fprintln(out, renderStatusLine("Run", statusError, "Granola token expired; open Granola to re-authenticate", colorize))
		return
	case workflow.RunCancelled:
		fmt.Fprintln(out, renderStatusLine("Run", statusWarn, "cancelled", colorize))
	}

	if len(summary.Meetings) > 0 {
		rows := make([][]string, 0, len(summary.Meetings))
		for _, m := range summary.Meetings {
			rows = append(rows, []string{m.Title, string(m.Outcome), m.Detail})
		}
		fmt.Fprintln(out, renderTable([]string{"Meeting", "Outcome", "Detail"}, rows, nil))
	}

	c := summary.Counts
	kind := statusOK
	switch {
	case c.Failed > 0:
		kind = statusError
	case c.Deferred > 0:
		kind = statusWarn
	case c.Eligible == 0:
		kind = statusInfo
	}
	message := fmt.Sprintf("%d eligible, %d drafted, %d skipped, %d deferred, %d failed",
		c.Eligible, c.Success, c.Skipped, c.Deferred, c.Failed)
	fmt.Fprintln(out, renderStatusLine("Run "+shortID(summary.RunID), kind, message, colorize))
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// runOnce adapts a runner to the watch loop. Environmental aborts are already
// logged by the runner.
func runOnce(runner *workflow.Runner) func(context.Context) error {
	return func(ctx context.Context) error {
		_, err := runner.Run(ctx)
		return err
	}
}
