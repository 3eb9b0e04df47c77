package main

import (
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"followup/internal/watch"
	"followup/internal/workflow"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var (
		debounce   time.Duration
		runOnStart bool
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Run the pipeline whenever the notes cache changes",
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

			opts := watch.Options{
				Dir:        cfg.Paths.GranolaDir,
				Debounce:   debounce,
				RunOnStart: runOnStart,
				Logger:     logger,
			}
			if cfg.Paths.CacheFile != "" {
				opts.Dir = filepath.Dir(cfg.Paths.CacheFile)
				base := filepath.Base(cfg.Paths.CacheFile)
				opts.Match = func(name string) bool { return name == base }
			}
			// The debounce already lets the cache settle.
			return watch.New(opts, runOnce(runner.WithoutSettleDelay())).Run(signalCtx)
		},
	}

	cmd.Flags().DurationVar(&debounce, "debounce", 10*time.Second, "Quiet period after the last cache write before running")
	cmd.Flags().BoolVar(&runOnStart, "run-on-start", true, "Run once immediately when the watcher starts")
	return cmd
}
