package workflow

import (
	"context"

	"followup/internal/history"
	"followup/internal/logging"
	"followup/internal/services"
)

// The ledger is diagnostic; its failures are logged and never change the
// outcome of a run.

func (r *Runner) startLedger(ctx context.Context, summary Summary) {
	if r.deps.History == nil {
		return
	}
	if err := r.deps.History.StartRun(ctx, summary.RunID, summary.StartedAt); err != nil {
		r.ledgerWarning(ctx, "start run", err)
	}
}

func (r *Runner) recordOutcome(ctx context.Context, result MeetingResult) {
	if r.deps.History == nil {
		return
	}
	runID, _ := services.RunIDFromContext(ctx)
	err := r.deps.History.RecordOutcome(ctx, history.MeetingOutcome{
		RunID:      runID,
		MeetingID:  result.ID,
		Title:      result.Title,
		Outcome:    string(result.Outcome),
		Detail:     result.Detail,
		RecordedAt: r.deps.Clock.Now(),
	})
	if err != nil {
		r.ledgerWarning(ctx, "record outcome", err)
	}
}

func (r *Runner) finishLedger(ctx context.Context, summary Summary) {
	if r.deps.History == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	counts := history.Counts{
		Eligible: summary.Counts.Eligible,
		Success:  summary.Counts.Success,
		Deferred: summary.Counts.Deferred,
		Skipped:  summary.Counts.Skipped,
		Failed:   summary.Counts.Failed,
	}
	if err := r.deps.History.FinishRun(ctx, summary.RunID, summary.FinishedAt, string(summary.Outcome), counts); err != nil {
		r.ledgerWarning(ctx, "finish run", err)
	}
	if r.opts.HistoryRetention > 0 {
		cutoff := summary.FinishedAt.Add(-r.opts.HistoryRetention)
		if removed, err := r.deps.History.Prune(ctx, cutoff); err != nil {
			r.ledgerWarning(ctx, "prune", err)
		} else if removed > 0 {
			logging.WithContext(ctx, r.logger).Debug("history pruned", logging.Int64("runs", removed))
		}
	}
}

func (r *Runner) ledgerWarning(ctx context.Context, op string, err error) {
	logging.WarnWithContext(logging.WithContext(ctx, r.logger), "history ledger "+op+" failed", "history_write_failed",
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "delete history.db if it is corrupt"),
		logging.String(logging.FieldImpact, "run not recorded in history"))
}
