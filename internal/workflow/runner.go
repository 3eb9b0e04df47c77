package workflow

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"followup/internal/granola"
	"followup/internal/logging"
	"followup/internal/meeting"
	"followup/internal/notifications"
	"followup/internal/readiness"
	"followup/internal/services"
)

// Deps bundles the collaborators a Runner drives. Sender, Correspondence,
// Notifier and History are optional.
type Deps struct {
	Lock           Locker
	State          StateStore
	Cache          SnapshotReader
	Auth           TokenProvider
	Poller         ContentPoller
	Drafts         DraftGenerator
	Delivery       DraftDelivery
	Sender         SenderNamer
	Correspondence CorrespondenceSource
	Notifier       notifications.Service
	History        HistoryRecorder
	Clock          readiness.Clock
	Logger         *slog.Logger
}

// Options carries the run policy.
type Options struct {
	OwnerEmail       string
	OwnerName        string
	InternalDomain   string
	SettleDelay      time.Duration
	MaxAge           time.Duration
	HistoryRetention time.Duration
	NewRunID         func() string
}

// Runner executes pipeline invocations.
type Runner struct {
	deps       Deps
	opts       Options
	classifier meeting.Classifier
	logger     *slog.Logger
}

// NewRunner validates the required collaborators.
func NewRunner(deps Deps, opts Options) (*Runner, error) {
	switch {
	case deps.Lock == nil:
		return nil, errors.New("workflow: run lock is required")
	case deps.State == nil:
		return nil, errors.New("workflow: state store is required")
	case deps.Cache == nil:
		return nil, errors.New("workflow: cache reader is required")
	case deps.Auth == nil:
		return nil, errors.New("workflow: token provider is required")
	case deps.Poller == nil:
		return nil, errors.New("workflow: content poller is required")
	case deps.Drafts == nil:
		return nil, errors.New("workflow: draft generator is required")
	case deps.Delivery == nil:
		return nil, errors.New("workflow: draft delivery is required")
	}
	if deps.Clock == nil {
		deps.Clock = readiness.SystemClock{}
	}
	if opts.MaxAge <= 0 {
		opts.MaxAge = 3 * time.Hour
	}
	if opts.SettleDelay < 0 {
		opts.SettleDelay = 0
	}
	if opts.NewRunID == nil {
		opts.NewRunID = func() string { return uuid.NewString() }
	}
	return &Runner{
		deps:       deps,
		opts:       opts,
		classifier: meeting.NewClassifier(opts.InternalDomain, opts.OwnerEmail),
		logger:     logging.NewComponentLogger(deps.Logger, "workflow"),
	}, nil
}

// Run performs one invocation. Environmental aborts are reported through
// Summary.Outcome with a nil error.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	summary := Summary{RunID: r.opts.NewRunID(), StartedAt: r.deps.Clock.Now()}
	ctx = services.WithRunID(ctx, summary.RunID)
	logger := logging.WithContext(ctx, r.logger)

	acquired, err := r.deps.Lock.TryAcquire()
	if err != nil {
		logging.ErrorWithContext(logger, "run lock unavailable; exiting", "lock_unavailable",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check permissions on the state directory"))
		return r.finish(summary, RunAbortedLock), nil
	}
	if !acquired {
		logger.Info("another run holds the lock; exiting")
		return r.finish(summary, RunLockHeld), nil
	}
	defer func() {
		if err := r.deps.Lock.Release(); err != nil {
			logging.WarnWithContext(logger, "run lock release failed", "lock_release_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "remove the lock file if the next run reports it held"),
				logging.String(logging.FieldImpact, "lock is released when the process exits"))
		}
	}()

	logger.Info("follow-up run started")
	r.startLedger(ctx, summary)

	outcome, runErr := r.runLocked(ctx, &summary)
	summary = r.finish(summary, outcome)
	r.finishLedger(ctx, summary)

	if summary.Counts.Failed > 0 {
		r.publish(ctx, notifications.EventRunFailures, notifications.Payload{"failed": summary.Counts.Failed})
	}

	logger.Info("follow-up run finished",
		logging.String("outcome", string(summary.Outcome)),
		logging.Int("eligible", summary.Counts.Eligible),
		logging.Int("success", summary.Counts.Success),
		logging.Int("skipped", summary.Counts.Skipped),
		logging.Int("deferred", summary.Counts.Deferred),
		logging.Int("failed", summary.Counts.Failed),
		logging.Duration("duration", summary.FinishedAt.Sub(summary.StartedAt)),
	)
	return summary, runErr
}

func (r *Runner) runLocked(ctx context.Context, summary *Summary) (RunOutcome, error) {
	logger := logging.WithContext(ctx, r.logger)

	if r.opts.SettleDelay > 0 {
		logger.Debug("waiting for cache to settle", logging.Duration("delay", r.opts.SettleDelay))
		if err := r.deps.Clock.Sleep(ctx, r.opts.SettleDelay); err != nil {
			return RunCancelled, err
		}
	}

	snapshot, err := r.deps.Cache.Read()
	if err != nil {
		logging.ErrorWithContext(logger, "notes cache unreadable; aborting run", "cache_unreadable",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check paths.granola_dir and that Granola is installed"),
		)
		return RunAbortedCache, nil
	}

	token, err := r.deps.Auth.ValidToken(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return RunCancelled, ctxErr
		}
		logging.ErrorWithContext(logger, "provider token unavailable; aborting run", "auth_unavailable",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "open Granola to re-authenticate"),
		)
		r.publish(ctx, notifications.EventAuthExpired, nil)
		return RunAbortedAuth, nil
	}

	docs := r.eligible(snapshot)
	summary.Counts.Eligible = len(docs)
	if len(docs) == 0 {
		logger.Info("no meetings to process")
		return RunCompleted, nil
	}
	logger.Info("processing meetings", logging.Int("count", len(docs)))

	for _, doc := range docs {
		result, err := r.processMeeting(ctx, token, doc, snapshot)
		if err != nil {
			return RunCancelled, err
		}
		summary.Counts.add(result.Outcome)
		summary.Meetings = append(summary.Meetings, result)
		r.recordOutcome(ctx, result)
	}
	return RunCompleted, nil
}

// eligible returns recent unprocessed meetings plus previously deferred ones
// still present in the cache, deduplicated and newest first.
func (r *Runner) eligible(snapshot granola.Snapshot) []granola.Document {
	now := r.deps.Clock.Now()
	cutoff := now.Add(-r.opts.MaxAge)

	selected := make(map[string]granola.Document)
	for id, doc := range snapshot.Documents {
		if id == "" || doc.Deleted() {
			continue
		}
		start := doc.StartTime()
		if start.IsZero() || start.Before(cutoff) || start.After(now) {
			continue
		}
		if r.deps.State.IsProcessed(id) {
			continue
		}
		selected[id] = doc
	}

	for _, id := range r.deps.State.Deferred() {
		if _, ok := selected[id]; ok {
			continue
		}
		doc, ok := snapshot.Documents[id]
		if !ok || doc.Deleted() || r.deps.State.IsProcessed(id) {
			continue
		}
		selected[id] = doc
	}

	docs := make([]granola.Document, 0, len(selected))
	for _, doc := range snapshot.Sorted() {
		if _, ok := selected[doc.ID]; ok {
			docs = append(docs, doc)
		}
	}
	return docs
}

func (r *Runner) finish(summary Summary, outcome RunOutcome) Summary {
	summary.Outcome = outcome
	summary.FinishedAt = r.deps.Clock.Now()
	return summary
}
