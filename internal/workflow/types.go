package workflow

import (
	"context"
	"time"

	"followup/internal/content"
	"followup/internal/drafting"
	"followup/internal/granola"
	"followup/internal/history"
	"followup/internal/readiness"
)

// Outcome is the terminal state of one meeting within a run.
type Outcome string

const (
	OutcomeSuccess  Outcome = "success"
	OutcomeSkipped  Outcome = "skipped"
	OutcomeDeferred Outcome = "deferred"
	OutcomeFailed   Outcome = "failed"
)

// RunOutcome describes how a whole invocation ended.
type RunOutcome string

const (
	RunCompleted    RunOutcome = "completed"
	RunLockHeld     RunOutcome = "lock_held"
	RunAbortedLock  RunOutcome = "aborted_lock"
	RunAbortedCache RunOutcome = "aborted_cache"
	RunAbortedAuth  RunOutcome = "aborted_auth"
	RunCancelled    RunOutcome = "cancelled"
)

// Counts tallies meeting outcomes.
type Counts struct {
	Eligible int
	Success  int
	Skipped  int
	Deferred int
	Failed   int
}

func (c *Counts) add(outcome Outcome) {
	switch outcome {
	case OutcomeSuccess:
		c.Success++
	case OutcomeSkipped:
		c.Skipped++
	case OutcomeDeferred:
		c.Deferred++
	case OutcomeFailed:
		c.Failed++
	}
}

// MeetingResult records what happened to one meeting.
type MeetingResult struct {
	ID      string
	Title   string
	Outcome Outcome
	Detail  string
}

// Summary describes a finished invocation.
type Summary struct {
	RunID      string
	Outcome    RunOutcome
	StartedAt  time.Time
	FinishedAt time.Time
	Counts     Counts
	Meetings   []MeetingResult
}

// Locker is the exclusive, non-blocking run lock.
type Locker interface {
	TryAcquire() (bool, error)
	Release() error
}

// StateStore persists processed and deferred meeting ids.
type StateStore interface {
	IsProcessed(id string) bool
	Deferred() []string
	MarkProcessed(id string) error
	Defer(id string) error
}

// SnapshotReader loads the local notes cache.
type SnapshotReader interface {
	Read() (granola.Snapshot, error)
}

// TokenProvider yields a usable provider access token.
type TokenProvider interface {
	ValidToken(ctx context.Context) (string, error)
}

// ContentPoller waits for a meeting's content to become ready.
type ContentPoller interface {
	Poll(ctx context.Context, meetingID, token string, cached []content.TranscriptSegment) (readiness.Result, error)
}

// DraftGenerator writes the follow-up email.
type DraftGenerator interface {
	Generate(ctx context.Context, req drafting.Request) (drafting.Draft, error)
}

// DraftDelivery stores the generated draft.
type DraftDelivery interface {
	CreateDraft(ctx context.Context, subject, body string, to, cc []string) (string, error)
}

// SenderNamer resolves the owner's first name for the sign-off.
type SenderNamer interface {
	SenderName(ctx context.Context) (string, error)
}

// CorrespondenceSource supplies recent message snippets with recipients.
type CorrespondenceSource interface {
	RecentCorrespondence(ctx context.Context, emails []string) ([]string, error)
}

// HistoryRecorder appends runs and meeting outcomes to the ledger.
type HistoryRecorder interface {
	StartRun(ctx context.Context, id string, startedAt time.Time) error
	FinishRun(ctx context.Context, id string, finishedAt time.Time, outcome string, counts history.Counts) error
	RecordOutcome(ctx context.Context, outcome history.MeetingOutcome) error
	Prune(ctx context.Context, before time.Time) (int64, error)
}
