package history_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"followup/internal/history"
)

func openStore(t *testing.T) *history.Store {
	t.Helper()
	store, err := history.Open(filepath.Join(t.TempDir(), "nested", "history.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRunLifecycle(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	started := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	if err := store.StartRun(ctx, "run-1", started); err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	for _, o := range []history.MeetingOutcome{
		{RunID: "run-1", MeetingID: "m1", Title: "Acme", Outcome: "success", RecordedAt: started.Add(time.Minute)},
		{RunID: "run-1", MeetingID: "m2", Outcome: "deferred", Detail: "content not ready", RecordedAt: started.Add(2 * time.Minute)},
	} {
		if err := store.RecordOutcome(ctx, o); err != nil {
			t.Fatalf("RecordOutcome: %v", err)
		}
	}
	counts := history.Counts{Eligible: 2, Success: 1, Deferred: 1}
	if err := store.FinishRun(ctx, "run-1", started.Add(3*time.Minute), "completed", counts); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}

	runs, err := store.RecentRuns(ctx, 10)
	if err != nil {
		t.Fatalf("RecentRuns: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected one run, got %d", len(runs))
	}
	run := runs[0]
	if run.ID != "run-1" || run.Outcome != "completed" || run.Counts != counts {
		t.Fatalf("unexpected run %+v", run)
	}
	if !run.StartedAt.Equal(started) || !run.FinishedAt.Equal(started.Add(3*time.Minute)) {
		t.Fatalf("unexpected run times %s - %s", run.StartedAt, run.FinishedAt)
	}

	outcomes, err := store.MeetingOutcomes(ctx, "", 10)
	if err != nil {
		t.Fatalf("MeetingOutcomes: %v", err)
	}
	if len(outcomes) != 2 || outcomes[0].MeetingID != "m2" || outcomes[0].Detail != "content not ready" {
		t.Fatalf("unexpected outcomes %+v", outcomes)
	}

	only, err := store.MeetingOutcomes(ctx, "m1", 10)
	if err != nil {
		t.Fatalf("MeetingOutcomes(m1): %v", err)
	}
	if len(only) != 1 || only[0].Title != "Acme" {
		t.Fatalf("unexpected filtered outcomes %+v", only)
	}
}

func TestFinishUnknownRun(t *testing.T) {
	store := openStore(t)
	if err := store.FinishRun(context.Background(), "missing", time.Now(), "completed", history.Counts{}); err == nil {
		t.Fatal("expected error for unknown run")
	}
}

func TestPruneCascadesOutcomes(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	old := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	recent := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for id, started := range map[string]time.Time{"old": old, "recent": recent} {
		if err := store.StartRun(ctx, id, started); err != nil {
			t.Fatalf("StartRun %s: %v", id, err)
		}
		if err := store.RecordOutcome(ctx, history.MeetingOutcome{RunID: id, MeetingID: id + "-m", Outcome: "skipped", RecordedAt: started}); err != nil {
			t.Fatalf("RecordOutcome %s: %v", id, err)
		}
	}

	removed, err := store.Prune(ctx, recent.Add(-time.Hour))
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected one pruned run, got %d", removed)
	}
	outcomes, err := store.MeetingOutcomes(ctx, "", 10)
	if err != nil {
		t.Fatalf("MeetingOutcomes: %v", err)
	}
	if len(outcomes) != 1 || outcomes[0].RunID != "recent" {
		t.Fatalf("expected cascaded delete, got %+v", outcomes)
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	first, err := history.Open(path)
	if err != nil {
		t.Fatalf("first Open: %v", err)
	}
	if err := first.StartRun(context.Background(), "r", time.Now()); err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	_ = first.Close()

	second, err := history.Open(path)
	if err != nil {
		t.Fatalf("second Open: %v", err)
	}
	defer second.Close()
	runs, err := second.RecentRuns(context.Background(), 5)
	if err != nil || len(runs) != 1 {
		t.Fatalf("expected persisted run, got %v (%v)", runs, err)
	}
}
