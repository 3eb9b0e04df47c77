package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// timeLayout sorts lexically in chronological order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Counts tallies per-meeting outcomes of one run.
type Counts struct {
	Eligible int
	Success  int
	Deferred int
	Skipped  int
	Failed   int
}

// Run is one ledger row.
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Outcome    string
	Counts     Counts
}

// MeetingOutcome records what a run did with one meeting.
type MeetingOutcome struct {
	RunID      string
	MeetingID  string
	Title      string
	Outcome    string
	Detail     string
	RecordedAt time.Time
}

// Store manages the run ledger backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the ledger database and applies migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("history path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure history directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// Pragmas are per connection; a single connection keeps them applied.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// StartRun inserts an open run row.
func (s *Store) StartRun(ctx context.Context, id string, startedAt time.Time) error {
	if strings.TrimSpace(id) == "" {
		return errors.New("run id is empty")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, started_at) VALUES (?, ?)`,
		id, formatTime(startedAt),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// FinishRun closes a run row with its outcome and counts.
func (s *Store) FinishRun(ctx context.Context, id string, finishedAt time.Time, outcome string, counts Counts) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, outcome = ?, eligible = ?, succeeded = ?, deferred = ?, skipped = ?, failed = ?
         WHERE id = ?`,
		formatTime(finishedAt), outcome,
		counts.Eligible, counts.Success, counts.Deferred, counts.Skipped, counts.Failed,
		id,
	)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return fmt.Errorf("update run %s: not found", id)
	}
	return nil
}

// RecordOutcome appends one meeting outcome to a run.
func (s *Store) RecordOutcome(ctx context.Context, outcome MeetingOutcome) error {
	if outcome.RecordedAt.IsZero() {
		outcome.RecordedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO meeting_outcomes (run_id, meeting_id, title, outcome, detail, recorded_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		outcome.RunID, outcome.MeetingID, nullableString(outcome.Title),
		outcome.Outcome, nullableString(outcome.Detail), formatTime(outcome.RecordedAt),
	)
	if err != nil {
		return fmt.Errorf("insert meeting outcome: %w", err)
	}
	return nil
}

// RecentRuns lists the newest runs first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, finished_at, outcome, eligible, succeeded, deferred, skipped, failed
         FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			run      Run
			started  string
			finished sql.NullString
			outcome  sql.NullString
		)
		if err := rows.Scan(&run.ID, &started, &finished, &outcome,
			&run.Counts.Eligible, &run.Counts.Success, &run.Counts.Deferred, &run.Counts.Skipped, &run.Counts.Failed); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.StartedAt = parseTime(started)
		run.FinishedAt = parseTime(finished.String)
		run.Outcome = outcome.String
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// MeetingOutcomes lists outcomes newest first. An empty meetingID lists all
// meetings.
func (s *Store) MeetingOutcomes(ctx context.Context, meetingID string, limit int) ([]MeetingOutcome, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT run_id, meeting_id, title, outcome, detail, recorded_at FROM meeting_outcomes`
	args := []any{}
	if meetingID = strings.TrimSpace(meetingID); meetingID != "" {
		query += ` WHERE meeting_id = ?`
		args = append(args, meetingID)
	}
	query += ` ORDER BY recorded_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query meeting outcomes: %w", err)
	}
	defer rows.Close()

	var outcomes []MeetingOutcome
	for rows.Next() {
		var (
			item     MeetingOutcome
			title    sql.NullString
			detail   sql.NullString
			recorded string
		)
		if err := rows.Scan(&item.RunID, &item.MeetingID, &title, &item.Outcome, &detail, &recorded); err != nil {
			return nil, fmt.Errorf("scan meeting outcome: %w", err)
		}
		item.Title = title.String
		item.Detail = detail.String
		item.RecordedAt = parseTime(recorded)
		outcomes = append(outcomes, item)
	}
	return outcomes, rows.Err()
}

// Prune deletes runs (and their outcomes) started before the cutoff.
func (s *Store) Prune(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE started_at < ?`, formatTime(before))
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	removed, _ := res.RowsAffected()
	return removed, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	ts, err := time.Parse(timeLayout, value)
	if err != nil {
		return time.Time{}
	}
	return ts
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}
