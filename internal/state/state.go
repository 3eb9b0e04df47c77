package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"followup/internal/fileutil"
	"followup/internal/logging"
)

const (
	// DefaultProcessedLimit caps the processed set.
	DefaultProcessedLimit = 200
	// DefaultDeferredLimit caps the deferred set.
	DefaultDeferredLimit = 20
)

// State is the persisted pipeline bookkeeping.
type State struct {
	ProcessedIDs []string   `json:"processedIds"`
	DeferredIDs  []string   `json:"deferredIds"`
	LastRun      *time.Time `json:"lastRun,omitempty"`
}

// legacyState carries the snake_case keys written by earlier releases.
type legacyState struct {
	ProcessedIDs []string `json:"processed_meeting_ids"`
	DeferredIDs  []string `json:"deferred_meeting_ids"`
	LastRun      string   `json:"last_run"`
}

// Options tunes the store.
type Options struct {
	ProcessedLimit int
	DeferredLimit  int
	Logger         *slog.Logger
	Now            func() time.Time
}

// Store reads and writes the state file.
type Store struct {
	path           string
	processedLimit int
	deferredLimit  int
	logger         *slog.Logger
	now            func() time.Time
}

// NewStore returns a store backed by path. Zero limits fall back to defaults.
func NewStore(path string, opts Options) *Store {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Store{
		path:           path,
		processedLimit: opts.ProcessedLimit,
		deferredLimit:  opts.DeferredLimit,
		logger:         logging.NewComponentLogger(logger, "state"),
		now:            opts.Now,
	}
	if s.processedLimit <= 0 {
		s.processedLimit = DefaultProcessedLimit
	}
	if s.deferredLimit <= 0 {
		s.deferredLimit = DefaultDeferredLimit
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Path returns the state file location.
func (s *Store) Path() string {
	return s.path
}

// Load returns the current persisted state. A missing or malformed file
// yields the empty default.
func (s *Store) Load() State {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logging.WarnWithContext(s.logger, "state file unreadable; using empty state", "state_read_failed",
				logging.String("path", s.path),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check permissions on the state directory"),
				logging.String(logging.FieldImpact, "meetings may be reprocessed"))
		}
		return State{}
	}
	st, err := decode(data)
	if err != nil {
		s.quarantine()
		logging.WarnWithContext(s.logger, "state file malformed; using empty state", "state_malformed",
			logging.String("path", s.path),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "a copy was kept as "+s.path+".corrupt"),
			logging.String(logging.FieldImpact, "meetings may be reprocessed"))
		return State{}
	}
	return st
}

// IsProcessed reports whether id has reached a terminal outcome before.
func (s *Store) IsProcessed(id string) bool {
	id = strings.TrimSpace(id)
	if id == "" {
		return false
	}
	return contains(s.Load().ProcessedIDs, id)
}

// Deferred lists deferred identifiers, oldest first.
func (s *Store) Deferred() []string {
	return append([]string(nil), s.Load().DeferredIDs...)
}

// MarkProcessed records id as handled, removes it from the deferred set and
// stamps the last run time. Repeated calls are harmless.
func (s *Store) MarkProcessed(id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return errors.New("meeting id cannot be empty")
	}
	st := s.Load()
	st.ProcessedIDs = appendBounded(st.ProcessedIDs, id, s.processedLimit)
	st.DeferredIDs = remove(st.DeferredIDs, id)
	now := s.now().UTC()
	st.LastRun = &now
	return s.save(st)
}

// Defer queues id for a later trigger unless it is already processed.
func (s *Store) Defer(id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return errors.New("meeting id cannot be empty")
	}
	st := s.Load()
	if contains(st.ProcessedIDs, id) || contains(st.DeferredIDs, id) {
		return nil
	}
	st.DeferredIDs = appendBounded(st.DeferredIDs, id, s.deferredLimit)
	return s.save(st)
}

func (s *Store) save(st State) error {
	if st.ProcessedIDs == nil {
		st.ProcessedIDs = []string{}
	}
	if st.DeferredIDs == nil {
		st.DeferredIDs = []string{}
	}
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	if err := fileutil.WriteFileAtomic(s.path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("persist state: %w", err)
	}
	return nil
}

func (s *Store) quarantine() {
	if err := fileutil.CopyFile(s.path, s.path+".corrupt"); err != nil {
		s.logger.Debug("state quarantine copy failed", logging.Error(err))
	}
}

func decode(data []byte) (State, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return State{}, err
	}
	if raw == nil {
		return State{}, errors.New("state root is not an object")
	}

	var current State
	if err := json.Unmarshal(data, &current); err != nil {
		return State{}, err
	}
	var legacy legacyState
	if err := json.Unmarshal(data, &legacy); err != nil {
		return State{}, err
	}

	st := State{LastRun: current.LastRun}
	for _, id := range append(legacy.ProcessedIDs, current.ProcessedIDs...) {
		st.ProcessedIDs = appendUnique(st.ProcessedIDs, id)
	}
	for _, id := range append(legacy.DeferredIDs, current.DeferredIDs...) {
		if !contains(st.ProcessedIDs, id) {
			st.DeferredIDs = appendUnique(st.DeferredIDs, id)
		}
	}
	if st.LastRun == nil && legacy.LastRun != "" {
		if ts, err := parseLegacyTime(legacy.LastRun); err == nil {
			st.LastRun = &ts
		}
	}
	return st, nil
}

func parseLegacyTime(value string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999"} {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", value)
}
