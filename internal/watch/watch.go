// Package watch triggers pipeline runs when the notes app rewrites its cache.
//
// The app saves the cache file several times in quick succession, so events
// are debounced and a single run follows each burst. Runs execute on the
// watch goroutine one at a time; events that arrive while a run is active
// start another burst once it finishes.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"time"

	"github.com/fsnotify/fsnotify"

	"followup/internal/logging"
)

const defaultDebounce = 2 * time.Second

var cacheFilePattern = regexp.MustCompile(`^cache-v\d+\.json$`)

// RunFunc performs one pipeline invocation.
type RunFunc func(ctx context.Context) error

// Options configures a Watcher.
type Options struct {
	Dir        string
	Debounce   time.Duration
	RunOnStart bool
	// Match selects the file names that trigger a run. Defaults to versioned
	// cache files.
	Match  func(name string) bool
	Logger *slog.Logger
}

// Watcher watches one directory and calls run after each debounced burst.
type Watcher struct {
	dir        string
	debounce   time.Duration
	runOnStart bool
	match      func(string) bool
	run        RunFunc
	logger     *slog.Logger
}

// New builds a Watcher. Zero options fall back to defaults.
func New(opts Options, run RunFunc) *Watcher {
	w := &Watcher{
		dir:        opts.Dir,
		debounce:   opts.Debounce,
		runOnStart: opts.RunOnStart,
		match:      opts.Match,
		run:        run,
		logger:     logging.NewComponentLogger(opts.Logger, "watch"),
	}
	if w.debounce <= 0 {
		w.debounce = defaultDebounce
	}
	if w.match == nil {
		w.match = cacheFilePattern.MatchString
	}
	return w
}

// Run blocks until ctx is done. It returns nil on cancellation.
func (w *Watcher) Run(ctx context.Context) error {
	if w.run == nil {
		return errors.New("watch: run function is required")
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	w.logger.Info("watching for cache changes",
		logging.String("dir", w.dir),
		logging.Duration("debounce", w.debounce))

	if w.runOnStart {
		w.trigger(ctx, "startup")
	}

	debounceTimer := time.NewTimer(0)
	<-debounceTimer.C
	defer debounceTimer.Stop()
	pending := ""

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("watch stopped")
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			name := filepath.Base(event.Name)
			if !w.match(name) {
				continue
			}
			pending = name
			debounceTimer.Reset(w.debounce)

		case <-debounceTimer.C:
			if pending == "" {
				continue
			}
			trigger := pending
			pending = ""
			w.trigger(ctx, trigger)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logging.WarnWithContext(w.logger, "file watcher error", "watch_error",
				logging.Error(err),
				logging.String(logging.FieldImpact, "a cache change may be missed until the next write"))
		}
	}
}

func (w *Watcher) trigger(ctx context.Context, reason string) {
	if ctx.Err() != nil {
		return
	}
	w.logger.Debug("triggering run", logging.String("trigger", reason))
	if err := w.run(ctx); err != nil && ctx.Err() == nil {
		logging.ErrorWithContext(w.logger, "triggered run failed", "watch_run_failed",
			logging.Error(err),
			logging.String("trigger", reason))
	}
}
