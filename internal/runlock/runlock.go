// Package runlock enforces that at most one pipeline run is active on the
// machine at a time.
//
// The lock is an advisory file lock taken without blocking, so a second
// trigger exits immediately instead of queueing. The operating system drops
// the lock when the holding process dies, so a crash never leaves a stale
// lock behind. The holder's PID is written into the lock file for diagnostics.
package runlock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/gofrs/flock"
)

// Lock is a process-wide exclusive run lock backed by a file.
type Lock struct {
	path string

	mu   sync.Mutex
	lock *flock.Flock
	held bool
}

// New returns a lock rooted at path. Nothing touches the filesystem until
// TryAcquire is called.
func New(path string) *Lock {
	return &Lock{path: path, lock: flock.New(path)}
}

// Path returns the lock file location.
func (l *Lock) Path() string {
	return l.path
}

// TryAcquire attempts to take the lock without blocking. It returns false when
// another process holds it.
func (l *Lock) TryAcquire() (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.held {
		return true, nil
	}
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return false, fmt.Errorf("create lock directory: %w", err)
	}

	ok, err := l.lock.TryLock()
	if err != nil {
		return false, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return false, nil
	}
	l.held = true

	// The PID is informational; failing to record it does not give up the lock.
	_ = os.WriteFile(l.path, []byte(strconv.Itoa(os.Getpid())+"\n"), 0o644)
	return true, nil
}

// Release gives up the lock. Calling it when the lock is not held is a no-op.
func (l *Lock) Release() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.held {
		return nil
	}
	l.held = false
	if err := l.lock.Unlock(); err != nil {
		return fmt.Errorf("release lock: %w", err)
	}
	return nil
}

// Holder reports the PID recorded by the most recent holder, if any.
func (l *Lock) Holder() (int, bool) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return 0, false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, false
	}
	return pid, true
}

// Locked reports whether some process currently holds the lock, probing with
// a throwaway handle so the caller's own state is untouched.
func Locked(path string) (bool, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("stat lock: %w", err)
	}
	probe := flock.New(path)
	ok, err := probe.TryLock()
	if err != nil {
		return false, fmt.Errorf("probe lock: %w", err)
	}
	if ok {
		_ = probe.Unlock()
		return false, nil
	}
	return true, nil
}
