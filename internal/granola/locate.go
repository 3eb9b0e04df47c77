package granola

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
)

var (
	// ErrNoCache indicates that no usable cache file could be found or parsed.
	ErrNoCache = errors.New("granola cache unavailable")

	cacheFilePattern = regexp.MustCompile(`^cache-v(\d+)\.json$`)
)

// LocateCache returns the cache file in dir with the highest embedded version.
// An empty directory or a tie for the highest version is an error.
func LocateCache(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("%w: list %s: %w", ErrNoCache, dir, err)
	}

	best := -1
	var bestName string
	tie := false
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		match := cacheFilePattern.FindStringSubmatch(entry.Name())
		if match == nil {
			continue
		}
		version, err := strconv.Atoi(match[1])
		if err != nil {
			continue
		}
		switch {
		case version > best:
			best = version
			bestName = entry.Name()
			tie = false
		case version == best:
			tie = true
		}
	}

	if best < 0 {
		return "", fmt.Errorf("%w: no cache-v<N>.json in %s", ErrNoCache, dir)
	}
	if tie {
		return "", fmt.Errorf("%w: ambiguous cache version %d in %s", ErrNoCache, best, dir)
	}
	return filepath.Join(dir, bestName), nil
}
