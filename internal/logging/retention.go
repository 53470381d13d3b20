package logging

import (
	"os"
	"path/filepath"
	"time"
)

// RetentionTarget names a set of files eligible for age-based pruning.
type RetentionTarget struct {
	Dir     string
	Pattern string
	Exclude map[string]struct{}
}

// CleanupOldLogs removes matching files older than maxAge. Missing
// directories are not an error; removal failures are counted but do not
// stop the sweep.
func CleanupOldLogs(targets []RetentionTarget, maxAge time.Duration) (removed int, err error) {
	if maxAge <= 0 {
		return 0, nil
	}
	cutoff := time.Now().Add(-maxAge)

	var firstErr error
	for _, target := range targets {
		if target.Dir == "" || target.Pattern == "" {
			continue
		}
		matches, globErr := filepath.Glob(filepath.Join(target.Dir, target.Pattern))
		if globErr != nil {
			if firstErr == nil {
				firstErr = globErr
			}
			continue
		}
		for _, match := range matches {
			if target.Exclude != nil {
				if _, skip := target.Exclude[filepath.Base(match)]; skip {
					continue
				}
			}
			info, statErr := os.Lstat(match)
			if statErr != nil || !info.Mode().IsRegular() {
				continue
			}
			if info.ModTime().After(cutoff) {
				continue
			}
			if rmErr := os.Remove(match); rmErr != nil {
				if firstErr == nil {
					firstErr = rmErr
				}
				continue
			}
			removed++
		}
	}
	return removed, firstErr
}
