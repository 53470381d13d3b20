package scanner

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charlievieth/fastwalk"

	"txrmwatch/internal/logging"
	"txrmwatch/internal/sidecar"
)

// Candidate is a file the scanner considers eligible for tracking: a
// regular file carrying the watched extension with no sidecar yet.
type Candidate struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// Result summarizes one scan cycle.
type Result struct {
	Candidates []Candidate
	Roots      int
	Skipped    int
	Duration   time.Duration
}

// Scanner walks the configured roots and yields candidates. Each scan is
// a fresh full walk; the scanner itself keeps no memory between cycles.
type Scanner struct {
	roots     []string
	extension string
	logger    *slog.Logger
}

// New builds a scanner over roots for files ending in extension
// (lowercase, including the dot).
func New(roots []string, extension string, logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Scanner{
		roots:     roots,
		extension: strings.ToLower(extension),
		logger:    logging.WithComponent(logger, "scanner"),
	}
}

// Scan walks every root and collects candidates. Unreadable roots or
// subtrees are logged and skipped; the walk never fails the cycle unless
// the context is cancelled.
func (s *Scanner) Scan(ctx context.Context) (Result, error) {
	started := time.Now()
	result := Result{Roots: len(s.roots)}

	var mu sync.Mutex
	conf := fastwalk.Config{Follow: false}

	for _, root := range s.roots {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if _, err := os.Stat(root); err != nil {
			s.logger.Warn("scan root unavailable",
				logging.String(logging.FieldRoot, root),
				logging.Error(err))
			result.Skipped++
			continue
		}

		err := fastwalk.Walk(&conf, root, func(path string, entry fs.DirEntry, walkErr error) error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			if walkErr != nil {
				mu.Lock()
				result.Skipped++
				mu.Unlock()
				s.logger.Warn("scan entry unreadable",
					logging.String(logging.FieldPath, path),
					logging.Error(walkErr))
				if entry != nil && entry.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if entry.IsDir() || !entry.Type().IsRegular() {
				return nil
			}
			if !s.matches(path) {
				return nil
			}
			if sidecar.Exists(path) {
				return nil
			}
			info, infoErr := entry.Info()
			if infoErr != nil {
				mu.Lock()
				result.Skipped++
				mu.Unlock()
				return nil
			}
			mu.Lock()
			result.Candidates = append(result.Candidates, Candidate{
				Path:    path,
				Size:    info.Size(),
				ModTime: info.ModTime(),
			})
			mu.Unlock()
			return nil
		})
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return result, err
			}
			s.logger.Warn("scan root walk failed",
				logging.String(logging.FieldRoot, root),
				logging.Error(err))
			result.Skipped++
		}
	}

	result.Duration = time.Since(started)
	return result, nil
}

func (s *Scanner) matches(path string) bool {
	return strings.ToLower(filepath.Ext(path)) == s.extension
}
