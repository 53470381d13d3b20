package watch

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"txrmwatch/internal/logging"
)

// Watcher listens for filesystem creation events under the roots and
// nudges the monitor to scan sooner than the polling cadence would.
// It is purely an accelerator: discovery rules live in the scanner, and
// polling remains the source of truth when watches are dropped or the
// kernel queue overflows.
type Watcher struct {
	roots     []string
	extension string
	nudge     func()
	logger    *slog.Logger

	mu      sync.Mutex
	fsw     *fsnotify.Watcher
	pending *time.Timer
}

// debounceDelay batches a burst of events into one scan nudge.
const debounceDelay = 2 * time.Second

// New builds a watcher that calls nudge when a relevant file appears.
func New(roots []string, extension string, nudge func(), logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Watcher{
		roots:     roots,
		extension: strings.ToLower(extension),
		nudge:     nudge,
		logger:    logging.WithComponent(logger, "watch"),
	}
}

// Start registers watches on every root and its subdirectories and runs
// the event loop until ctx is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	w.mu.Lock()
	w.fsw = fsw
	w.mu.Unlock()

	watched := 0
	for _, root := range w.roots {
		watched += w.addTree(root)
	}
	w.logger.Info("filesystem watches registered",
		logging.Int(logging.FieldCount, watched))

	go w.loop(ctx)
	return nil
}

func (w *Watcher) loop(ctx context.Context) {
	defer func() {
		w.mu.Lock()
		fsw := w.fsw
		w.fsw = nil
		if w.pending != nil {
			w.pending.Stop()
			w.pending = nil
		}
		w.mu.Unlock()
		if fsw != nil {
			_ = fsw.Close()
		}
	}()

	w.mu.Lock()
	fsw := w.fsw
	w.mu.Unlock()
	if fsw == nil {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("filesystem watch error", logging.Error(err))
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return
	}

	info, err := os.Stat(event.Name)
	if err != nil {
		return
	}
	if info.IsDir() {
		w.addTree(event.Name)
		return
	}
	if strings.ToLower(filepath.Ext(event.Name)) != w.extension {
		return
	}

	w.logger.Debug("new file event",
		logging.String(logging.FieldPath, event.Name))
	w.scheduleNudge()
}

// scheduleNudge coalesces event bursts into a single delayed nudge.
func (w *Watcher) scheduleNudge() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.pending != nil {
		w.pending.Reset(debounceDelay)
		return
	}
	w.pending = time.AfterFunc(debounceDelay, func() {
		w.mu.Lock()
		w.pending = nil
		w.mu.Unlock()
		if w.nudge != nil {
			w.nudge()
		}
	})
}

// addTree watches dir and every subdirectory below it. Unreadable
// subtrees are skipped.
func (w *Watcher) addTree(dir string) int {
	w.mu.Lock()
	fsw := w.fsw
	w.mu.Unlock()
	if fsw == nil {
		return 0
	}

	added := 0
	_ = filepath.WalkDir(dir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			w.logger.Warn("watch subtree unreadable",
				logging.String(logging.FieldPath, path),
				logging.Error(err))
			if entry != nil && entry.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !entry.IsDir() {
			return nil
		}
		if err := fsw.Add(path); err != nil {
			w.logger.Warn("watch registration failed",
				logging.String(logging.FieldPath, path),
				logging.Error(err))
			return nil
		}
		added++
		return nil
	})
	return added
}
