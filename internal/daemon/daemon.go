package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/gofrs/flock"

	"txrmwatch/internal/config"
	"txrmwatch/internal/events"
	"txrmwatch/internal/journal"
	"txrmwatch/internal/logging"
	"txrmwatch/internal/monitor"
	"txrmwatch/internal/notifications"
	"txrmwatch/internal/registry"
	"txrmwatch/internal/watch"
)

// Daemon coordinates the monitoring services and enforces single-instance
// execution through a lock file.
type Daemon struct {
	cfg     *config.Config
	logger  *slog.Logger
	monitor *monitor.Manager
	journal *journal.Store
	watcher *watch.Watcher
	logPath string

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	Monitor      monitor.Status
	LockFilePath string
	JournalPath  string
	PID          int
}

// LockPath returns the daemon lock file location for cfg.
func LockPath(cfg *config.Config) string {
	return filepath.Join(cfg.Paths.LogDir, "txrmwatchd.lock")
}

// SocketPath returns the IPC socket location for cfg.
func SocketPath(cfg *config.Config) string {
	return filepath.Join(cfg.Paths.LogDir, "txrmwatchd.sock")
}

// PIDPath returns the pid file location for cfg.
func PIDPath(cfg *config.Config) string {
	return filepath.Join(cfg.Paths.LogDir, "txrmwatchd.pid")
}

// New constructs a daemon with initialized dependencies. jstore may be nil
// when the journal is disabled.
func New(cfg *config.Config, mon *monitor.Manager, jstore *journal.Store, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || mon == nil {
		return nil, errors.New("daemon requires config and monitor manager")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	lockPath := LockPath(cfg)
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.WithComponent(logger, "daemon"),
		monitor:  mon,
		journal:  jstore,
		logPath:  filepath.Join(cfg.Paths.LogDir, "txrmwatch.log"),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	if cfg.Watcher.Enabled {
		d.watcher = watch.New(cfg.Paths.Roots, cfg.Monitor.Extension, func() {
			_ = mon.TriggerScan()
		}, logger)
	}
	return d, nil
}

// Start acquires the daemon lock and launches the monitoring loops.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another txrmwatch daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	if err := d.monitor.Start(d.ctx); err != nil {
		_ = d.lock.Unlock()
		d.cancel()
		d.ctx = nil
		d.cancel = nil
		return fmt.Errorf("start monitor: %w", err)
	}

	if d.watcher != nil {
		if err := d.watcher.Start(d.ctx); err != nil {
			d.logger.Warn("filesystem watcher unavailable, polling only",
				logging.Error(err))
		}
	}

	d.running.Store(true)
	d.logger.Info("txrmwatch daemon started",
		logging.String("lock", d.lockPath),
		logging.Int("pid", os.Getpid()))
	return nil
}

// Stop halts monitoring, waits for in-flight extractions, and releases
// the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.monitor.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("txrmwatch daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.journal != nil {
		return d.journal.Close()
	}
	return nil
}

// List returns a snapshot of the tracked files.
func (d *Daemon) List() []registry.TrackedFile {
	return d.monitor.Registry().Snapshot()
}

// Process queues a manual processing request for path.
func (d *Daemon) Process(path string) error {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return errors.New("path is required")
	}
	abs, err := filepath.Abs(trimmed)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}
	return d.monitor.TriggerProcess(abs)
}

// Scan requests an immediate discovery scan.
func (d *Daemon) Scan() error {
	return d.monitor.TriggerScan()
}

// Events returns recent journal events, newest first. Without a journal
// an empty slice is returned.
func (d *Daemon) Events(ctx context.Context, limit int) ([]events.Event, error) {
	if d.journal == nil {
		return nil, nil
	}
	return d.journal.Recent(ctx, limit)
}

// TestNotification triggers a test notification using the current
// configuration.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}
	notifier := notifications.NewService(d.cfg)
	if err := notifier.TestNotification(ctx); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}

// LogPath returns the path to the daemon log pointer file.
func (d *Daemon) LogPath() string {
	return d.logPath
}

// Status returns the current daemon status.
func (d *Daemon) Status() Status {
	journalPath := ""
	if d.journal != nil {
		journalPath = d.journal.Path()
	}
	return Status{
		Running:      d.running.Load(),
		Monitor:      d.monitor.Status(),
		LockFilePath: d.lockPath,
		JournalPath:  journalPath,
		PID:          os.Getpid(),
	}
}
