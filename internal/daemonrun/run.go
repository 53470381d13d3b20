package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"txrmwatch/internal/config"
	"txrmwatch/internal/daemon"
	"txrmwatch/internal/events"
	"txrmwatch/internal/ipc"
	"txrmwatch/internal/journal"
	"txrmwatch/internal/logging"
	"txrmwatch/internal/monitor"
	"txrmwatch/internal/notifications"
	"txrmwatch/internal/preflight"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel   string
	SocketPath string
}

// Run starts the txrmwatch daemon runtime loop and blocks until the
// surrounding context is cancelled or a termination signal arrives.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runID := time.Now().UTC().Format("20060102T150405.000Z")
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("txrmwatch-%s.log", runID))

	level := opts.LogLevel
	if strings.TrimSpace(level) == "" {
		level = cfg.Logging.Level
	}
	logger, err := logging.New(logging.Options{
		Level:       level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stdout", logPath},
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	if err := ensureCurrentLogPointer(cfg.Paths.LogDir, logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update txrmwatch.log link: %v\n", err)
	}
	if cfg.Logging.RetentionDays > 0 {
		maxAge := time.Duration(cfg.Logging.RetentionDays) * 24 * time.Hour
		removed, cleanupErr := logging.CleanupOldLogs([]logging.RetentionTarget{
			{Dir: cfg.Paths.LogDir, Pattern: "txrmwatch-*.log", Exclude: map[string]struct{}{logPath: {}}},
		}, maxAge)
		if cleanupErr != nil {
			logger.Warn("log retention sweep incomplete", logging.Error(cleanupErr))
		} else if removed > 0 {
			logger.Info("removed expired log files", logging.Int(logging.FieldCount, removed))
		}
	}

	pidPath := daemon.PIDPath(cfg)
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	logPreflightSnapshot(logger, cfg)

	var jstore *journal.Store
	sinks := events.Fanout{events.NewSlogSink(logger)}
	if cfg.Journal.Enabled {
		jstore, err = journal.Open(cfg.Paths.LogDir, logger)
		if err != nil {
			logger.Error("open event journal", logging.Error(err))
			return err
		}
		defer jstore.Close()
		if cfg.Journal.RetentionDays > 0 {
			retention := time.Duration(cfg.Journal.RetentionDays) * 24 * time.Hour
			if pruned, pruneErr := jstore.Prune(signalCtx, retention); pruneErr != nil {
				logger.Warn("journal prune failed", logging.Error(pruneErr))
			} else if pruned > 0 {
				logger.Info("pruned journal events", logging.Int64(logging.FieldCount, pruned))
			}
		}
		sinks = append(sinks, journal.NewSink(jstore, logger))
	}

	notifier := notifications.NewService(cfg)
	mon := monitor.NewManager(cfg, notifier, sinks, logger)

	d, err := daemon.New(cfg, mon, jstore, logger)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	socketPath := strings.TrimSpace(opts.SocketPath)
	if socketPath == "" {
		socketPath = daemon.SocketPath(cfg)
	}
	ipcServer, err := ipc.NewServer(signalCtx, socketPath, d, logger)
	if err != nil {
		return fmt.Errorf("start IPC server: %w", err)
	}
	defer ipcServer.Close()
	ipcServer.Serve()

	if err := d.Start(signalCtx); err != nil {
		logger.Warn("daemon start failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check configuration and watch root access"),
			logging.String(logging.FieldImpact, "daemon will not monitor until started over IPC"),
		)
	}

	<-signalCtx.Done()
	logger.Info("txrmwatch daemon shutting down")
	d.Stop()
	return nil
}

func ensureCurrentLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := filepath.Join(logDir, "txrmwatch.log")
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logPreflightSnapshot(logger *slog.Logger, cfg *config.Config) {
	results := preflight.RunAll(cfg)
	passed, failed := preflight.Summarize(results)
	for _, res := range results {
		if res.Passed {
			continue
		}
		logger.Warn("preflight check failed",
			logging.String("check", res.Name),
			logging.String("detail", res.Detail),
		)
	}
	logger.Info("preflight snapshot",
		logging.Int("passed", passed),
		logging.Int("failed", failed),
	)
}
