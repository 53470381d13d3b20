package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"txrmwatch/internal/config"
	"txrmwatch/internal/dispatch"
	"txrmwatch/internal/events"
	"txrmwatch/internal/extractor"
	"txrmwatch/internal/logging"
	"txrmwatch/internal/notifications"
	"txrmwatch/internal/registry"
	"txrmwatch/internal/scanner"
	"txrmwatch/internal/sidecar"
	"txrmwatch/internal/stability"
)

// Manager coordinates the monitoring loops: periodic discovery scans,
// stability sweeps, manual triggers, and dispatch of settled files.
type Manager struct {
	cfg        *config.Config
	reg        *registry.Registry
	scan       *scanner.Scanner
	detector   *stability.Detector
	dispatcher *dispatch.Dispatcher
	notifier   notifications.Service
	sink       events.Sink
	logger     *slog.Logger

	scanInterval   time.Duration
	sampleInterval time.Duration

	trigger   chan string
	scanNudge chan struct{}

	mu        sync.RWMutex
	running   bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	startedAt time.Time
	lastScan  time.Time
	lastErr   string
}

// NewManager wires the monitoring pipeline from configuration. sink may be
// nil; notifier defaults to the configured notification service.
func NewManager(cfg *config.Config, notifier notifications.Service, sink events.Sink, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	if sink == nil {
		sink = events.Nop{}
	}
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}

	reg := registry.New()
	ext := extractor.NewCommand(
		cfg.Extractor.Command,
		cfg.Extractor.Args,
		time.Duration(cfg.Extractor.Timeout)*time.Second,
		logger,
	)
	return &Manager{
		cfg:            cfg,
		reg:            reg,
		scan:           scanner.New(cfg.Paths.Roots, cfg.Monitor.Extension, logger),
		detector:       stability.New(reg, time.Duration(cfg.Monitor.SettleWindow)*time.Second, nil, logger),
		dispatcher:     dispatch.New(reg, ext, notifier, sink, cfg.Monitor.MaxConcurrentExtractions, time.Duration(cfg.Extractor.Timeout)*time.Second, logger),
		notifier:       notifier,
		sink:           sink,
		logger:         logging.WithComponent(logger, "monitor"),
		scanInterval:   time.Duration(cfg.Monitor.ScanInterval) * time.Second,
		sampleInterval: time.Duration(cfg.Monitor.SampleInterval) * time.Second,
		trigger:        make(chan string, 16),
		scanNudge:      make(chan struct{}, 1),
	}
}

// Registry exposes the tracked-file registry for status rendering.
func (m *Manager) Registry() *registry.Registry {
	return m.reg
}

// Start launches the background loops. The registry starts empty on every
// start; only sidecars on disk carry history across runs.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("monitor already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	m.startedAt = time.Now()
	m.lastErr = ""
	m.wg.Add(3)
	m.mu.Unlock()

	go m.scanLoop(runCtx)
	go m.sweepLoop(runCtx)
	go m.triggerLoop(runCtx)

	m.logger.Info("monitoring started",
		logging.Int("roots", len(m.cfg.Paths.Roots)),
		logging.Duration("scan_interval", m.scanInterval),
		logging.Duration("sample_interval", m.sampleInterval))
	return nil
}

// Stop cancels the loops, waits for them, then waits for every in-flight
// dispatch to finish so no partial sidecar is left behind.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
	m.dispatcher.Wait()
	m.logger.Info("monitoring stopped")
}

// Running reports whether the loops are active.
func (m *Manager) Running() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.running
}

// TriggerProcess queues a manual processing request for path. The request
// is acknowledged immediately; the outcome is reported through events. A
// path that is already processing or finished is a no-op.
func (m *Manager) TriggerProcess(path string) error {
	m.mu.RLock()
	running := m.running
	m.mu.RUnlock()
	if !running {
		return errors.New("monitor is not running")
	}
	select {
	case m.trigger <- path:
		return nil
	default:
		return errors.New("trigger queue is full")
	}
}

// TriggerScan requests a discovery scan as soon as possible.
func (m *Manager) TriggerScan() error {
	m.mu.RLock()
	running := m.running
	m.mu.RUnlock()
	if !running {
		return errors.New("monitor is not running")
	}
	select {
	case m.scanNudge <- struct{}{}:
	default:
	}
	return nil
}

func (m *Manager) scanLoop(ctx context.Context) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.scanInterval)
	defer ticker.Stop()

	m.runScan(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.runScan(ctx)
		case <-m.scanNudge:
			m.runScan(ctx)
		}
	}
}

func (m *Manager) runScan(ctx context.Context) {
	m.pruneTerminal()

	m.sink.Emit(events.New(events.KindScanStart, "", ""))
	result, err := m.scan.Scan(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		m.setLastErr(fmt.Sprintf("scan: %v", err))
		m.logger.Warn("discovery scan failed", logging.Error(err))
		return
	}

	discovered := 0
	now := time.Now()
	for _, candidate := range result.Candidates {
		file, created := m.reg.InsertIfAbsent(candidate.Path, candidate.Size, now)
		if !created {
			continue
		}
		discovered++
		m.sink.Emit(events.New(events.KindFileDiscovered, file.Path, fmt.Sprintf("%d bytes", file.LastKnownSize)))
		m.logger.Info("file discovered",
			logging.String(logging.FieldPath, file.Path),
			logging.Int64(logging.FieldSize, file.LastKnownSize))
	}

	m.mu.Lock()
	m.lastScan = now
	m.mu.Unlock()

	m.sink.Emit(events.New(events.KindScanEnd, "",
		fmt.Sprintf("%d candidates, %d new, %d skipped in %s",
			len(result.Candidates), discovered, result.Skipped, result.Duration.Round(time.Millisecond))))

	if discovered > 0 {
		if err := m.notifier.NotifyScanSummary(ctx, discovered, m.reg.Len()); err != nil {
			m.logger.Warn("scan notification failed", logging.Error(err))
		}
	}
}

func (m *Manager) sweepLoop(ctx context.Context) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.sampleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.runSweep(ctx)
		}
	}
}

func (m *Manager) runSweep(ctx context.Context) {
	result := m.detector.Sweep()
	for _, path := range result.Changed {
		m.sink.Emit(events.New(events.KindFileChanged, path, "size changed, settle window reset"))
	}
	for _, path := range result.Stable {
		m.sink.Emit(events.New(events.KindFileStable, path, ""))
		m.dispatchAsync(ctx, path)
	}
}

func (m *Manager) triggerLoop(ctx context.Context) {
	defer m.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case path := <-m.trigger:
			m.handleTrigger(ctx, path)
		}
	}
}

// handleTrigger forces processing of path regardless of settling. An
// untracked path is admitted on the spot when it looks like a valid,
// unhandled scan file.
func (m *Manager) handleTrigger(ctx context.Context, path string) {
	if _, tracked := m.reg.Get(path); !tracked {
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			m.logger.Warn("manual trigger for unreadable path",
				logging.String(logging.FieldPath, path),
				logging.Error(err))
			return
		}
		if sidecar.Exists(path) {
			m.logger.Info("manual trigger skipped, sidecar present",
				logging.String(logging.FieldPath, path))
			return
		}
		m.reg.InsertIfAbsent(path, info.Size(), time.Now())
		m.sink.Emit(events.New(events.KindFileDiscovered, path, "manual trigger"))
	}

	if file, ok := m.reg.Get(path); ok && file.State == registry.StateDiscovered {
		if _, err := m.reg.Update(path, func(f *registry.TrackedFile) {
			f.State = registry.StateWaiting
		}); err != nil {
			m.logger.Error("manual trigger promote failed",
				logging.String(logging.FieldPath, path),
				logging.Error(err))
			return
		}
	}

	m.logger.Info("manual processing trigger",
		logging.String(logging.FieldPath, path))
	m.dispatchAsync(ctx, path)
}

func (m *Manager) dispatchAsync(ctx context.Context, path string) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		if err := m.dispatcher.Dispatch(ctx, path); err != nil && ctx.Err() == nil {
			m.setLastErr(fmt.Sprintf("dispatch %s: %v", path, err))
			m.logger.Error("dispatch failed",
				logging.String(logging.FieldPath, path),
				logging.Error(err))
		}
	}()
}

// pruneTerminal drops completed and failed entries from the registry.
// Their sidecars keep them out of future scans, so nothing is lost, and a
// deleted sidecar makes the file eligible again on the next cycle.
func (m *Manager) pruneTerminal() {
	for _, file := range m.reg.Snapshot() {
		if file.State.Terminal() {
			m.reg.Remove(file.Path)
		}
	}
}

func (m *Manager) setLastErr(msg string) {
	m.mu.Lock()
	m.lastErr = msg
	m.mu.Unlock()
}
