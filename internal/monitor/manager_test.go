package monitor

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"txrmwatch/internal/events"
	"txrmwatch/internal/sidecar"
	"txrmwatch/internal/testsupport"
)

type recordingSink struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recordingSink) Emit(event events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingSink) has(kind events.Kind) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, event := range r.events {
		if event.Kind == kind {
			return true
		}
	}
	return false
}

func waitFor(t *testing.T, timeout time.Duration, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestManagerProcessesSettledFile(t *testing.T) {
	cfg := testsupport.NewConfig(t,
		testsupport.WithStubbedExtractor(`{"voltage": 80, "image_width": 2048}`))
	scan := filepath.Join(cfg.Paths.Roots[0], "run.txrm")
	testsupport.WriteFile(t, scan, 64)

	sink := &recordingSink{}
	m := NewManager(cfg, nil, sink, nil)
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer m.Stop()

	waitFor(t, 15*time.Second, "sidecar", func() bool {
		return sidecar.Exists(scan)
	})

	data, err := os.ReadFile(sidecar.PathFor(scan))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "voltage: 80") {
		t.Fatalf("sidecar content: %q", data)
	}
	for _, kind := range []events.Kind{
		events.KindScanStart,
		events.KindFileDiscovered,
		events.KindFileStable,
		events.KindProcessingStart,
		events.KindProcessingSuccess,
	} {
		waitFor(t, 5*time.Second, string(kind), func() bool { return sink.has(kind) })
	}
}

func TestManagerManualTriggerBypassesSettleWindow(t *testing.T) {
	cfg := testsupport.NewConfig(t,
		testsupport.WithSettleWindow(3600),
		testsupport.WithStubbedExtractor(`{"voltage": 80}`))
	scan := filepath.Join(cfg.Paths.Roots[0], "run.txrm")
	testsupport.WriteFile(t, scan, 64)

	m := NewManager(cfg, nil, nil, nil)
	if err := m.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer m.Stop()

	if err := m.TriggerProcess(scan); err != nil {
		t.Fatalf("TriggerProcess: %v", err)
	}
	waitFor(t, 10*time.Second, "forced sidecar", func() bool {
		return sidecar.Exists(scan)
	})
}

func TestManagerFailureWritesMarkerSidecar(t *testing.T) {
	cfg := testsupport.NewConfig(t,
		testsupport.WithExtractorCommand("/bin/sh", "-c", "echo 'broken stream' >&2; exit 1"))
	scan := filepath.Join(cfg.Paths.Roots[0], "run.txrm")
	testsupport.WriteFile(t, scan, 64)

	sink := &recordingSink{}
	m := NewManager(cfg, nil, sink, nil)
	if err := m.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer m.Stop()

	if err := m.TriggerProcess(scan); err != nil {
		t.Fatal(err)
	}
	waitFor(t, 10*time.Second, "marker sidecar", func() bool {
		return sidecar.Exists(scan)
	})

	data, err := os.ReadFile(sidecar.PathFor(scan))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), sidecar.ErrorMarker) {
		t.Fatalf("marker missing: %q", data)
	}
	waitFor(t, 5*time.Second, "failure event", func() bool {
		return sink.has(events.KindProcessingFailure)
	})
}

func TestManagerSkipsFilesWithSidecar(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	scan := filepath.Join(cfg.Paths.Roots[0], "done.txrm")
	testsupport.WriteFile(t, scan, 64)
	testsupport.WriteFile(t, sidecar.PathFor(scan), 8)

	m := NewManager(cfg, nil, nil, nil)
	if err := m.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer m.Stop()

	if err := m.TriggerScan(); err != nil {
		t.Fatal(err)
	}
	time.Sleep(2 * time.Second)
	if m.Registry().Len() != 0 {
		t.Fatalf("sidecar-excluded file tracked: %+v", m.Registry().Snapshot())
	}
}

func TestManagerStatusSummary(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	m := NewManager(cfg, nil, nil, nil)

	if m.Status().Running {
		t.Fatal("running before Start")
	}
	if err := m.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	status := m.Status()
	if !status.Running || status.StartedAt.IsZero() {
		t.Fatalf("status = %+v", status)
	}
	m.Stop()
	if m.Status().Running {
		t.Fatal("running after Stop")
	}
}

func TestManagerDoubleStartRejected(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	m := NewManager(cfg, nil, nil, nil)
	if err := m.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer m.Stop()
	if err := m.Start(context.Background()); err == nil {
		t.Fatal("second Start accepted")
	}
}
