package monitor

import (
	"time"

	"txrmwatch/internal/registry"
)

// Status is a point-in-time summary of the monitor.
type Status struct {
	Running    bool
	StartedAt  time.Time
	LastScan   time.Time
	Tracked    int
	PerState   map[registry.State]int
	Processing []string
	LastError  string
}

// Status snapshots the monitor for IPC and CLI rendering.
func (m *Manager) Status() Status {
	m.mu.RLock()
	status := Status{
		Running:   m.running,
		StartedAt: m.startedAt,
		LastScan:  m.lastScan,
		LastError: m.lastErr,
	}
	m.mu.RUnlock()

	status.Tracked = m.reg.Len()
	status.PerState = m.reg.Stats()
	for _, file := range m.reg.InState(registry.StateProcessing) {
		status.Processing = append(status.Processing, file.Path)
	}
	return status
}
