package ipc

import "time"

// StartRequest triggers monitoring startup.
type StartRequest struct{}

// StartResponse indicates whether monitoring was started.
type StartResponse struct {
	Started bool   `json:"started"`
	Message string `json:"message"`
}

// StopRequest stops monitoring.
type StopRequest struct{}

// StopResponse indicates stop result.
type StopResponse struct {
	Stopped bool `json:"stopped"`
}

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// StatusResponse represents combined daemon/monitor status information.
type StatusResponse struct {
	Running    bool           `json:"running"`
	StartedAt  time.Time      `json:"started_at"`
	LastScan   time.Time      `json:"last_scan"`
	Tracked    int            `json:"tracked"`
	PerState   map[string]int `json:"per_state"`
	Processing []string       `json:"processing"`
	LastError  string         `json:"last_error"`
	LockPath   string         `json:"lock_path"`
	Journal    string         `json:"journal_path"`
	PID        int            `json:"pid"`
}

// TrackedFile mirrors a registry entry for IPC callers.
type TrackedFile struct {
	Path       string    `json:"path"`
	State      string    `json:"state"`
	Size       int64     `json:"size"`
	LastChange time.Time `json:"last_change"`
	FirstSeen  time.Time `json:"first_seen"`
	LastError  string    `json:"last_error,omitempty"`
}

// ListRequest fetches tracked files, optionally filtered by state.
type ListRequest struct {
	States []string `json:"states"`
}

// ListResponse contains tracked files.
type ListResponse struct {
	Files []TrackedFile `json:"files"`
}

// ProcessRequest forces processing of one file.
type ProcessRequest struct {
	Path string `json:"path"`
}

// ProcessResponse acknowledges the trigger; the outcome arrives as events.
type ProcessResponse struct {
	Queued  bool   `json:"queued"`
	Message string `json:"message"`
}

// ScanRequest requests an immediate discovery scan.
type ScanRequest struct{}

// ScanResponse acknowledges the scan request.
type ScanResponse struct {
	Queued  bool   `json:"queued"`
	Message string `json:"message"`
}

// EventsRequest fetches recent journal events.
type EventsRequest struct {
	Limit int `json:"limit"`
}

// Event is one recorded status event.
type Event struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Kind      string    `json:"kind"`
	Path      string    `json:"path,omitempty"`
	Detail    string    `json:"detail,omitempty"`
}

// EventsResponse contains recent events, newest first.
type EventsResponse struct {
	Events []Event `json:"events"`
}

// LogTailRequest fetches log lines based on offset and follow semantics.
type LogTailRequest struct {
	Offset     int64 `json:"offset"`
	Limit      int   `json:"limit"`
	Follow     bool  `json:"follow"`
	WaitMillis int   `json:"wait_millis"`
}

// LogTailResponse returns log lines and the next offset.
type LogTailResponse struct {
	Lines  []string `json:"lines"`
	Offset int64    `json:"offset"`
}

// TestNotificationRequest triggers a notification test.
type TestNotificationRequest struct{}

// TestNotificationResponse reports notification test outcome.
type TestNotificationResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}
