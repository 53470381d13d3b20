package events

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"txrmwatch/internal/logging"
)

// Kind classifies a status event.
type Kind string

const (
	KindScanStart         Kind = "scan-start"
	KindScanEnd           Kind = "scan-end"
	KindFileDiscovered    Kind = "file-discovered"
	KindFileChanged       Kind = "file-changed"
	KindFileStable        Kind = "file-stable"
	KindProcessingStart   Kind = "processing-start"
	KindProcessingSuccess Kind = "processing-success"
	KindProcessingFailure Kind = "processing-failure"
)

// Event is one observable status change. Path is empty for scan-level
// events.
type Event struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Kind      Kind      `json:"kind"`
	Path      string    `json:"path,omitempty"`
	Detail    string    `json:"detail,omitempty"`
}

// New builds an event stamped now with a fresh id.
func New(kind Kind, path, detail string) Event {
	return Event{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Kind:      kind,
		Path:      path,
		Detail:    detail,
	}
}

// Sink consumes events. Implementations must be safe for concurrent use
// and must not block the emitter for long.
type Sink interface {
	Emit(Event)
}

// Fanout delivers each event to every sink in order.
type Fanout []Sink

func (f Fanout) Emit(event Event) {
	for _, sink := range f {
		if sink != nil {
			sink.Emit(event)
		}
	}
}

// Nop discards events.
type Nop struct{}

func (Nop) Emit(Event) {}

// SlogSink writes events to the structured log.
type SlogSink struct {
	logger *slog.Logger
}

// NewSlogSink returns a sink logging at info level.
func NewSlogSink(logger *slog.Logger) *SlogSink {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &SlogSink{logger: logging.WithComponent(logger, "events")}
}

func (s *SlogSink) Emit(event Event) {
	attrs := []logging.Attr{
		logging.String(logging.FieldEvent, string(event.Kind)),
	}
	if event.Path != "" {
		attrs = append(attrs, logging.String(logging.FieldPath, event.Path))
	}
	if event.Detail != "" {
		attrs = append(attrs, logging.String("detail", event.Detail))
	}
	s.logger.Info("status event", logging.Args(attrs...)...)
}
