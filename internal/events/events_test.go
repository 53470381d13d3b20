package events

import (
	"bytes"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"
)

type captureSink struct {
	mu     sync.Mutex
	events []Event
}

func (c *captureSink) Emit(event Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
}

func TestNewPopulatesIdentityAndTime(t *testing.T) {
	before := time.Now().UTC()
	event := New(KindFileStable, "/data/a.txrm", "settled after 10m")
	after := time.Now().UTC()

	if event.ID == "" {
		t.Fatal("empty id")
	}
	if event.Timestamp.Before(before) || event.Timestamp.After(after) {
		t.Fatalf("timestamp %v outside [%v, %v]", event.Timestamp, before, after)
	}
	if event.Kind != KindFileStable || event.Path != "/data/a.txrm" {
		t.Fatalf("fields wrong: %+v", event)
	}

	other := New(KindFileStable, "/data/a.txrm", "")
	if other.ID == event.ID {
		t.Fatal("ids not unique")
	}
}

func TestFanoutDeliversToAllSinks(t *testing.T) {
	first := &captureSink{}
	second := &captureSink{}
	fan := Fanout{first, nil, second}

	fan.Emit(New(KindScanStart, "", ""))
	fan.Emit(New(KindScanEnd, "", "2 candidates"))

	if len(first.events) != 2 || len(second.events) != 2 {
		t.Fatalf("delivery counts: %d, %d", len(first.events), len(second.events))
	}
}

func TestSlogSinkWritesEvent(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	sink := NewSlogSink(logger)

	sink.Emit(New(KindProcessingFailure, "/data/a.txrm", "extractor exited 1"))

	out := buf.String()
	for _, want := range []string{"processing-failure", "/data/a.txrm", "extractor exited 1"} {
		if !strings.Contains(out, want) {
			t.Errorf("log line missing %q: %s", want, out)
		}
	}
}
