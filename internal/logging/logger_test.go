package logging

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"WARN", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"bogus", slog.LevelInfo},
	}
	for _, tc := range cases {
		if got := parseLevel(tc.in); got != tc.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestPrettyHandlerOutput(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	logger := slog.New(newPrettyHandler(&buf, lvl))

	logger = WithComponent(logger, "monitor")
	logger.Info("file discovered",
		String(FieldPath, "/data/run 01.txrm"),
		Int64(FieldSize, 2048),
		Error(errors.New("boom")),
	)

	line := buf.String()
	if !strings.Contains(line, "INFO monitor: file discovered") {
		t.Fatalf("unexpected line: %q", line)
	}
	if !strings.Contains(line, `path="/data/run 01.txrm"`) {
		t.Errorf("path attr missing or unquoted: %q", line)
	}
	if !strings.Contains(line, "size_bytes=2048") {
		t.Errorf("size attr missing: %q", line)
	}
	if !strings.Contains(line, "error=boom") {
		t.Errorf("error attr missing: %q", line)
	}
}

func TestPrettyHandlerLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	lvl.Set(slog.LevelWarn)
	logger := slog.New(newPrettyHandler(&buf, lvl))

	logger.Info("quiet")
	logger.Warn("loud")

	if strings.Contains(buf.String(), "quiet") {
		t.Errorf("info record leaked past warn filter: %q", buf.String())
	}
	if !strings.Contains(buf.String(), "loud") {
		t.Errorf("warn record dropped: %q", buf.String())
	}
}

func TestNewWritesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "txrmwatch.log")

	logger, err := New(Options{Level: "debug", Format: "json", OutputPaths: []string{path}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Debug("hello", String("k", "v"))

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), `"msg":"hello"`) {
		t.Errorf("json log missing msg: %s", data)
	}
	if !strings.Contains(string(data), `"level":"debug"`) {
		t.Errorf("json log missing level: %s", data)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestCleanupOldLogs(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "run-old.log")
	fresh := filepath.Join(dir, "run-new.log")
	keep := filepath.Join(dir, "run-pinned.log")
	for _, p := range []string{old, fresh, keep} {
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	stale := time.Now().Add(-48 * time.Hour)
	for _, p := range []string{old, keep} {
		if err := os.Chtimes(p, stale, stale); err != nil {
			t.Fatal(err)
		}
	}

	removed, err := CleanupOldLogs([]RetentionTarget{{
		Dir:     dir,
		Pattern: "run-*.log",
		Exclude: map[string]struct{}{"run-pinned.log": {}},
	}}, 24*time.Hour)
	if err != nil {
		t.Fatalf("CleanupOldLogs: %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Error("old log not removed")
	}
	for _, p := range []string{fresh, keep} {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("%s unexpectedly removed", p)
		}
	}
}
