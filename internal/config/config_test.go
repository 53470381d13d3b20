package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"txrmwatch/internal/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
[extractor]
command = "txrm-metadata"
`)
	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to be reported as existing")
	}
	if resolved != path {
		t.Fatalf("resolved path = %q, want %q", resolved, path)
	}
	if cfg.Monitor.Extension != ".txrm" {
		t.Fatalf("extension = %q, want .txrm", cfg.Monitor.Extension)
	}
	if cfg.Monitor.ScanInterval != 300 || cfg.Monitor.SettleWindow != 600 {
		t.Fatalf("unexpected monitor defaults: %+v", cfg.Monitor)
	}
	if !filepath.IsAbs(cfg.Paths.LogDir) {
		t.Fatalf("log dir not absolute: %q", cfg.Paths.LogDir)
	}
}

func TestLoadNormalizesRootsAndExtension(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, `
[paths]
roots = ["`+dir+`", "`+dir+`", ""]

[monitor]
extension = "TXRM"

[extractor]
command = "txrm-metadata"
`)
	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(cfg.Paths.Roots) != 1 {
		t.Fatalf("expected duplicate and empty roots removed, got %v", cfg.Paths.Roots)
	}
	if cfg.Monitor.Extension != ".txrm" {
		t.Fatalf("extension = %q, want .txrm", cfg.Monitor.Extension)
	}
}

func TestLoadRejectsMissingExtractorCommand(t *testing.T) {
	path := writeConfig(t, "[monitor]\nscan_interval = 60\n")
	_, _, _, err := config.Load(path)
	if err == nil {
		t.Fatal("expected error for missing extractor.command")
	}
	if !strings.Contains(err.Error(), "extractor.command") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadRejectsSampleIntervalNotBelowWindow(t *testing.T) {
	path := writeConfig(t, `
[monitor]
sample_interval = 600
settle_window = 600

[extractor]
command = "txrm-metadata"
`)
	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected error when sample_interval >= settle_window")
	}
}

func TestLoadRejectsBadLogFormat(t *testing.T) {
	path := writeConfig(t, `
[extractor]
command = "txrm-metadata"

[logging]
format = "yaml"
`)
	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected error for unsupported log format")
	}
}

func TestCreateSampleRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(data), "[monitor]") {
		t.Fatal("sample config missing [monitor] section")
	}
}
