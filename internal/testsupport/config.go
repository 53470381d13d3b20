package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"txrmwatch/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options. The watch
// root and log dir exist on return; intervals are shortened so tests do
// not wait on production cadences.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.Roots = []string{filepath.Join(base, "watch")}
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Extractor.Command = "/bin/true"
	cfgVal.Monitor.ScanInterval = 1
	cfgVal.Monitor.SampleInterval = 1
	cfgVal.Monitor.SettleWindow = 2
	cfgVal.Journal.Enabled = false

	for _, dir := range []string{cfgVal.Paths.Roots[0], cfgVal.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithRoots replaces the watch roots on the test config.
func WithRoots(roots ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Paths.Roots = roots
	}
}

// WithExtractorCommand points the config at a custom extractor binary.
func WithExtractorCommand(command string, args ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Extractor.Command = command
		b.cfg.Extractor.Args = args
	}
}

// WithSettleWindow overrides the settle window, in seconds.
func WithSettleWindow(seconds int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Monitor.SettleWindow = seconds
	}
}

// WithStubbedExtractor writes an executable script that prints the given
// JSON object and wires it as the extractor command.
func WithStubbedExtractor(output string) ConfigOption {
	return func(b *configBuilder) {
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		target := filepath.Join(binDir, "extract-metadata")
		script := "#!/bin/sh\ncat <<'EOF'\n" + output + "\nEOF\n"
		if err := os.WriteFile(target, []byte(script), 0o755); err != nil {
			b.t.Fatalf("write stub extractor: %v", err)
		}
		b.cfg.Extractor.Command = target
		b.cfg.Extractor.Args = nil
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.LogDir)
}
