package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"txrmwatch/internal/config"
	"txrmwatch/internal/daemon"
	"txrmwatch/internal/events"
	"txrmwatch/internal/ipc"
	"txrmwatch/internal/logging"
	"txrmwatch/internal/monitor"
	"txrmwatch/internal/notifications"
	"txrmwatch/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	daemon     *daemon.Daemon
	server     *ipc.Server
	socketPath string
	configPath string
	cancel     context.CancelFunc
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t,
		testsupport.WithStubbedExtractor(`{"pixel_size": "1.2"}`),
		testsupport.WithSettleWindow(3600),
	)
	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	writeTestConfig(t, configPath, cfg)

	logger := logging.NewNop()
	notifier := notifications.NewService(cfg)
	mgr := monitor.NewManager(cfg, notifier, events.Nop{}, logger)

	d, err := daemon.New(cfg, mgr, nil, logger)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	socketPath := filepath.Join(cfg.Paths.LogDir, "cli.sock")
	srv, err := ipc.NewServer(ctx, socketPath, d, logger)
	if err != nil {
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()

	env := &cliTestEnv{
		cfg:        cfg,
		daemon:     d,
		server:     srv,
		socketPath: socketPath,
		configPath: configPath,
		cancel:     cancel,
	}

	t.Cleanup(func() {
		cancel()
		srv.Close()
		d.Close()
	})

	return env
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, args []string, socket, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	flags := []string{"--socket", socket}
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, want string) {
	t.Helper()
	if !strings.Contains(output, want) {
		t.Fatalf("expected output to contain %q, got %q", want, output)
	}
}

func TestCLIListProcessAndStatus(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"list"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	requireContains(t, out, "No files tracked")

	if err := env.daemon.Start(context.Background()); err != nil {
		t.Fatalf("daemon.Start: %v", err)
	}

	target := filepath.Join(env.cfg.Paths.Roots[0], "sample.txrm")
	testsupport.WriteFile(t, target, 2048)

	out, _, err = runCLI(t, []string{"process", target}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	requireContains(t, out, "Processing queued")

	sidecarPath := target + ".txt"
	deadline := time.Now().Add(10 * time.Second)
	for {
		if _, statErr := os.Stat(sidecarPath); statErr == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("sidecar never written at %s", sidecarPath)
		}
		time.Sleep(50 * time.Millisecond)
	}

	out, _, err = runCLI(t, []string{"list", "--state", "completed"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("list completed: %v", err)
	}
	requireContains(t, out, "sample.txrm")

	out, _, err = runCLI(t, []string{"status"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "Daemon Status")
	requireContains(t, out, "monitoring since")
}

func TestCLIScanRequiresRunningMonitor(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, []string{"scan"}, env.socketPath, env.configPath)
	if err == nil {
		t.Fatal("expected scan to fail while monitor is stopped")
	}
	requireContains(t, err.Error(), "not running")
}
