package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"trebuchet/internal/config"
	"trebuchet/internal/daemon"
	"trebuchet/internal/history"
	"trebuchet/internal/ipc"
	"trebuchet/internal/launcher"
	"trebuchet/internal/logging"
	"trebuchet/internal/testsupport"
)

type cliTestEnv struct {
	cfg         *config.Config
	store       *history.Store
	daemon      *daemon.Daemon
	server      *ipc.Server
	socketPath  string
	controlPath string
	configPath  string
	cancel      context.CancelFunc
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t,
		testsupport.WithWorkerCount(1),
		testsupport.WithWorkerScript("#!/bin/sh\necho \"dir: $(pwd)\"\necho \"args: $*\"\n"))
	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	writeTestConfig(t, configPath, cfg)

	store := testsupport.MustOpenHistory(t, cfg)

	logger := logging.NewNop()
	l := launcher.New(cfg, store, logger)
	d, err := daemon.New(cfg, store, logger, l)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	if err := d.Start(ctx); err != nil {
		cancel()
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("skipping CLI test: %v", err)
		}
		t.Fatalf("daemon.Start: %v", err)
	}

	controlPath := config.ControlSocketPath(cfg.Paths.Socket)
	srv, err := ipc.NewServer(ctx, controlPath, d, logger)
	if err != nil {
		d.Stop()
		cancel()
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()

	env := &cliTestEnv{
		cfg:         cfg,
		store:       store,
		daemon:      d,
		server:      srv,
		socketPath:  cfg.Paths.Socket,
		controlPath: controlPath,
		configPath:  configPath,
		cancel:      cancel,
	}

	t.Cleanup(env.shutdown)

	return env
}

// shutdown tears the in-process daemon stack down. Safe to call more than
// once; tests use it to exercise the daemon-down fallback paths.
func (e *cliTestEnv) shutdown() {
	e.cancel()
	e.server.Close()
	e.daemon.Stop()
}

func runCLI(t *testing.T, args []string, socket, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if socket != "" {
		flags = append(flags, "--socket", socket)
	}
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(
		"[paths]\nsocket = %q\nlog_dir = %q\n\n[worker]\ncommand = %q\ncount = %d\n\n[history]\nenabled = %t\n",
		cfg.Paths.Socket,
		cfg.Paths.LogDir,
		cfg.Worker.Command,
		cfg.Worker.Count,
		cfg.History.Enabled,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
