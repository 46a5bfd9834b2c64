package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"trebuchet/internal/testsupport"
)

func TestRunCommandRelaysWorkerOutput(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"run", "--", "-m", "tool.noop", "--flag", "value"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	requireContains(t, out, "args: -m tool.noop --flag value")

	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	requireContains(t, out, "dir: "+wd)
}

func TestRunCommandHonorsDirFlag(t *testing.T) {
	env := setupCLITestEnv(t)

	dir := filepath.Join(testsupport.BaseDir(env.cfg), "project dir")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	out, _, err := runCLI(t, []string{"run", "--dir", dir, "--", "-m", "tool.noop"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("run --dir: %v", err)
	}
	requireContains(t, out, "dir: "+dir)
}

func TestRunCommandRelaysRejectReply(t *testing.T) {
	env := setupCLITestEnv(t)

	// Requests that do not start with -m are refused by the daemon; the
	// reply still travels back over the launch socket.
	out, _, err := runCLI(t, []string{"run", "--", "not-a-module"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	requireContains(t, out, "Cannot handle")
}

func TestRunCommandWithoutDaemonFails(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	writeTestConfig(t, configPath, cfg)

	_, _, err := runCLI(t, []string{"run", "--", "-m", "tool.noop"}, cfg.Paths.Socket, configPath)
	if err == nil {
		t.Fatal("expected error when daemon is not running")
	}
	if !strings.Contains(err.Error(), "start the daemon") {
		t.Fatalf("expected dial hint in error, got %v", err)
	}
}
