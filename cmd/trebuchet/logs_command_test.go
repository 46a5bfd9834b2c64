package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"trebuchet/internal/logging"
)

func writeDaemonLog(t *testing.T, env *cliTestEnv, lines ...string) {
	t.Helper()
	path := filepath.Join(env.cfg.Paths.LogDir, logging.LogFileName)
	content := strings.Join(lines, "\n") + "\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write daemon log: %v", err)
	}
}

func TestLogsCommandShowsRecentLines(t *testing.T) {
	env := setupCLITestEnv(t)
	writeDaemonLog(t, env, "one", "two", "three")

	out, _, err := runCLI(t, []string{"logs", "-n", "2"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("logs command failed: %v", err)
	}
	requireContains(t, out, "two")
	requireContains(t, out, "three")
	if strings.Contains(out, "one") {
		t.Fatalf("expected only the last two lines, got %q", out)
	}
}

func TestLogsCommandReadsFileWhenDaemonDown(t *testing.T) {
	env := setupCLITestEnv(t)
	writeDaemonLog(t, env, "daemon starting", "daemon ready")
	env.shutdown()

	out, _, err := runCLI(t, []string{"logs"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("logs command failed: %v", err)
	}
	requireContains(t, out, "daemon ready")
}

func TestLogsCommandEmptyLog(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"logs"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("logs command failed: %v", err)
	}
	requireContains(t, out, "No log entries available")
}
