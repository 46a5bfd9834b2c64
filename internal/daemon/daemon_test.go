package daemon_test

import (
	"context"
	"testing"

	"trebuchet/internal/daemon"
	"trebuchet/internal/history"
	"trebuchet/internal/launcher"
	"trebuchet/internal/logging"
	"trebuchet/internal/testsupport"
)

type idleRunner struct{}

func (idleRunner) Run(context.Context, launcher.RunSpec) (int, error) { return 0, nil }

func TestDaemonStartStop(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)
	logger := logging.NewNop()
	l := launcher.New(cfg, store, logger, launcher.WithRunner(idleRunner{}))

	d, err := daemon.New(cfg, store, logger, l)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() {
		d.Close()
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	status := d.Status(ctx)
	if !status.Running {
		t.Fatal("expected daemon to report running")
	}
	if status.SocketPath != cfg.Paths.Socket {
		t.Fatalf("unexpected socket path: %q", status.SocketPath)
	}
	if status.ControlPath != cfg.Paths.Socket+".ctl" {
		t.Fatalf("unexpected control path: %q", status.ControlPath)
	}
	if status.Workers != cfg.Worker.Count {
		t.Fatalf("unexpected worker count: %d", status.Workers)
	}

	// Second start should fail
	if err := d.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}

	d.Stop()
	status = d.Status(ctx)
	if status.Running {
		t.Fatal("expected daemon to be stopped")
	}
}

func TestDaemonLockExcludesSecondInstance(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	logger := logging.NewNop()

	first, err := daemon.New(cfg, nil, logger, launcher.New(cfg, nil, logger, launcher.WithRunner(idleRunner{})))
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() { first.Close() })

	if err := first.Start(context.Background()); err != nil {
		t.Fatalf("first start failed: %v", err)
	}

	secondCfg := *cfg
	secondCfg.Paths.Socket = cfg.Paths.Socket + "2"
	second, err := daemon.New(&secondCfg, nil, logger, launcher.New(&secondCfg, nil, logger, launcher.WithRunner(idleRunner{})))
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() { second.Close() })

	if err := second.Start(context.Background()); err == nil {
		t.Fatal("expected second daemon instance to be rejected by the lock")
	}
}

func TestDaemonHistoryAccess(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)
	logger := logging.NewNop()
	l := launcher.New(cfg, store, logger, launcher.WithRunner(idleRunner{}))

	d, err := daemon.New(cfg, store, logger, l)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() { d.Close() })

	ctx := context.Background()
	if _, err := store.Begin(ctx, "run-1", "/tmp", []string{"-m", "tool.noop"}); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if err := store.Complete(ctx, "run-1", 0, 5, ""); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}

	runs, err := d.History(ctx, 10)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(runs) != 1 || runs[0].Status != history.StatusCompleted {
		t.Fatalf("unexpected history: %#v", runs)
	}

	status := d.Status(ctx)
	if status.RunStats[history.StatusCompleted] != 1 {
		t.Fatalf("unexpected run stats: %#v", status.RunStats)
	}
	if status.HistoryDBPath == "" {
		t.Fatal("expected history database path in status")
	}
}

func TestDaemonHistoryDisabled(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithHistoryDisabled())
	logger := logging.NewNop()
	d, err := daemon.New(cfg, nil, logger, launcher.New(cfg, nil, logger, launcher.WithRunner(idleRunner{})))
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() { d.Close() })

	if _, err := d.History(context.Background(), 5); err == nil {
		t.Fatal("expected history access to fail when disabled")
	}
	if _, err := d.PruneHistory(context.Background(), 5); err == nil {
		t.Fatal("expected prune to fail when disabled")
	}
}
