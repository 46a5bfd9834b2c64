package history_test

import (
	"context"
	"fmt"
	"testing"

	"trebuchet/internal/history"
	"trebuchet/internal/testsupport"
)

func TestBeginAndCompleteRun(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)

	ctx := context.Background()
	run, err := store.Begin(ctx, "run-1", "/tmp/project", []string{"-m", "tool.build", "--fast"})
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if run.ID == 0 {
		t.Fatal("expected run ID to be assigned")
	}
	if run.Status != history.StatusRunning {
		t.Fatalf("expected running status, got %s", run.Status)
	}
	if run.FinishedAt != nil {
		t.Fatal("expected no finish time on a running record")
	}
	if len(run.Args) != 3 || run.Args[1] != "tool.build" {
		t.Fatalf("unexpected args round-trip: %#v", run.Args)
	}

	if err := store.Complete(ctx, "run-1", 0, 2048, ""); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}

	fetched, err := store.GetByRunID(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetByRunID failed: %v", err)
	}
	if fetched == nil {
		t.Fatal("expected run to be found")
	}
	if fetched.Status != history.StatusCompleted {
		t.Fatalf("expected completed status, got %s", fetched.Status)
	}
	if fetched.BytesOut != 2048 {
		t.Fatalf("expected 2048 bytes out, got %d", fetched.BytesOut)
	}
	if fetched.FinishedAt == nil {
		t.Fatal("expected finish time to be recorded")
	}
	if !fetched.Finished() {
		t.Fatal("expected run to report finished")
	}
}

func TestCompleteMarksFailures(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)

	ctx := context.Background()
	if _, err := store.Begin(ctx, "run-exit", "/tmp", []string{"-m", "tool.noop"}); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if err := store.Complete(ctx, "run-exit", 3, 0, ""); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	run, err := store.GetByRunID(ctx, "run-exit")
	if err != nil {
		t.Fatalf("GetByRunID failed: %v", err)
	}
	if run.Status != history.StatusFailed {
		t.Fatalf("expected nonzero exit to mark run failed, got %s", run.Status)
	}
	if run.ExitCode != 3 {
		t.Fatalf("expected exit code 3, got %d", run.ExitCode)
	}

	if _, err := store.Begin(ctx, "run-err", "/tmp", []string{"-m", "tool.noop"}); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if err := store.Complete(ctx, "run-err", 0, 0, "client went away"); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	run, err = store.GetByRunID(ctx, "run-err")
	if err != nil {
		t.Fatalf("GetByRunID failed: %v", err)
	}
	if run.Status != history.StatusFailed {
		t.Fatalf("expected error message to mark run failed, got %s", run.Status)
	}
	if run.ErrorMessage != "client went away" {
		t.Fatalf("unexpected error message: %q", run.ErrorMessage)
	}
}

func TestCompleteUnknownRunFails(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)

	if err := store.Complete(context.Background(), "missing", 0, 0, ""); err == nil {
		t.Fatal("expected error completing unknown run")
	}
}

func TestRejectRecordsReason(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)

	ctx := context.Background()
	run, err := store.Reject(ctx, "run-bad", "/tmp", []string{"--oops"}, "first argument must be -m")
	if err != nil {
		t.Fatalf("Reject failed: %v", err)
	}
	if run.Status != history.StatusRejected {
		t.Fatalf("expected rejected status, got %s", run.Status)
	}
	if run.ErrorMessage != "first argument must be -m" {
		t.Fatalf("unexpected reason: %q", run.ErrorMessage)
	}
	if run.FinishedAt == nil {
		t.Fatal("expected rejected run to be finished immediately")
	}
}

func TestRecentReturnsNewestFirst(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		runID := fmt.Sprintf("run-%d", i)
		if _, err := store.Begin(ctx, runID, "/tmp", []string{"-m", "tool.noop"}); err != nil {
			t.Fatalf("Begin %s failed: %v", runID, err)
		}
	}

	runs, err := store.Recent(ctx, 3)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("expected 3 runs, got %d", len(runs))
	}
	if runs[0].RunID != "run-4" || runs[2].RunID != "run-2" {
		t.Fatalf("unexpected ordering: %s .. %s", runs[0].RunID, runs[2].RunID)
	}
}

func TestStatsGroupsByStatus(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)

	ctx := context.Background()
	if _, err := store.Begin(ctx, "run-a", "/tmp", nil); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if _, err := store.Begin(ctx, "run-b", "/tmp", nil); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if err := store.Complete(ctx, "run-b", 0, 10, ""); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if _, err := store.Reject(ctx, "run-c", "/tmp", nil, "nope"); err != nil {
		t.Fatalf("Reject failed: %v", err)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats[history.StatusRunning] != 1 || stats[history.StatusCompleted] != 1 || stats[history.StatusRejected] != 1 {
		t.Fatalf("unexpected stats: %#v", stats)
	}
}

func TestPruneKeepsNewest(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)

	ctx := context.Background()
	for i := 0; i < 6; i++ {
		runID := fmt.Sprintf("run-%d", i)
		if _, err := store.Begin(ctx, runID, "/tmp", nil); err != nil {
			t.Fatalf("Begin %s failed: %v", runID, err)
		}
	}

	pruned, err := store.Prune(ctx, 2)
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if pruned != 4 {
		t.Fatalf("expected 4 pruned rows, got %d", pruned)
	}

	runs, err := store.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 surviving runs, got %d", len(runs))
	}
	if runs[0].RunID != "run-5" || runs[1].RunID != "run-4" {
		t.Fatalf("unexpected survivors: %s, %s", runs[0].RunID, runs[1].RunID)
	}
}

func TestReopenExistingDatabase(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)

	ctx := context.Background()
	if _, err := store.Begin(ctx, "run-persist", "/tmp", []string{"-m", "tool.noop"}); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := history.Open(cfg)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()

	run, err := reopened.GetByRunID(ctx, "run-persist")
	if err != nil {
		t.Fatalf("GetByRunID failed: %v", err)
	}
	if run == nil {
		t.Fatal("expected persisted run after reopen")
	}
}
