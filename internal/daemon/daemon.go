package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"trebuchet/internal/config"
	"trebuchet/internal/history"
	"trebuchet/internal/launcher"
	"trebuchet/internal/logging"
)

// Daemon owns the launcher lifecycle and enforces single-instance execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *history.Store
	launcher *launcher.Launcher
	logPath  string

	lockPath string
	lock     *flock.Flock

	running   atomic.Bool
	startedAt time.Time
	cancel    context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running       bool
	PID           int
	StartedAt     time.Time
	SocketPath    string
	ControlPath   string
	LockFilePath  string
	HistoryDBPath string
	Workers       int
	ActiveRuns    int64
	TotalRuns     int64
	RunStats      map[history.Status]int
}

// New constructs a daemon with initialized dependencies. The history store
// may be nil when run recording is disabled.
func New(cfg *config.Config, store *history.Store, logger *slog.Logger, l *launcher.Launcher) (*Daemon, error) {
	if cfg == nil || logger == nil || l == nil {
		return nil, errors.New("daemon requires config, logger, and launcher")
	}

	lockPath := cfg.LockFilePath()
	return &Daemon{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		launcher: l,
		logPath:  filepath.Join(cfg.Paths.LogDir, logging.LogFileName),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the daemon lock and brings up the launcher.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	if err := d.cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another trebuchet daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.launcher.Start(runCtx); err != nil {
		_ = d.lock.Unlock()
		cancel()
		return fmt.Errorf("start launcher: %w", err)
	}

	d.cancel = cancel
	d.startedAt = time.Now().UTC()
	d.running.Store(true)
	d.logger.Info("trebuchet daemon started",
		logging.String("lock", d.lockPath),
		logging.String(logging.FieldSocket, d.cfg.Paths.Socket))
	return nil
}

// Stop shuts down the launcher and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.launcher.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("trebuchet daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// History returns the newest recorded runs.
func (d *Daemon) History(ctx context.Context, limit int) ([]*history.Run, error) {
	if d.store == nil {
		return nil, errors.New("run history is disabled")
	}
	return d.store.Recent(ctx, limit)
}

// PruneHistory trims the run history to the newest keep records.
func (d *Daemon) PruneHistory(ctx context.Context, keep int) (int64, error) {
	if d.store == nil {
		return 0, errors.New("run history is disabled")
	}
	return d.store.Prune(ctx, keep)
}

// LogPath returns the path to the daemon log file.
func (d *Daemon) LogPath() string {
	return d.logPath
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	status := Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		StartedAt:    d.startedAt,
		SocketPath:   d.cfg.Paths.Socket,
		ControlPath:  config.ControlSocketPath(d.cfg.Paths.Socket),
		LockFilePath: d.lockPath,
		Workers:      d.cfg.Worker.Count,
		ActiveRuns:   d.launcher.Active(),
		TotalRuns:    d.launcher.Total(),
	}
	if d.store != nil {
		status.HistoryDBPath = d.store.Path()
		if stats, err := d.store.Stats(ctx); err == nil {
			status.RunStats = stats
		} else {
			d.logger.Warn("failed to read run stats", logging.Error(err))
		}
	}
	return status
}
