package launcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"trebuchet/internal/config"
	"trebuchet/internal/history"
	"trebuchet/internal/logging"
	"trebuchet/internal/wire"
)

// requestReadTimeout bounds how long a connected client may wait before
// sending its request. A client that never sends must not pin an accept
// worker forever.
const requestReadTimeout = 30 * time.Second

// Launcher accepts launch requests and executes them through a Runner.
type Launcher struct {
	cfg    *config.Config
	store  *history.Store
	logger *slog.Logger
	runner Runner

	mu       sync.Mutex
	running  bool
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	listener net.Listener

	active atomic.Int64
	total  atomic.Int64
}

// Option configures optional Launcher behavior.
type Option func(*Launcher)

// WithRunner overrides the command runner (used in tests).
func WithRunner(r Runner) Option {
	return func(l *Launcher) {
		l.runner = r
	}
}

// New constructs a launcher. The history store may be nil when run recording
// is disabled.
func New(cfg *config.Config, store *history.Store, logger *slog.Logger, opts ...Option) *Launcher {
	if logger == nil {
		logger = logging.NewNop()
	}
	l := &Launcher{
		cfg:    cfg,
		store:  store,
		logger: logger.With(logging.String(logging.FieldComponent, "launcher")),
		runner: NewExecRunner(cfg),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Start binds the launch socket and begins accepting requests.
func (l *Launcher) Start(ctx context.Context) error {
	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		return errors.New("launcher already running")
	}

	if err := l.cfg.EnsureDirectories(); err != nil {
		l.mu.Unlock()
		return fmt.Errorf("ensure directories: %w", err)
	}

	socketPath := l.cfg.Paths.Socket
	if err := clearStaleSocket(socketPath); err != nil {
		l.mu.Unlock()
		return err
	}

	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		l.mu.Unlock()
		return fmt.Errorf("listen on launch socket: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	l.listener = listener
	l.cancel = cancel
	l.running = true

	workers := l.cfg.Worker.Count
	if workers < 1 {
		workers = 1
	}
	l.wg.Add(workers)
	l.mu.Unlock()

	for i := 0; i < workers; i++ {
		go l.acceptLoop(runCtx, listener, i)
	}

	l.logger.Info("launcher listening",
		logging.String(logging.FieldSocket, socketPath),
		logging.Int("workers", workers))
	return nil
}

// Stop terminates the accept pool, cancels in-flight runs, and removes the
// socket file.
func (l *Launcher) Stop() {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return
	}
	cancel := l.cancel
	listener := l.listener
	socketPath := l.cfg.Paths.Socket
	l.running = false
	l.cancel = nil
	l.listener = nil
	l.mu.Unlock()

	cancel()
	if listener != nil {
		_ = listener.Close()
	}
	l.wg.Wait()

	if err := os.Remove(socketPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		l.logger.Warn("failed to remove launch socket",
			logging.String(logging.FieldSocket, socketPath),
			logging.Error(err))
	}
}

// Running reports whether the accept pool is live.
func (l *Launcher) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running
}

// Active returns the number of requests currently being handled.
func (l *Launcher) Active() int64 {
	return l.active.Load()
}

// Total returns the number of requests received since start.
func (l *Launcher) Total() int64 {
	return l.total.Load()
}

func (l *Launcher) acceptLoop(ctx context.Context, listener net.Listener, worker int) {
	defer l.wg.Done()
	logger := l.logger.With(logging.Int("worker", worker))

	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			logger.Warn("accept failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check socket permissions"))
			continue
		}
		l.handleConn(ctx, conn, logger)
	}
}

func (l *Launcher) handleConn(ctx context.Context, conn net.Conn, logger *slog.Logger) {
	defer conn.Close()

	l.total.Add(1)
	l.active.Add(1)
	defer l.active.Add(-1)

	limit := l.cfg.Limits.MaxRequestBytes
	if limit <= 0 {
		limit = wire.DefaultMaxRequest
	}

	_ = conn.SetReadDeadline(time.Now().Add(requestReadTimeout))
	buf := make([]byte, limit)
	n, err := conn.Read(buf)
	if err != nil && n == 0 {
		if errors.Is(err, io.EOF) {
			logger.Debug("client closed without sending a request")
			return
		}
		logger.Warn("read request failed", logging.Error(err))
		return
	}
	_ = conn.SetReadDeadline(time.Time{})
	raw := buf[:n]

	runID := uuid.NewString()
	logger = logger.With(logging.String(logging.FieldRunID, runID))

	req, err := wire.Decode(raw)
	if err != nil {
		l.reject(ctx, conn, logger, runID, "", nil, fmt.Sprintf("decode request: %v", err), raw)
		return
	}
	if len(req.Args) < 2 || req.Args[0] != "-m" {
		l.reject(ctx, conn, logger, runID, req.Dir, req.Args, "first argument must be -m followed by a module", raw)
		return
	}

	l.execute(ctx, conn, logger, runID, req)
}

func (l *Launcher) reject(ctx context.Context, conn net.Conn, logger *slog.Logger, runID, dir string, args []string, reason string, raw []byte) {
	logger.Warn("rejected launch request",
		logging.String("reason", reason),
		logging.Int("request_bytes", len(raw)))

	if l.store != nil {
		if _, err := l.store.Reject(ctx, runID, dir, args, reason); err != nil {
			logger.Error("record rejected run", logging.Error(err))
		}
	}

	if _, err := fmt.Fprintf(conn, "Cannot handle %s\n", raw); err != nil {
		logger.Debug("write reject reply", logging.Error(err))
	}
}

func (l *Launcher) execute(parent context.Context, conn net.Conn, logger *slog.Logger, runID string, req wire.Request) {
	logger.Info("launch started",
		logging.String("dir", req.Dir),
		logging.String("module", req.Args[1]),
		logging.Int("arg_count", len(req.Args)))

	if l.store != nil {
		if _, err := l.store.Begin(parent, runID, req.Dir, req.Args); err != nil {
			logger.Error("record run start", logging.Error(err))
		}
	}

	var (
		runCtx context.Context
		cancel context.CancelFunc
	)
	if timeout := l.cfg.Worker.RunTimeout; timeout > 0 {
		runCtx, cancel = context.WithTimeout(parent, time.Duration(timeout)*time.Second)
	} else {
		runCtx, cancel = context.WithCancel(parent)
	}
	defer cancel()

	out := &clientWriter{conn: conn, cancel: cancel}
	exitCode, runErr := l.runner.Run(runCtx, RunSpec{Dir: req.Dir, Args: req.Args, Output: out})

	var errMsg string
	switch {
	case out.Err() != nil:
		errMsg = fmt.Sprintf("write to client: %v", out.Err())
	case runErr != nil:
		errMsg = runErr.Error()
		_, _ = fmt.Fprintf(out, "%v\n", runErr)
	case runCtx.Err() != nil:
		errMsg = fmt.Sprintf("run aborted: %v", runCtx.Err())
	}

	bytesOut := out.Count()

	if l.store != nil {
		// Record the outcome even when the daemon itself is shutting down.
		if err := l.store.Complete(context.WithoutCancel(parent), runID, exitCode, bytesOut, errMsg); err != nil {
			logger.Error("record run completion", logging.Error(err))
		}
	}

	if errMsg != "" {
		logger.Warn("launch finished with errors",
			logging.Int("exit_code", exitCode),
			logging.Int64("bytes_out", bytesOut),
			logging.String("error", errMsg))
		return
	}
	logger.Info("launch completed",
		logging.Int("exit_code", exitCode),
		logging.Int64("bytes_out", bytesOut))
}

// clearStaleSocket removes a socket file left behind by a previous daemon. A
// path with a live listener belongs to someone else and is an error.
func clearStaleSocket(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("stat launch socket: %w", err)
	}

	conn, err := net.DialTimeout("unix", path, time.Second)
	if err == nil {
		conn.Close()
		return fmt.Errorf("launch socket %s is already in use", path)
	}

	if err := os.Remove(path); err != nil {
		return fmt.Errorf("remove stale launch socket: %w", err)
	}
	return nil
}

// clientWriter streams run output back to the requesting client. The first
// write failure cancels the run so dead clients do not leak processes.
type clientWriter struct {
	conn   net.Conn
	cancel context.CancelFunc

	mu    sync.Mutex
	count int64
	err   error
}

func (w *clientWriter) Write(p []byte) (int, error) {
	n, err := w.conn.Write(p)
	w.mu.Lock()
	w.count += int64(n)
	if err != nil && w.err == nil {
		w.err = err
	}
	w.mu.Unlock()
	if err != nil {
		w.cancel()
	}
	return n, err
}

func (w *clientWriter) Count() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.count
}

func (w *clientWriter) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}
