package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"trebuchet/internal/config"
	"trebuchet/internal/wire"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// The result is fully resolved the way Load would leave it, without touching
// the caller's home directory or environment.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.Socket = filepath.Join(base, "launch.sock")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Worker.Count = 2
	cfgVal.Limits.MaxRequestBytes = wire.DefaultMaxRequest

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

// WithWorkerCount overrides the accept pool size on the test config.
func WithWorkerCount(count int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Worker.Count = count
	}
}

// WithRunTimeout sets the per-run wall clock limit in seconds.
func WithRunTimeout(seconds int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Worker.RunTimeout = seconds
	}
}

// WithHistoryDisabled turns off run history recording.
func WithHistoryDisabled() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.History.Enabled = false
	}
}

// WithWorkerScript writes an executable shell script into the test base
// directory and points worker.command at it. The forwarded request arguments
// arrive as the script's positional parameters.
func WithWorkerScript(body string) ConfigOption {
	return func(b *configBuilder) {
		scriptPath := filepath.Join(b.baseDir, "worker.sh")
		if err := os.WriteFile(scriptPath, []byte(body), 0o755); err != nil {
			b.t.Fatalf("write worker script: %v", err)
		}
		b.cfg.Worker.Command = scriptPath
		b.cfg.Worker.ExtraArgs = nil
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.LogDir)
}
