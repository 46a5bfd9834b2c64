package launcher

import (
	"context"
	"errors"
	"io"
	"os/exec"

	"trebuchet/internal/config"
)

// RunSpec describes one launch forwarded by a client.
type RunSpec struct {
	Dir    string
	Args   []string
	Output io.Writer
}

// Runner executes launch requests. Implementations report the process exit
// code; the error return is reserved for failures to run at all.
type Runner interface {
	Run(ctx context.Context, spec RunSpec) (int, error)
}

type execRunner struct {
	command   string
	extraArgs []string
}

// NewExecRunner builds the default Runner from the worker configuration.
func NewExecRunner(cfg *config.Config) Runner {
	return &execRunner{
		command:   cfg.Worker.Command,
		extraArgs: append([]string(nil), cfg.Worker.ExtraArgs...),
	}
}

func (r *execRunner) Run(ctx context.Context, spec RunSpec) (int, error) {
	argv := make([]string, 0, len(r.extraArgs)+len(spec.Args))
	argv = append(argv, r.extraArgs...)
	argv = append(argv, spec.Args...)

	cmd := exec.CommandContext(ctx, r.command, argv...) //nolint:gosec
	cmd.Dir = spec.Dir
	cmd.Stdout = spec.Output
	cmd.Stderr = spec.Output

	err := cmd.Run()
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return -1, err
}
