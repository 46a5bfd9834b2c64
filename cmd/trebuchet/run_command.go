package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"trebuchet/internal/config"
	"trebuchet/internal/relay"
	"trebuchet/internal/wire"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var dirFlag string

	cmd := &cobra.Command{
		Use:   "run -- -m <module> [args...]",
		Short: "Send a launch request to the daemon and relay its output",
		Long: `Send a launch request to the daemon and stream the combined output back.

Arguments after -- are forwarded verbatim to the worker interpreter, so the
usual invocation mirrors the interpreter's own: trebuchet run -- -m tool.noop --flag value`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			dir := strings.TrimSpace(dirFlag)
			if dir == "" {
				wd, wdErr := os.Getwd()
				if wdErr != nil {
					return fmt.Errorf("determine working directory: %w", wdErr)
				}
				dir = wd
			} else {
				expanded, expandErr := config.ExpandPath(dir)
				if expandErr != nil {
					return expandErr
				}
				dir = expanded
			}

			socket := ctx.socketPath()
			req := wire.Request{Dir: dir, Args: args}
			if err := relay.Run(socket, req, cfg.Limits.MaxRequestBytes, cmd.OutOrStdout()); err != nil {
				if isDaemonUnreachable(err) {
					return wrapDialError(err, socket)
				}
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dirFlag, "dir", "", "Working directory for the run (defaults to the current directory)")
	return cmd
}
