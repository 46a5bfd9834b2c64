package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"trebuchet/internal/ipc"
	"trebuchet/internal/logging"
	"trebuchet/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var follow bool
	var lines int

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Display daemon logs",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ipc.Dial(ctx.controlPath())
			if err != nil {
				if !isDaemonUnreachable(err) {
					return wrapDialError(err, ctx.controlPath())
				}
				// The daemon is down but its log file is local, so read it
				// directly instead of failing.
				return tailLogFile(cmd, ctx, lines, follow)
			}
			defer client.Close()
			return streamDaemonLogs(cmd, client, lines, follow)
		},
	}

	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Follow log output")
	cmd.Flags().IntVarP(&lines, "lines", "n", 10, "Number of lines to show (0 for all)")
	return cmd
}

// streamDaemonLogs pulls log lines over the control socket, printing batches
// until the context is canceled or, without --follow, after the first pass.
func streamDaemonLogs(cmd *cobra.Command, client *ipc.Client, lines int, follow bool) error {
	offset, limit := initialTailWindow(lines)
	printed := false

	for {
		resp, err := client.LogTail(ipc.LogTailRequest{
			Offset:     offset,
			Limit:      limit,
			Follow:     follow,
			WaitMillis: 1000,
		})
		if err != nil {
			return fmt.Errorf("tail logs: %w", err)
		}
		for _, line := range resp.Lines {
			fmt.Fprintln(cmd.OutOrStdout(), line)
			printed = true
		}
		offset = resp.Offset
		limit = 0
		if !follow {
			if !printed {
				fmt.Fprintln(cmd.OutOrStdout(), "No log entries available")
			}
			return nil
		}
		select {
		case <-cmd.Context().Done():
			return nil
		default:
		}
	}
}

// tailLogFile reads the log pointer file straight from disk. Used when no
// daemon is reachable on the control socket.
func tailLogFile(cmd *cobra.Command, ctx *commandContext, lines int, follow bool) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	path := filepath.Join(cfg.Paths.LogDir, logging.LogFileName)

	offset, limit := initialTailWindow(lines)
	printed := false

	for {
		result, err := logs.Tail(cmd.Context(), path, logs.TailOptions{
			Offset: offset,
			Limit:  limit,
			Follow: follow,
			Wait:   time.Second,
		})
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("tail log file: %w", err)
		}
		for _, line := range result.Lines {
			fmt.Fprintln(cmd.OutOrStdout(), line)
			printed = true
		}
		offset = result.Offset
		limit = 0
		if !follow {
			if !printed {
				fmt.Fprintln(cmd.OutOrStdout(), "No log entries available")
			}
			return nil
		}
		select {
		case <-cmd.Context().Done():
			return nil
		default:
		}
	}
}

// initialTailWindow maps the --lines flag onto tail parameters: a positive
// count tails that many lines from the end, zero replays the whole file.
func initialTailWindow(lines int) (offset int64, limit int) {
	limit = lines
	if limit < 0 {
		limit = 0
	}
	offset = -1
	if limit == 0 {
		offset = 0
	}
	return offset, limit
}
