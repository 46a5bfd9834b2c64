package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"trebuchet/internal/history"
	"trebuchet/internal/ipc"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOut bool

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "List recent launch requests",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withHistory(func(client *ipc.Client, store *history.Store) error {
				var records []ipc.RunRecord
				if client != nil {
					resp, err := client.History(limit)
					if err != nil {
						return err
					}
					records = resp.Runs
				} else {
					runs, err := store.Recent(cmd.Context(), limit)
					if err != nil {
						return err
					}
					records = make([]ipc.RunRecord, 0, len(runs))
					for _, run := range runs {
						if run == nil {
							continue
						}
						records = append(records, ipc.NewRunRecord(run))
					}
				}

				if jsonOut {
					return writeJSON(cmd, map[string]any{"runs": records})
				}
				stdout := cmd.OutOrStdout()
				if len(records) == 0 {
					fmt.Fprintln(stdout, "No runs recorded")
					return nil
				}
				table := renderTable(
					[]string{"Run", "Status", "Exit", "Started", "Duration", "Directory", "Command"},
					buildRunRows(records),
					[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignRight, alignLeft, alignLeft},
				)
				fmt.Fprintln(stdout, table)
				return nil
			})
		},
	}

	historyCmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs to show")
	historyCmd.Flags().BoolVar(&jsonOut, "json", false, "Emit history as JSON")

	historyCmd.AddCommand(newHistoryPruneCommand(ctx))

	return historyCmd
}

func newHistoryPruneCommand(ctx *commandContext) *cobra.Command {
	var keep int

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Trim run history to the newest records",
		RunE: func(cmd *cobra.Command, args []string) error {
			if keep < 0 {
				return fmt.Errorf("--keep must be zero or positive, got %d", keep)
			}
			return ctx.withHistory(func(client *ipc.Client, store *history.Store) error {
				var removed int64
				if client != nil {
					resp, err := client.Prune(keep)
					if err != nil {
						return err
					}
					removed = resp.Removed
				} else {
					pruned, err := store.Prune(cmd.Context(), keep)
					if err != nil {
						return err
					}
					removed = pruned
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d run records\n", removed)
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&keep, "keep", 0, "Number of newest records to keep")
	_ = cmd.MarkFlagRequired("keep")
	return cmd
}
