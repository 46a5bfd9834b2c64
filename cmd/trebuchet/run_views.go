package main

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"trebuchet/internal/ipc"
)

// runStatusOrder pins lifecycle statuses to a stable display order; statuses
// outside the set sort alphabetically after them.
var runStatusOrder = []string{"running", "completed", "failed", "rejected"}

func buildRunStatsRows(stats map[string]int) [][]string {
	if len(stats) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(runStatusOrder))
	rows := make([][]string, 0, len(stats))
	for _, key := range runStatusOrder {
		seen[key] = true
		if count, ok := stats[key]; ok {
			rows = append(rows, []string{formatStatusLabel(key), fmt.Sprintf("%d", count)})
		}
	}
	extras := make([]string, 0)
	for key := range stats {
		if !seen[key] {
			extras = append(extras, key)
		}
	}
	sort.Strings(extras)
	for _, key := range extras {
		rows = append(rows, []string{formatStatusLabel(key), fmt.Sprintf("%d", stats[key])})
	}
	return rows
}

func buildRunRows(runs []ipc.RunRecord) [][]string {
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		rows = append(rows, []string{
			formatRunID(run.RunID),
			formatStatusLabel(run.Status),
			fmt.Sprintf("%d", run.ExitCode),
			formatDisplayTime(run.StartedAt),
			formatRunDuration(run),
			run.Dir,
			strings.Join(run.Args, " "),
		})
	}
	return rows
}

func formatStatusLabel(status string) string {
	status = strings.TrimSpace(status)
	if status == "" {
		return ""
	}
	parts := strings.Split(status, "_")
	for i, part := range parts {
		lower := strings.ToLower(part)
		if lower == "" {
			continue
		}
		parts[i] = strings.ToUpper(lower[:1]) + lower[1:]
	}
	return strings.Join(parts, " ")
}

func formatRunID(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "-"
	}
	if len(value) > 8 {
		return value[:8]
	}
	return value
}

func formatDisplayTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02 15:04:05")
}

func formatRunDuration(run ipc.RunRecord) string {
	if run.FinishedAt == nil || run.StartedAt.IsZero() {
		return "-"
	}
	d := run.FinishedAt.Sub(run.StartedAt)
	if d < 0 {
		d = 0
	}
	return d.Round(time.Millisecond).String()
}
