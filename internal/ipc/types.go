package ipc

import (
	"time"

	"trebuchet/internal/history"
)

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// StatusResponse represents daemon runtime information.
type StatusResponse struct {
	Running       bool           `json:"running"`
	PID           int            `json:"pid"`
	StartedAt     time.Time      `json:"started_at"`
	SocketPath    string         `json:"socket_path"`
	ControlPath   string         `json:"control_path"`
	LockPath      string         `json:"lock_path"`
	HistoryDBPath string         `json:"history_db_path"`
	LogPath       string         `json:"log_path"`
	Workers       int            `json:"workers"`
	ActiveRuns    int64          `json:"active_runs"`
	TotalRuns     int64          `json:"total_runs"`
	RunStats      map[string]int `json:"run_stats"`
}

// HistoryRequest lists recent runs, newest first.
type HistoryRequest struct {
	Limit int `json:"limit"`
}

// HistoryResponse contains recent run records.
type HistoryResponse struct {
	Runs []RunRecord `json:"runs"`
}

// RunRecord mirrors a stored run for control-plane callers.
type RunRecord struct {
	RunID        string     `json:"run_id"`
	Dir          string     `json:"dir"`
	Args         []string   `json:"args"`
	Status       string     `json:"status"`
	ExitCode     int        `json:"exit_code"`
	ErrorMessage string     `json:"error_message,omitempty"`
	BytesOut     int64      `json:"bytes_out"`
	StartedAt    time.Time  `json:"started_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
}

// NewRunRecord converts a stored run into its wire representation.
func NewRunRecord(run *history.Run) RunRecord {
	return RunRecord{
		RunID:        run.RunID,
		Dir:          run.Dir,
		Args:         run.Args,
		Status:       string(run.Status),
		ExitCode:     run.ExitCode,
		ErrorMessage: run.ErrorMessage,
		BytesOut:     run.BytesOut,
		StartedAt:    run.StartedAt,
		FinishedAt:   run.FinishedAt,
	}
}

// LogTailRequest fetches daemon log lines based on offset and follow
// semantics. A negative Offset requests the last Limit lines.
type LogTailRequest struct {
	Offset     int64 `json:"offset"`
	Limit      int   `json:"limit"`
	Follow     bool  `json:"follow"`
	WaitMillis int   `json:"wait_millis"`
}

// LogTailResponse returns log lines and the offset for the next call.
type LogTailResponse struct {
	Lines  []string `json:"lines"`
	Offset int64    `json:"offset"`
}

// PruneRequest trims run history to the newest keep records.
type PruneRequest struct {
	Keep int `json:"keep"`
}

// PruneResponse reports the number of removed records.
type PruneResponse struct {
	Removed int64 `json:"removed"`
}

// StopRequest stops the launcher and releases the daemon lock.
type StopRequest struct{}

// StopResponse indicates stop result.
type StopResponse struct {
	Stopped bool `json:"stopped"`
}
