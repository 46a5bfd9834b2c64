package history

import "time"

// Status represents the lifecycle of a recorded run.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusRejected  Status = "rejected"
)

// Run captures one forwarded launch request and its outcome.
type Run struct {
	ID           int64
	RunID        string
	Dir          string
	Args         []string
	Status       Status
	ExitCode     int
	ErrorMessage string
	BytesOut     int64
	StartedAt    time.Time
	FinishedAt   *time.Time
}

// Finished reports whether the run has reached a terminal status.
func (r *Run) Finished() bool {
	return r != nil && r.Status != StatusRunning
}
