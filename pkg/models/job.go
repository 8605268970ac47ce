package models

import "time"

// JobStatus is the lifecycle state of one generation run.
type JobStatus string

const (
	JobPending      JobStatus = "pending"
	JobInitializing JobStatus = "initializing"
	JobRunning      JobStatus = "running"
	JobCompleted    JobStatus = "completed"
	JobFailed       JobStatus = "failed"
	JobCancelled    JobStatus = "cancelled"
)

// Terminal reports whether no further transitions are possible.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed || s == JobCancelled
}

// rank orders the forward path of the state machine. Terminal states share
// the highest rank so a stale non-terminal update can never regress them.
func (s JobStatus) rank() int {
	switch s {
	case JobPending:
		return 0
	case JobInitializing:
		return 1
	case JobRunning:
		return 2
	case JobCompleted, JobFailed, JobCancelled:
		return 3
	}
	return -1
}

// CanTransition reports whether moving from s to next is a legal forward
// step. Cancellation is allowed from any non-terminal state.
func (s JobStatus) CanTransition(next JobStatus) bool {
	if s.Terminal() {
		return false
	}
	if next == JobCancelled {
		return true
	}
	return next.rank() > s.rank()
}

// Job is the tracked state of one generation run.
type Job struct {
	ID        string    `json:"id"`
	Status    JobStatus `json:"status"`
	Progress  int       `json:"progress"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// StatusUpdate is one message on a job's status channel. Every field is
// optional; absent fields leave the tracked state untouched.
type StatusUpdate struct {
	Status   *JobStatus `json:"status,omitempty"`
	Progress *int       `json:"progress,omitempty"`
	Error    string     `json:"error,omitempty"`
}

// JSONResult is the structured result document fetched for json-format jobs.
type JSONResult struct {
	JobName   string                      `json:"job_name"`
	RowsCount int                         `json:"rows_count"`
	Tables    map[string][]map[string]any `json:"tables"`
}
