// Package store persists the status history of runner jobs.
package store

import (
	"context"
	"time"
)

// RunState is the coarse state of a recorded run.
type RunState string

const (
	RunRunning   RunState = "RUNNING"
	RunSucceeded RunState = "SUCCEEDED"
	RunFailed    RunState = "FAILED"
)

// IsTerminal reports whether the run has finished.
func (s RunState) IsTerminal() bool {
	return s == RunSucceeded || s == RunFailed
}

// Run is one execution of a workflow, keyed by the host run id.
type Run struct {
	ID          string     `json:"id"`
	WorkflowID  string     `json:"workflow_id"`
	JobID       string     `json:"job_id,omitempty"`
	State       RunState   `json:"state"`
	Progress    int        `json:"progress"`
	Message     string     `json:"message"`
	Error       string     `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// StatusEvent is one progress report of a run.
type StatusEvent struct {
	ID        int64     `json:"id"`
	RunID     string    `json:"run_id"`
	Progress  int       `json:"progress"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// ListOptions configures list queries with pagination and filtering.
type ListOptions struct {
	Limit      int
	Offset     int
	State      string // Optional state filter
	WorkflowID string // Optional workflow filter
}

// DefaultListOptions returns sensible defaults.
func DefaultListOptions() ListOptions {
	return ListOptions{Limit: 20, Offset: 0}
}

// Clamp enforces limits (max 100, min 1).
func (o *ListOptions) Clamp() {
	if o.Limit <= 0 {
		o.Limit = 20
	}
	if o.Limit > 100 {
		o.Limit = 100
	}
	if o.Offset < 0 {
		o.Offset = 0
	}
}

// Store defines the persistence layer for run status.
type Store interface {
	CreateRun(ctx context.Context, run *Run) error
	GetRun(ctx context.Context, id string) (*Run, error)
	ListRuns(ctx context.Context, opts ListOptions) ([]*Run, int, error)
	FinishRun(ctx context.Context, id string, state RunState, errMsg string) error

	// host.StatusSink
	AppendStatus(ctx context.Context, runID string, progress int, message string) error
	SetRunJob(ctx context.Context, runID, jobID string) error
	ListStatus(ctx context.Context, runID string) ([]*StatusEvent, error)

	// Lifecycle
	Close() error
	Migrate(ctx context.Context) error
}
