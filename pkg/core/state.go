package core

import "time"

// RunStore records pipeline runs and the outcome of each stage.
type RunStore interface {
	Open(path string) error
	Close() error
	InitSchema() error

	// Run operations
	CreateRun(config string) (*Run, error)
	GetRun(id string) (*Run, error)
	CompleteRun(id string, status RunStatus, errMsg string) error
	ListRuns(limit int) ([]*Run, error)

	// Stage run operations
	RecordStageRun(stageRun *StageRun) error
	UpdateStageRun(id string, status StageRunStatus, rows int64, errMsg string, executionMS int64) error
	GetStageRunsForRun(runID string) ([]*StageRun, error)
}

// RunStatus represents the status of a pipeline run.
type RunStatus string

// RunStatus values.
const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// Run represents a single execution of an aggregation pipeline.
type Run struct {
	ID          string
	Config      string
	Status      RunStatus
	StartedAt   time.Time
	CompletedAt *time.Time
	Error       string
}

// StageRunStatus represents the status of a single stage execution.
type StageRunStatus string

// StageRunStatus values.
const (
	StageRunStatusPending StageRunStatus = "pending"
	StageRunStatusRunning StageRunStatus = "running"
	StageRunStatusSuccess StageRunStatus = "success"
	StageRunStatusFailed  StageRunStatus = "failed"
	StageRunStatusSkipped StageRunStatus = "skipped"
)

// StageRun represents the execution of one stage within a run.
type StageRun struct {
	ID          string
	RunID       string
	Stage       string
	Kind        string
	Status      StageRunStatus
	Rows        int64
	Error       string
	StartedAt   time.Time
	CompletedAt *time.Time
	ExecutionMS int64
}
