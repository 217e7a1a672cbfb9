package executor

import (
	"context"
	"time"
)

// JobState represents where a job is in its orchestration pass
type JobState string

const (
	StateReceived     JobState = "received"
	StateQueued       JobState = "queued"
	StateStaged       JobState = "staged"
	StateCommandBuilt JobState = "command_built"
	StateExecuting    JobState = "executing"
	StateSucceeded    JobState = "succeeded"
	StateFailed       JobState = "failed"
	StateCleaned      JobState = "cleaned"
)

// ExecutionJob represents one code execution request
type ExecutionJob struct {
	ID        string
	Language  string
	Code      string
	Stdin     string
	CreatedAt time.Time
}

// Result contains the output of code execution
type Result struct {
	Output        string
	Truncated     bool
	Error         error
	ExecutionTime time.Duration
}

// JobHandler runs one job from start to cleanup.
type JobHandler interface {
	Execute(ctx context.Context, job ExecutionJob) Result
}

// JobHandlerFunc adapts a function to JobHandler.
type JobHandlerFunc func(ctx context.Context, job ExecutionJob) Result

func (f JobHandlerFunc) Execute(ctx context.Context, job ExecutionJob) Result {
	return f(ctx, job)
}
