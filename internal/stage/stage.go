// Package stage executes the shell-outable units of work that make up a run.
package stage

import (
	"time"

	"github.com/stackgate/stackctl/internal/env"
)

// Name identifies a pipeline stage.
type Name string

const (
	// Checkout fetches the infrastructure definitions into a workspace.
	Checkout Name = "checkout"
	// Init initializes the infrastructure tool in the workspace.
	Init Name = "init"
	// Validate checks the definitions without computing a plan.
	Validate Name = "validate"
	// Plan computes a change plan into a named artifact.
	Plan Name = "plan"
	// Test runs the tool's test suite against the definitions.
	Test Name = "test"
	// Approval is the human confirmation checkpoint for mutating actions.
	Approval Name = "approval"
	// Execute applies or destroys using the recorded plan artifact.
	Execute Name = "execute"
)

// Command describes one external invocation executed on behalf of a stage.
type Command struct {
	// Stage is the pipeline stage this command belongs to.
	Stage Name
	// Argv is the binary and its arguments.
	Argv []string
	// Dir is the working directory for the invocation.
	Dir string
	// Env holds extra variables visible only to this invocation.
	Env env.Vars
	// Timeout bounds the invocation; zero leaves only the caller's context.
	Timeout time.Duration
}

// Status describes how a stage concluded.
type Status string

const (
	// StatusSuccess means the stage command exited zero.
	StatusSuccess Status = "success"
	// StatusFailure means the stage command exited non-zero or never ran cleanly.
	StatusFailure Status = "failure"
	// StatusSkipped means the stage was not active for the requested action.
	StatusSkipped Status = "skipped"
)

// Result captures the outcome of one stage invocation.
// It records exit status and output size/summary only; tool output is
// never interpreted.
type Result struct {
	// Stage is the pipeline stage the result belongs to.
	Stage Name
	// Status is the stage conclusion.
	Status Status
	// ExitCode is the process exit code, or -1 when the process never exited.
	ExitCode int
	// Duration is the wall-clock time the invocation took.
	Duration time.Duration
	// OutputBytes is the total combined output size.
	OutputBytes int64
	// Summary is the last non-empty output line, for diagnostics.
	Summary string
}

// Skipped builds the Result recorded for a stage that was not active.
func Skipped(name Name) Result {
	return Result{Stage: name, Status: StatusSkipped}
}
