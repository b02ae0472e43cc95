package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/stackgate/stackctl/internal/run"
	"github.com/stackgate/stackctl/internal/stage"
)

// StageError reports a stage that concluded in failure.
type StageError struct {
	// Stage is the pipeline stage that failed.
	Stage stage.Name
	// ExitCode is the command exit code, or -1 when no process exited.
	ExitCode int
	// Summary is the last output line or a short description of the failure.
	Summary string
}

func (e *StageError) Error() string {
	if e.Summary != "" {
		return fmt.Sprintf("%s stage failed (exit %d): %s", e.Stage, e.ExitCode, e.Summary)
	}
	return fmt.Sprintf("%s stage failed (exit %d)", e.Stage, e.ExitCode)
}

// IsStageError reports whether err wraps a StageError.
func IsStageError(err error) bool {
	var target *StageError
	return errors.As(err, &target)
}

// Outcome is the terminal report of one run.
type Outcome struct {
	// RunID identifies the run in journals, notifications and CI output.
	RunID string
	// Environment is the resolved target environment name.
	Environment string
	// Action is the requested effect.
	Action run.Action
	// Region is the effective region the run targeted.
	Region string
	// Status is the terminal run status.
	Status run.Status
	// Mutation reports whether any resources were touched. Never ambiguous:
	// "none" is reported for plan-only runs and for failures before execute.
	Mutation run.Mutation
	// Results lists every stage in order, including skipped ones.
	Results []stage.Result
	// ArtifactPath is the plan artifact recorded by this run, when any.
	ArtifactPath string
	// Started and Finished bound the run in wall-clock time.
	Started  time.Time
	Finished time.Time
}

// Summary renders the one-line human-readable report for the run.
func (o Outcome) Summary() string {
	return fmt.Sprintf("run %s: %s %s -> %s (%s)",
		o.RunID, o.Action, o.Environment, o.Status, o.Mutation.Report())
}
