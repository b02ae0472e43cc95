// Package run defines the value types that describe a single orchestrated change run.
package run

import (
	"crypto/rand"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/stackgate/stackctl/internal/env"
)

// Action identifies the requested effect of a run.
type Action string

const (
	// ActionPlan computes a change plan without touching resources.
	ActionPlan Action = "plan"
	// ActionApply applies a previously computed change plan.
	ActionApply Action = "apply"
	// ActionDestroy tears down managed resources via a destroy-mode plan.
	ActionDestroy Action = "destroy"
)

// ParseAction converts a textual action into an Action value.
func ParseAction(value string) (Action, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "plan":
		return ActionPlan, nil
	case "apply":
		return ActionApply, nil
	case "destroy":
		return ActionDestroy, nil
	default:
		return "", fmt.Errorf("unknown action %q, expected plan, apply or destroy", value)
	}
}

// Mutating reports whether the action changes managed resources.
func (a Action) Mutating() bool {
	return a == ActionApply || a == ActionDestroy
}

// Destructive reports whether the action tears resources down.
func (a Action) Destructive() bool {
	return a == ActionDestroy
}

// Request describes one immutable orchestration request.
// It is fixed when the run starts and never mutated afterwards.
type Request struct {
	// Environment is the target environment name (e.g. dev, stg, prod).
	Environment string
	// Action is the requested effect.
	Action Action
	// Region is the target region forwarded to the infrastructure tool.
	Region string
	// Vars are ad-hoc tool variables forwarded to the plan invocation.
	Vars env.Vars
	// Timestamp is the unix second at which the run was requested.
	Timestamp int64
}

// NewRequest builds a Request stamped with the given wall-clock time.
func NewRequest(environment string, action Action, region string, now time.Time) Request {
	return Request{
		Environment: environment,
		Action:      action,
		Region:      region,
		Timestamp:   now.Unix(),
	}
}

// Status is the terminal state of a run.
type Status string

const (
	// StatusCompleted means every active stage finished successfully.
	StatusCompleted Status = "completed"
	// StatusFailed means a stage failed or an approval was denied.
	StatusFailed Status = "failed"
	// StatusApprovalTimeout means an approval gate elapsed without a response.
	StatusApprovalTimeout Status = "approval_timeout"
	// StatusCheckoutFailed means the definitions checkout never produced a workspace.
	StatusCheckoutFailed Status = "checkout_failed"
)

// ExitCode maps a terminal status to the process exit code reported by the CLI.
func (s Status) ExitCode() int {
	switch s {
	case StatusCompleted:
		return 0
	case StatusApprovalTimeout:
		return 2
	case StatusCheckoutFailed:
		return 3
	default:
		return 1
	}
}

// Mutation reports whether a run changed managed resources.
// The distinction between "nothing changed" and "changes were made"
// must stay unambiguous in logs and exit reporting.
type Mutation string

const (
	// MutationNone means no resource was touched (plan-only, or failure before execute).
	MutationNone Mutation = "none"
	// MutationApplied means an apply run executed its plan to completion.
	MutationApplied Mutation = "applied"
	// MutationDestroyed means a destroy run executed its plan to completion.
	MutationDestroyed Mutation = "destroyed"
	// MutationPartial means the execute stage started but did not finish cleanly.
	MutationPartial Mutation = "partial"
)

// Report renders the human-readable mutation line for summaries.
func (m Mutation) Report() string {
	switch m {
	case MutationApplied:
		return "changes applied"
	case MutationDestroyed:
		return "resources destroyed"
	case MutationPartial:
		return "execution failed partway; resources may have changed"
	default:
		return "no changes made"
	}
}

// NewID mints a ULID identifying a single run.
func NewID(now time.Time) string {
	entropy := ulid.Monotonic(rand.Reader, 0)
	return ulid.MustNew(ulid.Timestamp(now.UTC()), entropy).String()
}
