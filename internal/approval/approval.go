// Package approval implements the time-bounded human confirmation gates
// required before mutating actions.
package approval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Prompt describes what the human is asked to confirm.
type Prompt struct {
	// Environment is the target environment name.
	Environment string
	// Action is the requested effect being confirmed.
	Action string
	// Message is the human-readable question.
	Message string
	// Escalated marks the second gate of an escalated confirmation.
	Escalated bool
}

// Response is a responder's raw answer to a prompt.
type Response struct {
	// Granted reports whether the human confirmed.
	Granted bool
	// Approver identifies who responded, when known.
	Approver string
}

// Decision is the resolved outcome of one gate. It is created when the gate
// opens, resolved when a human responds or the deadline elapses, and
// discarded once the orchestration consumes it.
type Decision struct {
	// Granted reports whether the gate was confirmed.
	Granted bool
	// RespondedInTime is false when the deadline elapsed before any response.
	RespondedInTime bool
	// Approver identifies who responded, when known.
	Approver string
}

// DeniedError reports an explicit denial by a human.
type DeniedError struct {
	// Approver identifies who denied, when known.
	Approver string
}

func (e *DeniedError) Error() string {
	if e == nil {
		return "approval denied"
	}
	if e.Approver != "" {
		return fmt.Sprintf("approval denied by %q", e.Approver)
	}
	return "approval denied"
}

// IsDenied reports whether err indicates an explicit denial.
func IsDenied(err error) bool {
	var target *DeniedError
	return errors.As(err, &target)
}

// TimeoutError reports a gate deadline elapsing without any response.
// It is deliberately distinct from DeniedError for audit purposes.
type TimeoutError struct {
	// Timeout is the deadline window that elapsed.
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	if e == nil || e.Timeout <= 0 {
		return "approval timed out"
	}
	return fmt.Sprintf("approval timed out after %s", e.Timeout)
}

// IsTimeout reports whether err indicates an elapsed approval deadline.
func IsTimeout(err error) bool {
	var target *TimeoutError
	return errors.As(err, &target)
}

// Responder supplies human decisions for prompts. Implementations must
// honor ctx cancellation so the gate's deadline can resolve the wait.
type Responder interface {
	Decide(ctx context.Context, prompt Prompt) (Response, error)
}

// Gate suspends a run until a human responds or the timeout elapses.
type Gate struct {
	responder Responder
	logger    *slog.Logger
}

// NewGate constructs a Gate around the given responder.
func NewGate(responder Responder, logger *slog.Logger) *Gate {
	return &Gate{responder: responder, logger: logger}
}

// Open blocks until the responder answers or the timeout elapses. The wait
// is cooperative: the caller does no other work while the gate is open.
// An elapsed deadline resolves to a not-granted Decision with a
// TimeoutError; an explicit "no" resolves to a DeniedError.
func (g *Gate) Open(ctx context.Context, prompt Prompt, timeout time.Duration) (Decision, error) {
	if g.responder == nil {
		return Decision{}, fmt.Errorf("approval gate has no responder")
	}

	waitCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	if g.logger != nil {
		g.logger.Info("approval gate opened",
			"environment", prompt.Environment,
			"action", prompt.Action,
			"escalated", prompt.Escalated,
			"timeout", timeout,
		)
	}

	type outcome struct {
		resp Response
		err  error
	}
	// The buffer lets the responder goroutine finish even when the
	// deadline wins the select below.
	ch := make(chan outcome, 1)
	go func() {
		resp, err := g.responder.Decide(waitCtx, prompt)
		ch <- outcome{resp: resp, err: err}
	}()

	select {
	case out := <-ch:
		if out.err != nil {
			if errors.Is(out.err, context.DeadlineExceeded) {
				return Decision{}, &TimeoutError{Timeout: timeout}
			}
			return Decision{}, fmt.Errorf("approval responder: %w", out.err)
		}
		decision := Decision{
			Granted:         out.resp.Granted,
			RespondedInTime: true,
			Approver:        out.resp.Approver,
		}
		if !decision.Granted {
			return decision, &DeniedError{Approver: decision.Approver}
		}
		if g.logger != nil {
			g.logger.Info("approval granted", "approver", decision.Approver, "escalated", prompt.Escalated)
		}
		return decision, nil
	case <-waitCtx.Done():
		// The run itself may have been canceled; only an elapsed gate
		// deadline counts as an approval timeout.
		if ctx.Err() != nil {
			return Decision{}, ctx.Err()
		}
		if g.logger != nil {
			g.logger.Warn("approval gate timed out", "environment", prompt.Environment, "timeout", timeout)
		}
		return Decision{}, &TimeoutError{Timeout: timeout}
	}
}
