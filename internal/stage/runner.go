package stage

import (
	"context"
	"errors"
	"log/slog"
	"os/exec"
	"syscall"
	"time"

	"github.com/stackgate/stackctl/internal/env"
	"github.com/stackgate/stackctl/internal/logging"
)

// Runner executes a single stage command and reports its result.
// Every command is single-attempt; retries are an orchestration policy,
// not a runner concern.
type Runner interface {
	Run(ctx context.Context, cmd Command) Result
}

// ExecRunner runs stage commands as OS processes.
type ExecRunner struct {
	logger *slog.Logger
	// waitDelay is the grace period between SIGTERM and SIGKILL on cancellation.
	waitDelay time.Duration
}

// NewExecRunner constructs an ExecRunner bound to the provided logger.
func NewExecRunner(logger *slog.Logger) *ExecRunner {
	return &ExecRunner{logger: logger, waitDelay: 10 * time.Second}
}

// Run executes the command, streaming combined output through the logging
// writer and capturing exit status, output size and a one-line summary.
func (r *ExecRunner) Run(ctx context.Context, c Command) Result {
	res := Result{Stage: c.Stage, Status: StatusFailure, ExitCode: -1}
	if len(c.Argv) == 0 {
		res.Summary = "empty command"
		return res
	}

	runCtx := ctx
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	out := logging.NewWriter(r.logger, string(c.Stage))

	cmd := exec.CommandContext(runCtx, c.Argv[0], c.Argv[1:]...)
	cmd.Dir = c.Dir
	cmd.Stdout = out
	cmd.Stderr = out
	if len(c.Env) > 0 {
		cmd.Env = env.Merge(env.FromOS(), c.Env).Environ()
	}
	// Cancellation sends SIGTERM first so the tool can release its own locks;
	// WaitDelay bounds how long we wait before the process is killed.
	cmd.Cancel = func() error {
		return cmd.Process.Signal(syscall.SIGTERM)
	}
	cmd.WaitDelay = r.waitDelay

	if r.logger != nil {
		r.logger.Debug("running stage command", "stage", c.Stage, "argv", c.Argv, "dir", c.Dir)
	}

	start := time.Now()
	err := cmd.Run()
	res.Duration = time.Since(start)
	res.OutputBytes = out.Bytes()
	res.Summary = out.LastLine()

	if err == nil {
		res.Status = StatusSuccess
		res.ExitCode = 0
		return res
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
	}
	if res.Summary == "" {
		res.Summary = err.Error()
	}
	if r.logger != nil {
		r.logger.Error("stage command failed", "stage", c.Stage, "exit_code", res.ExitCode, "error", err)
	}
	return res
}
