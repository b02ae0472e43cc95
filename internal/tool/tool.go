// Package tool builds the command surface of the infrastructure tool.
// The boundary is opaque: only exit status and artifact existence matter,
// output is never parsed.
package tool

import (
	"time"

	"github.com/stackgate/stackctl/internal/env"
	"github.com/stackgate/stackctl/internal/stage"
)

// DefaultBinary is the infrastructure tool invoked when none is configured.
const DefaultBinary = "terraform"

// Tool describes how to invoke the infrastructure tool inside a workspace.
type Tool struct {
	// Binary is the tool executable name or path.
	Binary string
	// Dir is the workspace directory holding the checked-out definitions.
	Dir string
	// Timeout bounds init/validate/plan/test invocations.
	Timeout time.Duration
	// ExecuteTimeout bounds plan execution; zero falls back to Timeout.
	ExecuteTimeout time.Duration
}

// New constructs a Tool rooted at dir.
func New(binary, dir string, timeout, executeTimeout time.Duration) *Tool {
	if binary == "" {
		binary = DefaultBinary
	}
	return &Tool{
		Binary:         binary,
		Dir:            dir,
		Timeout:        timeout,
		ExecuteTimeout: executeTimeout,
	}
}

// PlanOptions scope a plan invocation.
type PlanOptions struct {
	// ArtifactPath is the file the change plan is written to.
	ArtifactPath string
	// VarFile is an optional variables file forwarded to the tool.
	VarFile string
	// Vars are ad-hoc variables forwarded as individual -var arguments.
	Vars env.Vars
	// Region is forwarded as a region variable when non-empty.
	Region string
	// Destroy computes a tear-down plan when set.
	Destroy bool
}

// InitCommand initializes the workspace backend and providers.
func (t *Tool) InitCommand() stage.Command {
	return t.command(stage.Init, t.Timeout, "init", "-input=false")
}

// ValidateCommand checks the definitions without computing a plan.
func (t *Tool) ValidateCommand() stage.Command {
	return t.command(stage.Validate, t.Timeout, "validate")
}

// PlanCommand computes a change plan into the named artifact file.
// The region variable comes last so it wins over an ad-hoc region value.
func (t *Tool) PlanCommand(opts PlanOptions) stage.Command {
	args := []string{"plan", "-input=false", "-out", opts.ArtifactPath}
	if opts.VarFile != "" {
		args = append(args, "-var-file", opts.VarFile)
	}
	for _, kv := range opts.Vars.Environ() {
		args = append(args, "-var", kv)
	}
	if opts.Region != "" {
		args = append(args, "-var", "region="+opts.Region)
	}
	if opts.Destroy {
		args = append(args, "-destroy")
	}
	return t.command(stage.Plan, t.Timeout, args...)
}

// TestCommand runs the tool's test suite against the definitions.
func (t *Tool) TestCommand() stage.Command {
	return t.command(stage.Test, t.Timeout, "test")
}

// ExecuteCommand applies the recorded plan artifact with no further interaction.
// Destroy runs execute a plan that was computed with Destroy set, so the
// invocation is identical for both mutating actions.
func (t *Tool) ExecuteCommand(artifactPath string) stage.Command {
	timeout := t.ExecuteTimeout
	if timeout == 0 {
		timeout = t.Timeout
	}
	return t.command(stage.Execute, timeout, "apply", "-input=false", artifactPath)
}

func (t *Tool) command(name stage.Name, timeout time.Duration, args ...string) stage.Command {
	argv := append([]string{t.Binary}, args...)
	return stage.Command{Stage: name, Argv: argv, Dir: t.Dir, Timeout: timeout}
}
