package cli

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/stackgate/stackctl/internal/config"
	"github.com/stackgate/stackctl/internal/engine"
	"github.com/stackgate/stackctl/internal/run"
	"github.com/stackgate/stackctl/internal/stage"
)

func TestPrintOutcome(t *testing.T) {
	outcome := engine.Outcome{
		RunID:       "01JRUN",
		Environment: "stg",
		Action:      run.ActionApply,
		Status:      run.StatusFailed,
		Mutation:    run.MutationNone,
		Results: []stage.Result{
			{Stage: stage.Checkout, Status: stage.StatusSkipped},
			{Stage: stage.Init, Status: stage.StatusSuccess, Duration: 1200 * time.Millisecond},
			{Stage: stage.Plan, Status: stage.StatusFailure, ExitCode: 1, Duration: 300 * time.Millisecond},
		},
	}

	var buf bytes.Buffer
	printOutcome(&buf, outcome)
	out := buf.String()

	assert.Contains(t, out, "checkout")
	assert.Contains(t, out, "skipped")
	assert.Contains(t, out, "ok")
	assert.Contains(t, out, "1.2s")
	assert.Contains(t, out, "(exit 1)")
	assert.Contains(t, out, outcome.Summary())
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("STACKCTL_APPROVER", "alice")
	t.Setenv("STACKCTL_ARTIFACT_DIR", "/var/stackctl/plans")
	t.Setenv("STACKCTL_TOOL_BIN", "tofu")

	cfg := config.Default()
	applyEnvOverrides(cfg)

	assert.Equal(t, "alice", cfg.Approval.Approver)
	assert.Equal(t, "/var/stackctl/plans", cfg.Artifacts.Dir)
	assert.Equal(t, "tofu", cfg.Tool.Binary)
}

func TestApplyEnvOverridesLeavesConfigAlone(t *testing.T) {
	for _, key := range []string{"STACKCTL_APPROVER", "STACKCTL_ARTIFACT_DIR", "STACKCTL_TOOL_BIN"} {
		unsetEnv(t, key)
	}

	cfg := config.Default()
	cfg.Approval.Approver = "ops"
	before := *cfg

	applyEnvOverrides(cfg)

	assert.Equal(t, before.Approval.Approver, cfg.Approval.Approver)
	assert.Equal(t, before.Artifacts.Dir, cfg.Artifacts.Dir)
	assert.Equal(t, before.Tool.Binary, cfg.Tool.Binary)
}
