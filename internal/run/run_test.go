package run

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAction(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Action
		wantErr bool
	}{
		{name: "plan", input: "plan", want: ActionPlan},
		{name: "apply", input: "apply", want: ActionApply},
		{name: "destroy", input: "destroy", want: ActionDestroy},
		{name: "mixed case", input: " Apply ", want: ActionApply},
		{name: "unknown", input: "deploy", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAction(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestActionPredicates(t *testing.T) {
	assert.False(t, ActionPlan.Mutating())
	assert.True(t, ActionApply.Mutating())
	assert.True(t, ActionDestroy.Mutating())

	assert.False(t, ActionPlan.Destructive())
	assert.False(t, ActionApply.Destructive())
	assert.True(t, ActionDestroy.Destructive())
}

func TestStatusExitCode(t *testing.T) {
	tests := []struct {
		status Status
		want   int
	}{
		{StatusCompleted, 0},
		{StatusFailed, 1},
		{StatusApprovalTimeout, 2},
		{StatusCheckoutFailed, 3},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.status.ExitCode())
		})
	}
}

func TestMutationReport(t *testing.T) {
	assert.Equal(t, "no changes made", MutationNone.Report())
	assert.Equal(t, "changes applied", MutationApplied.Report())
	assert.Equal(t, "resources destroyed", MutationDestroyed.Report())
	assert.Contains(t, MutationPartial.Report(), "may have changed")
}

func TestNewRequestStampsUnixTime(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	req := NewRequest("stg", ActionApply, "eu-west-1", now)

	assert.Equal(t, "stg", req.Environment)
	assert.Equal(t, ActionApply, req.Action)
	assert.Equal(t, "eu-west-1", req.Region)
	assert.Equal(t, now.Unix(), req.Timestamp)
}

func TestNewIDIsSortableAndUnique(t *testing.T) {
	now := time.Now()
	first := NewID(now)
	second := NewID(now.Add(time.Second))

	assert.Len(t, first, 26)
	assert.NotEqual(t, first, second)
	assert.Less(t, first, second)
}
