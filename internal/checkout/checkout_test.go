package checkout

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stackgate/stackctl/internal/env"
	"github.com/stackgate/stackctl/internal/stage"
)

// fakeRunner records the command it was asked to run and returns a scripted result.
type fakeRunner struct {
	result stage.Result
	last   stage.Command
	calls  int
}

func (f *fakeRunner) Run(_ context.Context, cmd stage.Command) stage.Result {
	f.calls++
	f.last = cmd
	res := f.result
	res.Stage = cmd.Stage
	return res
}

func TestRunClonesBranch(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "ws")
	runner := &fakeRunner{result: stage.Result{Status: stage.StatusSuccess}}

	c := &Checkout{Repository: "git@example.com:infra/definitions.git", Ref: "main", Dir: dir, Timeout: time.Minute}
	res, err := c.Run(context.Background(), runner, env.Vars{"GIT_TOKEN": "t"})
	require.NoError(t, err)

	assert.Equal(t, stage.StatusSuccess, res.Status)
	assert.Equal(t, []string{"git", "clone", "--depth", "1", "--branch", "main", "git@example.com:infra/definitions.git", dir}, runner.last.Argv)
	assert.Equal(t, env.Vars{"GIT_TOKEN": "t"}, runner.last.Env)
	assert.Equal(t, time.Minute, runner.last.Timeout)
}

func TestRunWithoutRefUsesDefaultBranch(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "ws")
	runner := &fakeRunner{result: stage.Result{Status: stage.StatusSuccess}}

	c := &Checkout{Repository: "https://example.com/infra.git", Dir: dir}
	_, err := c.Run(context.Background(), runner, nil)
	require.NoError(t, err)

	assert.NotContains(t, runner.last.Argv, "--branch")
}

func TestRunSurfacesCloneFailure(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "ws")
	runner := &fakeRunner{result: stage.Result{Status: stage.StatusFailure, ExitCode: 128, Summary: "fatal: repository not found"}}

	c := &Checkout{Repository: "https://example.com/missing.git", Ref: "main", Dir: dir}
	res, err := c.Run(context.Background(), runner, nil)

	require.Error(t, err)
	assert.True(t, IsCheckoutError(err))
	assert.Contains(t, err.Error(), "missing.git")
	assert.Equal(t, 128, res.ExitCode)
}

func TestRunRequiresRepository(t *testing.T) {
	runner := &fakeRunner{}

	c := &Checkout{Dir: filepath.Join(t.TempDir(), "ws")}
	_, err := c.Run(context.Background(), runner, nil)

	require.Error(t, err)
	assert.True(t, IsCheckoutError(err))
	assert.Zero(t, runner.calls)
}

func TestRunClearsPreviousWorkspace(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "ws")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	stale := filepath.Join(dir, "stale.tf")
	require.NoError(t, os.WriteFile(stale, []byte("resource {}"), 0o644))

	runner := &fakeRunner{result: stage.Result{Status: stage.StatusSuccess}}
	c := &Checkout{Repository: "https://example.com/infra.git", Dir: dir}
	_, err := c.Run(context.Background(), runner, nil)
	require.NoError(t, err)

	_, statErr := os.Stat(stale)
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunRefusesUnsafeWorkspace(t *testing.T) {
	runner := &fakeRunner{}

	c := &Checkout{Repository: "https://example.com/infra.git", Dir: "/"}
	_, err := c.Run(context.Background(), runner, nil)

	require.Error(t, err)
	assert.True(t, IsCheckoutError(err))
	assert.Contains(t, err.Error(), "unsafe workspace path")
	assert.Zero(t, runner.calls)
}

func TestSafePath(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"", false},
		{".", false},
		{"/", false},
		{"..", false},
		{"../elsewhere", false},
		{"/tmp", false},
		{"/tmp/stackctl-ws", true},
		{".stackctl/src", true},
		{"ws", true},
	}

	for _, tt := range tests {
		t.Run("path "+tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, safePath(tt.path), "path %q", tt.path)
		})
	}
}
