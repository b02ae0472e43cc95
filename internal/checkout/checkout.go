// Package checkout fetches infrastructure definitions into a local workspace.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/stackgate/stackctl/internal/env"
	"github.com/stackgate/stackctl/internal/stage"
)

// Error reports a failed definitions checkout.
type Error struct {
	// Repository is the repository locator that failed to check out.
	Repository string
	// Ref is the requested branch or tag.
	Ref string
	// Cause is the underlying failure.
	Cause error
}

func (e *Error) Error() string {
	if e == nil {
		return "checkout failed"
	}
	ref := e.Ref
	if ref == "" {
		ref = "default branch"
	}
	return fmt.Sprintf("checkout of %q at %s failed: %v", e.Repository, ref, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

// IsCheckoutError reports whether err stems from the definitions checkout.
func IsCheckoutError(err error) bool {
	var target *Error
	return errors.As(err, &target)
}

// Checkout fetches a repository ref into a workspace directory.
type Checkout struct {
	// Repository is the git repository locator (URL or local path).
	Repository string
	// Ref is the branch or tag to check out; empty means the default branch.
	Ref string
	// Dir is the workspace directory the definitions land in.
	Dir string
	// Timeout bounds the fetch.
	Timeout time.Duration
}

// Run clears any previous workspace and clones the repository through the
// stage runner. Credentials are injected into the single invocation only
// and never persisted.
func (c *Checkout) Run(ctx context.Context, runner stage.Runner, creds env.Vars) (stage.Result, error) {
	fail := func(cause error) (stage.Result, error) {
		res := stage.Result{Stage: stage.Checkout, Status: stage.StatusFailure, ExitCode: -1, Summary: cause.Error()}
		return res, &Error{Repository: c.Repository, Ref: c.Ref, Cause: cause}
	}

	if strings.TrimSpace(c.Repository) == "" {
		return fail(fmt.Errorf("no repository configured"))
	}
	if err := prepareDir(c.Dir); err != nil {
		return fail(err)
	}

	args := []string{"git", "clone", "--depth", "1"}
	if c.Ref != "" {
		args = append(args, "--branch", c.Ref)
	}
	args = append(args, c.Repository, c.Dir)

	res := runner.Run(ctx, stage.Command{
		Stage:   stage.Checkout,
		Argv:    args,
		Env:     creds,
		Timeout: c.Timeout,
	})
	if res.Status != stage.StatusSuccess {
		return res, &Error{
			Repository: c.Repository,
			Ref:        c.Ref,
			Cause:      fmt.Errorf("git clone exited with code %d: %s", res.ExitCode, res.Summary),
		}
	}
	return res, nil
}

// prepareDir clears a previous checkout so the clone lands in a fresh
// directory, guarding against unsafe paths before any removal.
func prepareDir(dir string) error {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return fmt.Errorf("workspace dir is empty")
	}
	if !safePath(dir) {
		return fmt.Errorf("refusing to clear unsafe workspace path %q", dir)
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("clear workspace %q: %w", dir, err)
	}
	if parent := filepath.Dir(dir); parent != "." {
		if err := os.MkdirAll(parent, 0o755); err != nil {
			return fmt.Errorf("create workspace parent %q: %w", parent, err)
		}
	}
	return nil
}

// safePath rejects paths whose removal could destroy data outside the
// intended workspace.
func safePath(path string) bool {
	path = filepath.Clean(strings.TrimSpace(path))
	if path == "" || path == "." || path == string(os.PathSeparator) {
		return false
	}
	if path == ".." || strings.HasPrefix(path, ".."+string(os.PathSeparator)) {
		return false
	}
	if filepath.IsAbs(path) {
		// Require at least two components below the root, e.g. /home/x.
		trimmed := strings.Trim(path, string(os.PathSeparator))
		if len(strings.Split(trimmed, string(os.PathSeparator))) < 2 {
			return false
		}
	}
	return true
}
