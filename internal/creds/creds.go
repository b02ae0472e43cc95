// Package creds resolves scoped credentials for single stage invocations.
//
// Values returned by a Source are injected into one child process
// environment and never persisted or logged by the orchestration.
package creds

import (
	"context"
	"fmt"
	"strings"

	"github.com/stackgate/stackctl/internal/env"
)

// Source yields credential key/value pairs. A nil or empty refs slice asks
// for every pair the source knows; otherwise only the named refs are
// returned and a missing ref is an error.
type Source interface {
	Fetch(ctx context.Context, refs []string) (env.Vars, error)
}

// StaticSource serves values held directly in configuration.
type StaticSource struct {
	values env.Vars
}

// NewStaticSource constructs a StaticSource over the given values.
func NewStaticSource(values env.Vars) *StaticSource {
	return &StaticSource{values: values}
}

// Fetch returns the requested refs from the configured values.
func (s *StaticSource) Fetch(_ context.Context, refs []string) (env.Vars, error) {
	return selectRefs(s.values, refs)
}

// FileSource loads credentials from .env-style files at fetch time, so
// values are read fresh for each invocation that needs them.
type FileSource struct {
	baseDir string
	files   []string
}

// NewFileSource constructs a FileSource; relative file names resolve
// against baseDir.
func NewFileSource(baseDir string, files []string) *FileSource {
	return &FileSource{baseDir: baseDir, files: files}
}

// Fetch loads and merges the configured files, then selects the refs.
func (s *FileSource) Fetch(_ context.Context, refs []string) (env.Vars, error) {
	all, err := env.LoadEnvFiles(s.baseDir, s.files)
	if err != nil {
		return nil, err
	}
	return selectRefs(all, refs)
}

// Chain merges several sources, later sources overriding earlier keys.
type Chain []Source

// Fetch collects every pair from each source in order and then selects the
// requested refs, so a ref satisfied by any source resolves.
func (c Chain) Fetch(ctx context.Context, refs []string) (env.Vars, error) {
	merged := make(env.Vars)
	for _, s := range c {
		vars, err := s.Fetch(ctx, nil)
		if err != nil {
			return nil, err
		}
		merged = env.Merge(merged, vars)
	}
	return selectRefs(merged, refs)
}

// selectRefs narrows all to the named refs; nil refs selects everything.
func selectRefs(all env.Vars, refs []string) (env.Vars, error) {
	if len(refs) == 0 {
		return env.Merge(all), nil
	}
	out := make(env.Vars, len(refs))
	var missing []string
	for _, ref := range refs {
		ref = strings.TrimSpace(ref)
		if ref == "" {
			continue
		}
		v, ok := all[ref]
		if !ok {
			missing = append(missing, ref)
			continue
		}
		out[ref] = v
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("credential ref(s) not found: %s", strings.Join(missing, ", "))
	}
	return out, nil
}
