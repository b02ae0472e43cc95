// Package artifact names, records and prunes change-plan artifacts per environment.
package artifact

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/afero"
)

const (
	// DefaultPrefix is the artifact file prefix used when none is configured.
	DefaultPrefix = "plan"
	// DefaultExtension is the artifact file extension used when none is configured.
	DefaultExtension = ".tfplan"
	// DefaultKeep is the number of artifacts retained per environment.
	DefaultKeep = 3
)

// Artifact describes one recorded change-plan file.
type Artifact struct {
	// Path is the artifact location on disk.
	Path string
	// Environment is the environment the plan was computed for.
	Environment string
	// CreatedAt is the creation time derived from the artifact name.
	CreatedAt time.Time
}

// Manager owns the artifact directory for all environments.
// At most one artifact is active (bound to the current run) at any time.
type Manager struct {
	fs     afero.Fs
	logger *slog.Logger
	dir    string
	prefix string
	ext    string

	active *Artifact
}

// NewManager constructs a Manager over the given filesystem and directory.
func NewManager(fs afero.Fs, logger *slog.Logger, dir, prefix, ext string) *Manager {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if ext == "" {
		ext = DefaultExtension
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return &Manager{fs: fs, logger: logger, dir: dir, prefix: prefix, ext: ext}
}

// Name derives the deterministic artifact path for an environment and
// request timestamp: <prefix>-<environment>-<timestamp><ext> under the
// artifact directory. Timestamps increase monotonically across runs, which
// keeps names collision-free within an environment.
func (m *Manager) Name(environment string, timestamp int64) string {
	file := fmt.Sprintf("%s-%s-%d%s", m.prefix, environment, timestamp, m.ext)
	return filepath.Join(m.dir, file)
}

// Record marks the given path as the active artifact for the current run.
func (m *Manager) Record(path string) {
	env, created := m.parseName(filepath.Base(path))
	m.active = &Artifact{Path: path, Environment: env, CreatedAt: created}
	if m.logger != nil {
		m.logger.Debug("recorded active plan artifact", "path", path)
	}
}

// Active returns the artifact recorded by the current run, if any.
func (m *Manager) Active() (Artifact, bool) {
	if m.active == nil {
		return Artifact{}, false
	}
	return *m.active, true
}

// Exists reports whether the active artifact is present on disk.
func (m *Manager) Exists() bool {
	if m.active == nil {
		return false
	}
	ok, err := afero.Exists(m.fs, m.active.Path)
	return err == nil && ok
}

// EnsureDir creates the artifact directory when missing.
func (m *Manager) EnsureDir() error {
	if err := m.fs.MkdirAll(m.dir, 0o755); err != nil {
		return fmt.Errorf("create artifact dir %q: %w", m.dir, err)
	}
	return nil
}

// List returns the artifacts recorded for an environment, newest first.
func (m *Manager) List(environment string) ([]Artifact, error) {
	entries, err := afero.ReadDir(m.fs, m.dir)
	if err != nil {
		if ok, _ := afero.DirExists(m.fs, m.dir); !ok {
			return nil, nil
		}
		return nil, fmt.Errorf("list artifact dir %q: %w", m.dir, err)
	}

	want := m.prefix + "-" + environment + "-"
	var out []Artifact
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, want) || !strings.HasSuffix(name, m.ext) {
			continue
		}
		env, created := m.parseName(name)
		if env != environment {
			continue
		}
		if created.IsZero() {
			created = entry.ModTime()
		}
		out = append(out, Artifact{
			Path:        filepath.Join(m.dir, name),
			Environment: env,
			CreatedAt:   created,
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// Prune deletes all artifacts for the environment beyond the keep most
// recent and returns how many were removed. Zero or fewer-than-keep
// artifacts is a no-op. Deletion failures are logged and swallowed;
// pruning is best-effort housekeeping, never fatal to the run.
func (m *Manager) Prune(environment string, keep int) (int, error) {
	if keep <= 0 {
		keep = DefaultKeep
	}

	artifacts, err := m.List(environment)
	if err != nil {
		return 0, err
	}
	if len(artifacts) <= keep {
		return 0, nil
	}

	removed := 0
	for _, a := range artifacts[keep:] {
		if err := m.fs.Remove(a.Path); err != nil {
			if m.logger != nil {
				m.logger.Warn("failed to prune plan artifact", "path", a.Path, "error", err)
			}
			continue
		}
		removed++
		if m.logger != nil {
			m.logger.Debug("pruned plan artifact", "path", a.Path, "created_at", a.CreatedAt)
		}
	}
	return removed, nil
}

// parseName splits <prefix>-<environment>-<timestamp><ext> back into its
// environment and creation time. A zero time is returned when the name does
// not carry a parsable timestamp.
func (m *Manager) parseName(name string) (string, time.Time) {
	trimmed := strings.TrimSuffix(name, m.ext)
	trimmed = strings.TrimPrefix(trimmed, m.prefix+"-")
	idx := strings.LastIndex(trimmed, "-")
	if idx <= 0 {
		return trimmed, time.Time{}
	}
	env := trimmed[:idx]
	ts, err := strconv.ParseInt(trimmed[idx+1:], 10, 64)
	if err != nil {
		return env, time.Time{}
	}
	return env, time.Unix(ts, 0).UTC()
}
