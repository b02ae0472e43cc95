// Package journal appends an auditable JSONL event record for each run.
package journal

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/afero"
)

// Event names recorded in run journals.
const (
	EventRunStarted        = "run_started"
	EventStageStarted      = "stage_started"
	EventStageFinished     = "stage_finished"
	EventArtifactRecorded  = "artifact_recorded"
	EventApprovalRequested = "approval_requested"
	EventApprovalResolved  = "approval_resolved"
	EventArtifactPruned    = "artifact_pruned"
	EventNotifySent        = "notify_sent"
	EventRunFinished       = "run_finished"
)

// Event is one JSONL record in a run journal. Sequence, timestamp and run
// ID are stamped on append; the remaining fields are event-specific.
type Event struct {
	Seq         int64  `json:"seq"`
	TS          string `json:"ts"`
	RunID       string `json:"run_id"`
	Name        string `json:"event"`
	Environment string `json:"environment,omitempty"`
	Action      string `json:"action,omitempty"`
	Region      string `json:"region,omitempty"`
	Stage       string `json:"stage,omitempty"`
	Status      string `json:"status,omitempty"`
	ExitCode    *int   `json:"exit_code,omitempty"`
	DurationMS  int64  `json:"duration_ms,omitempty"`
	Artifact    string `json:"artifact,omitempty"`
	Approver    string `json:"approver,omitempty"`
	Granted     *bool  `json:"granted,omitempty"`
	InTime      *bool  `json:"in_time,omitempty"`
	Escalated   bool   `json:"escalated,omitempty"`
	Removed     int    `json:"removed,omitempty"`
	Mutation    string `json:"mutation,omitempty"`
	Detail      string `json:"detail,omitempty"`
}

// Journal appends events for one run to <dir>/<runID>.jsonl.
// Journaling is best-effort: failures are logged and swallowed so the run
// itself never fails on audit plumbing. A nil Journal drops all events.
type Journal struct {
	mu     sync.Mutex
	fs     afero.Fs
	logger *slog.Logger
	path   string
	runID  string
	seq    int64
	now    func() time.Time
}

// Open prepares the journal file location for a run.
func Open(fs afero.Fs, logger *slog.Logger, dir, runID string) (*Journal, error) {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create journal dir %q: %w", dir, err)
	}
	return &Journal{
		fs:     fs,
		logger: logger,
		path:   filepath.Join(dir, runID+".jsonl"),
		runID:  runID,
		now:    time.Now,
	}, nil
}

// Path returns the journal file location.
func (j *Journal) Path() string {
	if j == nil {
		return ""
	}
	return j.path
}

// Append writes one event line, stamping sequence, timestamp and run ID.
func (j *Journal) Append(ev Event) {
	if j == nil {
		return
	}
	j.mu.Lock()
	defer j.mu.Unlock()

	j.seq++
	ev.Seq = j.seq
	ev.RunID = j.runID
	ev.TS = j.now().UTC().Format(time.RFC3339Nano)

	line, err := json.Marshal(ev)
	if err != nil {
		j.warn("marshal journal event", err)
		return
	}

	f, err := j.fs.OpenFile(j.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		j.warn("open journal file", err)
		return
	}
	defer func() { _ = f.Close() }()

	if _, err := f.Write(append(line, '\n')); err != nil {
		j.warn("write journal event", err)
	}
}

func (j *Journal) warn(msg string, err error) {
	if j.logger != nil {
		j.logger.Warn(msg, "path", j.path, "error", err)
	}
}

// IntPtr adapts an exit code for the optional ExitCode field.
func IntPtr(v int) *int { return &v }

// BoolPtr adapts a flag for the optional Granted/InTime fields.
func BoolPtr(v bool) *bool { return &v }
