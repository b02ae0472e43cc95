package logging

import (
	"log/slog"
	"strings"
	"sync"
)

// Writer is an io.Writer implementation that forwards external tool output to
// slog at debug level while tracking how much output was produced and the
// last non-empty line. The tool's output is surfaced for diagnostics only and
// is never interpreted.
type Writer struct {
	logger *slog.Logger
	stage  string

	mu    sync.Mutex
	bytes int64
	last  string
}

// NewWriter constructs a Writer bound to the provided logger and stage name.
func NewWriter(logger *slog.Logger, stage string) *Writer {
	return &Writer{logger: logger, stage: stage}
}

// Write records the given bytes and logs each non-empty line.
func (w *Writer) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.bytes += int64(len(p))
	for _, line := range strings.Split(strings.TrimRight(string(p), "\n"), "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		w.last = line
		if w.logger != nil {
			w.logger.Debug("tool output", "stage", w.stage, "line", line)
		}
	}
	return len(p), nil
}

// Bytes returns the total number of bytes written so far.
func (w *Writer) Bytes() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.bytes
}

// LastLine returns the last non-empty line seen, used as a result summary.
func (w *Writer) LastLine() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.last
}
