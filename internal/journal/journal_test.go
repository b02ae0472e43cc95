package journal

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendWritesOneLinePerEvent(t *testing.T) {
	fs := afero.NewMemMapFs()
	j, err := Open(fs, nil, "journal", "01JRUN")
	require.NoError(t, err)

	fixed := time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)
	j.now = func() time.Time { return fixed }

	j.Append(Event{Name: EventRunStarted, Environment: "dev", Action: "plan"})
	j.Append(Event{Name: EventStageStarted, Stage: "plan"})
	j.Append(Event{Name: EventStageFinished, Stage: "plan", Status: "success", ExitCode: IntPtr(0)})

	data, err := afero.ReadFile(fs, "journal/01JRUN.jsonl")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	require.Len(t, lines, 3)

	var first Event
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, int64(1), first.Seq)
	assert.Equal(t, "01JRUN", first.RunID)
	assert.Equal(t, EventRunStarted, first.Name)
	assert.Equal(t, "dev", first.Environment)
	assert.Equal(t, fixed.Format(time.RFC3339Nano), first.TS)

	var last Event
	require.NoError(t, json.Unmarshal([]byte(lines[2]), &last))
	assert.Equal(t, int64(3), last.Seq)
	require.NotNil(t, last.ExitCode)
	assert.Equal(t, 0, *last.ExitCode)
}

func TestAppendStampsMonotonicSequence(t *testing.T) {
	fs := afero.NewMemMapFs()
	j, err := Open(fs, nil, "journal", "01JSEQ")
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		j.Append(Event{Name: EventStageStarted, Stage: "validate"})
	}

	data, err := afero.ReadFile(fs, "journal/01JSEQ.jsonl")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	require.Len(t, lines, 5)
	for i, line := range lines {
		var ev Event
		require.NoError(t, json.Unmarshal([]byte(line), &ev))
		assert.Equal(t, int64(i+1), ev.Seq)
	}
}

func TestOmitsEmptyOptionalFields(t *testing.T) {
	fs := afero.NewMemMapFs()
	j, err := Open(fs, nil, "journal", "01JOPT")
	require.NoError(t, err)

	j.Append(Event{Name: EventRunFinished, Status: "completed", Mutation: "none"})

	data, err := afero.ReadFile(fs, "journal/01JOPT.jsonl")
	require.NoError(t, err)

	line := strings.TrimSpace(string(data))
	assert.NotContains(t, line, "exit_code")
	assert.NotContains(t, line, "approver")
	assert.NotContains(t, line, "stage")
	assert.Contains(t, line, `"mutation":"none"`)
}

func TestAppendSwallowsWriteFailures(t *testing.T) {
	base := afero.NewMemMapFs()
	j, err := Open(base, nil, "journal", "01JERR")
	require.NoError(t, err)

	// Swap in a read-only view after open so every append fails.
	j.fs = afero.NewReadOnlyFs(base)
	assert.NotPanics(t, func() {
		j.Append(Event{Name: EventRunStarted})
	})

	exists, err := afero.Exists(base, "journal/01JERR.jsonl")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestNilJournalDropsEvents(t *testing.T) {
	var j *Journal
	assert.NotPanics(t, func() {
		j.Append(Event{Name: EventRunStarted})
	})
	assert.Empty(t, j.Path())
}
