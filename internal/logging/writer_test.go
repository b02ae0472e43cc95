package logging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriterCountsBytesAndKeepsLastLine(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, LevelDebug)
	w := NewWriter(logger, "plan")

	n, err := w.Write([]byte("Initializing backend...\nPlan: 3 to add, 0 to change\n"))
	require.NoError(t, err)
	assert.Equal(t, 52, n)

	assert.Equal(t, int64(52), w.Bytes())
	assert.Equal(t, "Plan: 3 to add, 0 to change", w.LastLine())
	assert.Contains(t, buf.String(), "Initializing backend...")
}

func TestWriterIgnoresBlankLines(t *testing.T) {
	w := NewWriter(nil, "init")

	_, err := w.Write([]byte("first\n\n\r\n"))
	require.NoError(t, err)
	_, err = w.Write([]byte("\n"))
	require.NoError(t, err)

	assert.Equal(t, "first", w.LastLine())
	assert.Equal(t, int64(10), w.Bytes())
}

func TestParseLevelRoundTrip(t *testing.T) {
	tests := []struct {
		input string
		want  Level
	}{
		{"debug", LevelDebug},
		{"info", LevelInfo},
		{"warn", LevelWarn},
		{"warning", LevelWarn},
		{"error", LevelError},
		{"", LevelInfo},
		{"bogus", LevelInfo},
	}

	for _, tt := range tests {
		t.Run("parse "+tt.input, func(t *testing.T) {
			got := ParseLevel(tt.input)
			assert.Equal(t, tt.want, got)
		})
	}

	assert.Equal(t, "warn", LevelWarn.String())
	assert.Equal(t, "info", LevelInfo.String())
}
