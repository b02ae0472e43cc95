package approval

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsoleResponderGrants(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		granted bool
	}{
		{name: "yes", input: "yes\n", granted: true},
		{name: "y", input: "y\n", granted: true},
		{name: "uppercase", input: "YES\n", granted: true},
		{name: "no", input: "no\n", granted: false},
		{name: "anything else fails closed", input: "sure, go ahead\n", granted: false},
		{name: "blank fails closed", input: "\n", granted: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			r := NewConsoleResponder(strings.NewReader(tt.input), &out, "alex")

			resp, err := r.Decide(context.Background(), Prompt{Message: "Approve apply on stg?"})
			require.NoError(t, err)

			assert.Equal(t, tt.granted, resp.Granted)
			assert.Equal(t, "alex", resp.Approver)
			assert.Contains(t, out.String(), "Approve apply on stg?")
			assert.Contains(t, out.String(), "Respond yes/no")
		})
	}
}

func TestConsoleResponderPrintsDeadlineAndEscalation(t *testing.T) {
	var out bytes.Buffer
	r := NewConsoleResponder(strings.NewReader("yes\n"), &out, "")

	ctx, cancel := context.WithTimeout(context.Background(), time.Hour)
	defer cancel()

	_, err := r.Decide(ctx, Prompt{Message: "Confirm destroy on prod?", Escalated: true})
	require.NoError(t, err)

	assert.Contains(t, out.String(), "escalated confirmation")
	assert.Contains(t, out.String(), "before")
}

func TestConsoleResponderEOF(t *testing.T) {
	r := NewConsoleResponder(strings.NewReader(""), io.Discard, "")

	_, err := r.Decide(context.Background(), Prompt{Message: "?"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read approval response")
}

func TestConsoleResponderHonorsCancellation(t *testing.T) {
	pr, pw := io.Pipe()
	defer func() { _ = pr.Close() }()

	r := NewConsoleResponder(pr, io.Discard, "")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		_, err := r.Decide(ctx, Prompt{Message: "?"})
		errCh <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	require.ErrorIs(t, <-errCh, context.Canceled)

	// Unblock the reader goroutine so the leak check stays clean.
	_ = pw.Close()
}
