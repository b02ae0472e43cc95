package approval

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// TestMain runs goleak verification for all tests in this package.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// scriptedResponder resolves prompts without a human.
type scriptedResponder struct {
	resp  Response
	err   error
	delay time.Duration
	block bool
}

func (s *scriptedResponder) Decide(ctx context.Context, _ Prompt) (Response, error) {
	if s.block {
		<-ctx.Done()
		return Response{}, ctx.Err()
	}
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return Response{}, ctx.Err()
		}
	}
	return s.resp, s.err
}

func TestGateGranted(t *testing.T) {
	gate := NewGate(&scriptedResponder{resp: Response{Granted: true, Approver: "sre-oncall"}}, nil)

	decision, err := gate.Open(context.Background(), Prompt{Environment: "stg", Action: "apply"}, time.Minute)
	require.NoError(t, err)

	assert.True(t, decision.Granted)
	assert.True(t, decision.RespondedInTime)
	assert.Equal(t, "sre-oncall", decision.Approver)
}

func TestGateDenied(t *testing.T) {
	gate := NewGate(&scriptedResponder{resp: Response{Granted: false, Approver: "sre-oncall"}}, nil)

	decision, err := gate.Open(context.Background(), Prompt{Environment: "prod", Action: "destroy"}, time.Minute)
	require.Error(t, err)

	assert.True(t, IsDenied(err))
	assert.False(t, IsTimeout(err))
	assert.False(t, decision.Granted)
	assert.True(t, decision.RespondedInTime)
}

func TestGateTimeout(t *testing.T) {
	gate := NewGate(&scriptedResponder{block: true}, nil)

	start := time.Now()
	decision, err := gate.Open(context.Background(), Prompt{Environment: "prod", Action: "destroy"}, 50*time.Millisecond)
	require.Error(t, err)

	assert.True(t, IsTimeout(err))
	assert.False(t, IsDenied(err))
	assert.False(t, decision.Granted)
	assert.False(t, decision.RespondedInTime)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestGateSlowResponderStillTimesOut(t *testing.T) {
	gate := NewGate(&scriptedResponder{resp: Response{Granted: true}, delay: time.Minute}, nil)

	_, err := gate.Open(context.Background(), Prompt{}, 50*time.Millisecond)
	assert.True(t, IsTimeout(err))
}

func TestGateRunCancellationIsNotATimeout(t *testing.T) {
	gate := NewGate(&scriptedResponder{block: true}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := gate.Open(ctx, Prompt{}, time.Minute)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.False(t, IsTimeout(err))
}

func TestGateResponderError(t *testing.T) {
	gate := NewGate(&scriptedResponder{err: errors.New("channel unavailable")}, nil)

	_, err := gate.Open(context.Background(), Prompt{}, time.Minute)
	require.Error(t, err)
	assert.False(t, IsDenied(err))
	assert.False(t, IsTimeout(err))
	assert.Contains(t, err.Error(), "channel unavailable")
}

func TestGateWithoutResponder(t *testing.T) {
	gate := NewGate(nil, nil)

	_, err := gate.Open(context.Background(), Prompt{}, time.Minute)
	require.Error(t, err)
}

func TestErrorHelpers(t *testing.T) {
	denied := &DeniedError{Approver: "alex"}
	assert.Contains(t, denied.Error(), "alex")
	assert.True(t, IsDenied(denied))

	timeout := &TimeoutError{Timeout: 10 * time.Minute}
	assert.Contains(t, timeout.Error(), "10m")
	assert.True(t, IsTimeout(timeout))

	assert.False(t, IsDenied(errors.New("other")))
	assert.False(t, IsTimeout(nil))
}
