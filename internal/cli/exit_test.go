package cli

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/stackgate/stackctl/internal/approval"
	"github.com/stackgate/stackctl/internal/checkout"
	"github.com/stackgate/stackctl/internal/config"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "no error", err: nil, want: ExitOK},
		{name: "generic failure", err: errors.New("boom"), want: ExitFailed},
		{name: "denied approval is a plain failure", err: &approval.DeniedError{Approver: "alice"}, want: ExitFailed},
		{name: "approval timeout", err: &approval.TimeoutError{}, want: ExitApprovalTimeout},
		{name: "checkout failure", err: &checkout.Error{Repository: "git@example.com:infra.git"}, want: ExitCheckoutFailed},
		{name: "unknown environment", err: &config.UnknownEnvironmentError{Name: "qa"}, want: ExitConfig},
		{name: "invalid config", err: &config.InvalidConfigError{Path: "stackctl.yaml", Err: errors.New("parse")}, want: ExitConfig},
		{
			name: "wrapped approval timeout",
			err:  fmt.Errorf("run aborted: %w", &approval.TimeoutError{Timeout: time.Minute}),
			want: ExitApprovalTimeout,
		},
		{
			name: "wrapped checkout failure",
			err:  fmt.Errorf("checkout stage: %w", &checkout.Error{Repository: "r", Cause: errors.New("exit 128")}),
			want: ExitCheckoutFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}
