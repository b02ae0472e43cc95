package cli

import (
	"github.com/stackgate/stackctl/internal/approval"
	"github.com/stackgate/stackctl/internal/checkout"
	"github.com/stackgate/stackctl/internal/config"
)

// Exit codes let CI distinguish how a run ended without parsing output.
const (
	ExitOK              = 0
	ExitFailed          = 1
	ExitApprovalTimeout = 2
	ExitCheckoutFailed  = 3
	ExitConfig          = 4
)

// ExitCode maps an error returned by Execute to a process exit code.
// Denied approvals are ordinary failures; only elapsed approval windows
// get their own code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case approval.IsTimeout(err):
		return ExitApprovalTimeout
	case checkout.IsCheckoutError(err):
		return ExitCheckoutFailed
	case config.IsUnknownEnvironment(err), config.IsInvalidConfig(err):
		return ExitConfig
	default:
		return ExitFailed
	}
}
