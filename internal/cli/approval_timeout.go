package cli

import (
	"strings"

	"github.com/stackgate/stackctl/internal/config"
)

// defaultApprovalTimeout is the fallback window when neither flag, variable,
// nor config provides one. It matches the config package default.
const defaultApprovalTimeout = "15m"

// resolveApprovalTimeout picks the approval window for a run. Precedence:
// an explicitly passed --approval-timeout flag, then STACKCTL_APPROVAL_TIMEOUT,
// then the config value, then the built-in default.
func resolveApprovalTimeout(cfg *config.Config, explicit string, explicitSet bool) string {
	if explicitSet {
		if v := strings.TrimSpace(explicit); v != "" {
			return v
		}
	}

	var overrides runEnv
	if err := parseEnv(&overrides); err == nil {
		if v := strings.TrimSpace(overrides.ApprovalTimeout); v != "" {
			return v
		}
	}

	if cfg != nil {
		if v := strings.TrimSpace(cfg.Approval.Timeout); v != "" {
			return v
		}
	}

	if v := strings.TrimSpace(explicit); v != "" {
		return v
	}
	return defaultApprovalTimeout
}
