package cli

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/stackgate/stackctl/internal/config"
)

// unsetEnv clears key for the duration of the test, restoring any prior value.
func unsetEnv(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	_ = os.Unsetenv(key)
}

func TestResolveApprovalTimeoutPrecedence(t *testing.T) {
	cfgWith := func(timeout string) *config.Config {
		cfg := config.Default()
		cfg.Approval.Timeout = timeout
		return cfg
	}

	tests := []struct {
		name        string
		cfg         *config.Config
		envValue    string
		explicit    string
		explicitSet bool
		want        string
	}{
		{
			name:        "explicit flag wins over everything",
			cfg:         cfgWith("20m"),
			envValue:    "25m",
			explicit:    "5m",
			explicitSet: true,
			want:        "5m",
		},
		{
			name:     "environment variable wins over config",
			cfg:      cfgWith("20m"),
			envValue: "25m",
			want:     "25m",
		},
		{
			name: "config wins when no overrides",
			cfg:  cfgWith("20m"),
			want: "20m",
		},
		{
			name: "built-in default when nothing is set",
			cfg:  cfgWith(""),
			want: defaultApprovalTimeout,
		},
		{
			name:        "blank explicit flag falls through",
			cfg:         cfgWith("20m"),
			explicit:    "   ",
			explicitSet: true,
			want:        "20m",
		},
		{
			name: "nil config falls back to default",
			cfg:  nil,
			want: defaultApprovalTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				t.Setenv("STACKCTL_APPROVAL_TIMEOUT", tt.envValue)
			} else {
				unsetEnv(t, "STACKCTL_APPROVAL_TIMEOUT")
			}

			got := resolveApprovalTimeout(tt.cfg, tt.explicit, tt.explicitSet)
			assert.Equal(t, tt.want, got)
		})
	}
}
