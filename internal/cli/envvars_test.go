package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stackgate/stackctl/internal/config"
)

func TestDefaultOptionsUsesBuiltins(t *testing.T) {
	for _, key := range []string{"STACKCTL_CONFIG", "STACKCTL_ENV", "STACKCTL_REGION", "STACKCTL_LOG_LEVEL"} {
		unsetEnv(t, key)
	}

	opts, err := defaultOptions()
	require.NoError(t, err)

	assert.Equal(t, config.DefaultFileName, opts.ConfigPath)
	assert.Empty(t, opts.Env)
	assert.Empty(t, opts.Region)
	assert.Equal(t, "info", opts.LogLevel)
}

func TestDefaultOptionsReadsEnvironment(t *testing.T) {
	t.Setenv("STACKCTL_CONFIG", "infra/stackctl.yaml")
	t.Setenv("STACKCTL_ENV", "stg")
	t.Setenv("STACKCTL_REGION", "eu-central-1")
	t.Setenv("STACKCTL_LOG_LEVEL", "debug")

	opts, err := defaultOptions()
	require.NoError(t, err)

	assert.Equal(t, "infra/stackctl.yaml", opts.ConfigPath)
	assert.Equal(t, "stg", opts.Env)
	assert.Equal(t, "eu-central-1", opts.Region)
	assert.Equal(t, "debug", opts.LogLevel)
}

func TestEnvPresent(t *testing.T) {
	unsetEnv(t, "STACKCTL_CONFIG")
	assert.False(t, envPresent("STACKCTL_CONFIG"))

	t.Setenv("STACKCTL_CONFIG", "")
	assert.True(t, envPresent("STACKCTL_CONFIG"))
}
