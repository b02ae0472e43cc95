package cli

import (
	"os"

	envparse "github.com/caarlos0/env/v11"
)

// baseEnv defines the STACKCTL_* variables that seed the root flags.
type baseEnv struct {
	// ConfigPath overrides the default config file path.
	ConfigPath string `env:"STACKCTL_CONFIG"`
	// Env selects the target environment without passing --env.
	Env string `env:"STACKCTL_ENV"`
	// Region overrides the environment's region.
	Region string `env:"STACKCTL_REGION"`
	// LogLevel sets the log level (debug, info, warn, error).
	LogLevel string `env:"STACKCTL_LOG_LEVEL"`
}

// runEnv defines the STACKCTL_* variables read by the run commands.
type runEnv struct {
	// ApprovalTimeout overrides the configured approval window.
	ApprovalTimeout string `env:"STACKCTL_APPROVAL_TIMEOUT"`
	// Approver names the human answering approval prompts.
	Approver string `env:"STACKCTL_APPROVER"`
	// ArtifactDir overrides the configured plan artifact directory.
	ArtifactDir string `env:"STACKCTL_ARTIFACT_DIR"`
	// ToolBinary overrides the configured tool binary.
	ToolBinary string `env:"STACKCTL_TOOL_BIN"`
}

func parseEnv(target interface{}) error {
	return envparse.Parse(target)
}

func envPresent(key string) bool {
	_, ok := os.LookupEnv(key)
	return ok
}
