// Package config contains the loader and strongly typed model for stackctl.yaml.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/stackgate/stackctl/internal/artifact"
	"github.com/stackgate/stackctl/internal/env"
	"github.com/stackgate/stackctl/internal/run"
	"github.com/stackgate/stackctl/internal/tool"
)

// DefaultFileName is the config file looked up when --config is not set.
const DefaultFileName = "stackctl.yaml"

const (
	defaultToolTimeout     = "10m"
	defaultExecuteTimeout  = "30m"
	defaultCheckoutTimeout = "5m"
	defaultApprovalTimeout = "15m"
	defaultCheckoutDir     = ".stackctl/src"
	defaultArtifactsDir    = ".stackctl/artifacts"
	defaultJournalDir      = ".stackctl/journal"
	defaultRegion          = "us-east-1"
)

// Config represents the orchestration settings for a project.
// It mirrors the structure of stackctl.yaml.
type Config struct {
	// Project is the short project name used in logs and notifications.
	Project string `yaml:"project,omitempty"`
	// EnvFiles lists .env files loaded before each run, relative to the config file.
	EnvFiles []string `yaml:"envFiles,omitempty"`
	// Tool configures the infrastructure tool invocation.
	Tool ToolConfig `yaml:"tool,omitempty"`
	// Checkout describes where infrastructure definitions come from.
	Checkout CheckoutConfig `yaml:"checkout,omitempty"`
	// Environments contains deployment targets keyed by name.
	Environments map[string]Environment `yaml:"environments,omitempty"`
	// Stages configures which stages are active per action.
	Stages StagesConfig `yaml:"stages,omitempty"`
	// Approval configures the human confirmation gates.
	Approval ApprovalConfig `yaml:"approval,omitempty"`
	// Artifacts configures plan artifact naming and retention.
	Artifacts ArtifactsConfig `yaml:"artifacts,omitempty"`
	// Journal configures the per-run audit journal.
	Journal JournalConfig `yaml:"journal,omitempty"`
	// Notify configures webhook notification of run results.
	Notify NotifyConfig `yaml:"notify,omitempty"`
	// Credentials describes where stage credentials come from.
	Credentials CredentialsConfig `yaml:"credentials,omitempty"`

	baseDir string
}

// ToolConfig describes the infrastructure tool binary and its timeouts.
type ToolConfig struct {
	// Binary is the tool executable name or path.
	Binary string `yaml:"binary,omitempty"`
	// WorkDir is the directory the tool runs in; defaults to the checkout dir.
	WorkDir string `yaml:"workDir,omitempty"`
	// Timeout is a duration string bounding each non-execute stage.
	Timeout string `yaml:"timeout,omitempty"`
	// PlanTimeout overrides Timeout for the plan stage.
	PlanTimeout string `yaml:"planTimeout,omitempty"`
	// ExecuteTimeout is a duration string bounding the execute stage.
	ExecuteTimeout string `yaml:"executeTimeout,omitempty"`
}

// CheckoutConfig describes the source of infrastructure definitions.
type CheckoutConfig struct {
	// Repository is the git URL the definitions are cloned from.
	Repository string `yaml:"repository,omitempty"`
	// Ref is the branch or tag to check out; empty means the default branch.
	Ref string `yaml:"ref,omitempty"`
	// Dir is the directory the repository is cloned into.
	Dir string `yaml:"dir,omitempty"`
	// Timeout is a duration string bounding the clone.
	Timeout string `yaml:"timeout,omitempty"`
	// CredentialRefs lists credential keys exposed to the clone command.
	CredentialRefs []string `yaml:"credentialRefs,omitempty"`
}

// Environment describes one deployment target.
type Environment struct {
	// From references another environment to inherit from.
	From string `yaml:"from,omitempty"`
	// Region is the default region for runs against this environment.
	Region string `yaml:"region,omitempty"`
	// VarFile is the variable file passed to plan, relative to the checkout.
	VarFile string `yaml:"varFile,omitempty"`
	// EscalatedApproval requires a second confirmation before destructive actions.
	EscalatedApproval *bool `yaml:"escalatedApproval,omitempty"`
}

// StagesConfig lists which actions activate the optional stages.
type StagesConfig struct {
	// Validate lists actions that run the validate stage. Defaults to all.
	Validate []string `yaml:"validate,omitempty"`
	// Test lists actions that run the test stage. Defaults to plan only.
	Test []string `yaml:"test,omitempty"`
}

// ValidateFor reports whether the validate stage is active for the action.
func (s StagesConfig) ValidateFor(action run.Action) bool {
	return containsAction(s.Validate, action)
}

// TestFor reports whether the test stage is active for the action.
func (s StagesConfig) TestFor(action run.Action) bool {
	return containsAction(s.Test, action)
}

func containsAction(list []string, action run.Action) bool {
	for _, entry := range list {
		if strings.TrimSpace(entry) == string(action) {
			return true
		}
	}
	return false
}

// ApprovalConfig describes the confirmation gate timeouts and labels.
type ApprovalConfig struct {
	// Timeout is a duration string bounding each approval gate.
	Timeout string `yaml:"timeout,omitempty"`
	// EscalatedTimeout overrides Timeout for the second gate.
	EscalatedTimeout string `yaml:"escalatedTimeout,omitempty"`
	// Approver is the label recorded for granted approvals.
	Approver string `yaml:"approver,omitempty"`
	// EscalatedApprover is the label recorded for the second gate.
	EscalatedApprover string `yaml:"escalatedApprover,omitempty"`
}

// ArtifactsConfig describes plan artifact naming, retention and archiving.
type ArtifactsConfig struct {
	// Dir is the directory plan artifacts are written to.
	Dir string `yaml:"dir,omitempty"`
	// Prefix is the artifact file name prefix.
	Prefix string `yaml:"prefix,omitempty"`
	// Extension is the artifact file extension, including the dot.
	Extension string `yaml:"extension,omitempty"`
	// Keep is the number of most recent artifacts retained per environment.
	// Zero means the built-in default.
	Keep int `yaml:"keep,omitempty"`
	// Archive configures optional S3 upload of recorded artifacts.
	Archive *ArchiveConfig `yaml:"archive,omitempty"`
}

// ArchiveConfig describes the S3 destination for recorded artifacts.
type ArchiveConfig struct {
	// Bucket is the S3 bucket artifacts are uploaded to.
	Bucket string `yaml:"bucket"`
	// Prefix is the object key prefix within the bucket.
	Prefix string `yaml:"prefix,omitempty"`
	// Region overrides the SDK default region for the upload client.
	Region string `yaml:"region,omitempty"`
}

// JournalConfig describes the per-run JSONL audit journal.
type JournalConfig struct {
	// Dir is the directory run journals are written to.
	Dir string `yaml:"dir,omitempty"`
	// Disabled turns off journal writing entirely.
	Disabled bool `yaml:"disabled,omitempty"`
}

// NotifyConfig describes the webhook run results are delivered to.
type NotifyConfig struct {
	// WebhookURL is the endpoint; empty disables notification.
	WebhookURL string `yaml:"webhookURL,omitempty"`
	// Channel is the logical channel name included in the payload.
	Channel string `yaml:"channel,omitempty"`
	// Timeout is a duration string bounding a delivery attempt.
	Timeout string `yaml:"timeout,omitempty"`
}

// CredentialsConfig describes where stage credentials come from.
type CredentialsConfig struct {
	// EnvFiles lists .env files read at run time, relative to the config file.
	EnvFiles []string `yaml:"envFiles,omitempty"`
	// Static holds inline credential values keyed by name.
	Static map[string]string `yaml:"static,omitempty"`
}

// InvalidConfigError reports a config file that could not be read, parsed,
// or validated.
type InvalidConfigError struct {
	Path string
	Err  error
}

func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid config %q: %v", e.Path, e.Err)
}

func (e *InvalidConfigError) Unwrap() error { return e.Err }

// IsInvalidConfig reports whether err stems from loading the config file.
func IsInvalidConfig(err error) bool {
	var icErr *InvalidConfigError
	return errors.As(err, &icErr)
}

// Load reads, defaults and validates the config file at path.
func Load(path string) (*Config, error) {
	if strings.TrimSpace(path) == "" {
		return nil, &InvalidConfigError{Path: path, Err: errors.New("config path is empty")}
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, &InvalidConfigError{Path: path, Err: fmt.Errorf("resolve path: %w", err)}
	}

	raw, err := os.ReadFile(absPath)
	if err != nil {
		return nil, &InvalidConfigError{Path: absPath, Err: fmt.Errorf("read: %w", err)}
	}

	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, &InvalidConfigError{Path: absPath, Err: fmt.Errorf("parse: %w", err)}
	}

	cfg.baseDir = filepath.Dir(absPath)
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, &InvalidConfigError{Path: absPath, Err: err}
	}
	return &cfg, nil
}

// Default returns the built-in configuration used when no config file exists.
func Default() *Config {
	cfg := &Config{baseDir: "."}
	cfg.applyDefaults()
	return cfg
}

// BaseDir returns the directory relative paths in the config resolve against.
func (c *Config) BaseDir() string {
	if c.baseDir == "" {
		return "."
	}
	return c.baseDir
}

// LoadEnvFiles reads the configured .env files relative to the config location.
func (c *Config) LoadEnvFiles() (env.Vars, error) {
	return env.LoadEnvFiles(c.BaseDir(), c.EnvFiles)
}

// CheckoutDir returns the checkout directory resolved against BaseDir.
func (c *Config) CheckoutDir() string {
	return c.resolvePath(c.Checkout.Dir)
}

// ToolWorkDir returns the tool working directory resolved against BaseDir.
func (c *Config) ToolWorkDir() string {
	return c.resolvePath(c.Tool.WorkDir)
}

// ArtifactsDir returns the plan artifact directory resolved against BaseDir.
func (c *Config) ArtifactsDir() string {
	return c.resolvePath(c.Artifacts.Dir)
}

// JournalDir returns the run journal directory resolved against BaseDir.
func (c *Config) JournalDir() string {
	return c.resolvePath(c.Journal.Dir)
}

func (c *Config) resolvePath(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.BaseDir(), p)
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.Tool.Binary) == "" {
		c.Tool.Binary = tool.DefaultBinary
	}
	if c.Tool.Timeout == "" {
		c.Tool.Timeout = defaultToolTimeout
	}
	if c.Tool.ExecuteTimeout == "" {
		c.Tool.ExecuteTimeout = defaultExecuteTimeout
	}
	if c.Checkout.Dir == "" {
		c.Checkout.Dir = defaultCheckoutDir
	}
	if c.Checkout.Timeout == "" {
		c.Checkout.Timeout = defaultCheckoutTimeout
	}
	if c.Tool.WorkDir == "" {
		c.Tool.WorkDir = c.Checkout.Dir
	}
	if len(c.Environments) == 0 {
		c.Environments = DefaultEnvironments()
	}
	if len(c.Stages.Validate) == 0 {
		c.Stages.Validate = []string{string(run.ActionPlan), string(run.ActionApply), string(run.ActionDestroy)}
	}
	if len(c.Stages.Test) == 0 {
		c.Stages.Test = []string{string(run.ActionPlan)}
	}
	if c.Approval.Timeout == "" {
		c.Approval.Timeout = defaultApprovalTimeout
	}
	if c.Approval.EscalatedTimeout == "" {
		c.Approval.EscalatedTimeout = c.Approval.Timeout
	}
	if c.Artifacts.Dir == "" {
		c.Artifacts.Dir = defaultArtifactsDir
	}
	if c.Artifacts.Prefix == "" {
		c.Artifacts.Prefix = artifact.DefaultPrefix
	}
	if c.Artifacts.Extension == "" {
		c.Artifacts.Extension = artifact.DefaultExtension
	}
	if c.Artifacts.Keep == 0 {
		c.Artifacts.Keep = artifact.DefaultKeep
	}
	if c.Journal.Dir == "" {
		c.Journal.Dir = defaultJournalDir
	}
}

func (c *Config) validate() error {
	if c.Artifacts.Keep < 0 {
		return fmt.Errorf("artifacts.keep must not be negative")
	}

	for _, list := range []struct {
		name    string
		actions []string
	}{
		{"stages.validate", c.Stages.Validate},
		{"stages.test", c.Stages.Test},
	} {
		for _, entry := range list.actions {
			if _, err := run.ParseAction(strings.TrimSpace(entry)); err != nil {
				return fmt.Errorf("%s: %w", list.name, err)
			}
		}
	}

	for _, d := range []struct {
		name  string
		value string
	}{
		{"tool.timeout", c.Tool.Timeout},
		{"tool.planTimeout", c.Tool.PlanTimeout},
		{"tool.executeTimeout", c.Tool.ExecuteTimeout},
		{"checkout.timeout", c.Checkout.Timeout},
		{"approval.timeout", c.Approval.Timeout},
		{"approval.escalatedTimeout", c.Approval.EscalatedTimeout},
		{"notify.timeout", c.Notify.Timeout},
	} {
		if _, err := ParseTimeout(d.value, 0); err != nil {
			return fmt.Errorf("%s: %w", d.name, err)
		}
	}

	for _, name := range c.Names() {
		resolved, err := ResolveEnvironment(c, name)
		if err != nil {
			return err
		}
		if strings.TrimSpace(resolved.Region) == "" {
			return fmt.Errorf("environment %q has no region", name)
		}
	}

	if c.Artifacts.Archive != nil && strings.TrimSpace(c.Artifacts.Archive.Bucket) == "" {
		return fmt.Errorf("artifacts.archive.bucket is empty")
	}
	return nil
}

// ParseTimeout parses a duration string, returning fallback when value is empty.
func ParseTimeout(value string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", value, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("duration %q must be positive", value)
	}
	return d, nil
}
