package cli

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/stackgate/stackctl/internal/approval"
	"github.com/stackgate/stackctl/internal/config"
	"github.com/stackgate/stackctl/internal/engine"
	"github.com/stackgate/stackctl/internal/env"
	"github.com/stackgate/stackctl/internal/run"
	"github.com/stackgate/stackctl/internal/stage"
)

// addRunFlags registers the flags shared by plan, apply, and destroy.
func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().String("approval-timeout", "", "how long to wait for approval before the run times out (e.g. 10m)")
	cmd.Flags().String("vars", "", "extra tool variables as key=value[,key=value] forwarded to plan")
}

// runAction loads the config, builds an engine, and drives one run of the
// given action against the selected environment.
func runAction(cmd *cobra.Command, opts *Options, action run.Action) error {
	logger := LoggerFromContext(cmd.Context())

	if strings.TrimSpace(opts.Env) == "" {
		return errors.New("environment is required: pass --env or set STACKCTL_ENV")
	}

	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}
	applyEnvOverrides(cfg)
	if timeoutFlag := cmd.Flag("approval-timeout"); timeoutFlag != nil {
		cfg.Approval.Timeout = resolveApprovalTimeout(cfg, timeoutFlag.Value.String(), timeoutFlag.Changed)
	}

	req := run.NewRequest(opts.Env, action, opts.Region, time.Now())
	if varsFlag := cmd.Flag("vars"); varsFlag != nil {
		vars, err := env.ParseInlineVars(varsFlag.Value.String())
		if err != nil {
			return err
		}
		req.Vars = vars
	}

	responder := approval.NewConsoleResponder(cmd.InOrStdin(), cmd.OutOrStdout(), cfg.Approval.Approver)
	eng, err := engine.New(logger, engine.Options{Config: cfg, Responder: responder})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	outcome, runErr := eng.Run(ctx, req)
	if outcome.RunID != "" {
		printOutcome(cmd.OutOrStdout(), outcome)
	}
	return runErr
}

// printOutcome writes one line per stage followed by the run summary.
func printOutcome(w io.Writer, outcome engine.Outcome) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, res := range outcome.Results {
		switch res.Status {
		case stage.StatusSkipped:
			fmt.Fprintf(tw, "%s\tskipped\t\n", res.Stage)
		case stage.StatusSuccess:
			fmt.Fprintf(tw, "%s\tok\t%s\n", res.Stage, res.Duration.Round(time.Millisecond))
		default:
			fmt.Fprintf(tw, "%s\tfailed\t%s (exit %d)\n", res.Stage, res.Duration.Round(time.Millisecond), res.ExitCode)
		}
	}
	_ = tw.Flush()
	fmt.Fprintln(w, outcome.Summary())
}

// loadConfig reads the config file named by --config or STACKCTL_CONFIG.
// When neither is set and the default file does not exist, built-in
// defaults apply; an explicitly named file must exist.
func loadConfig(cmd *cobra.Command, opts *Options) (*config.Config, error) {
	configFlag := cmd.Flag("config")
	explicit := (configFlag != nil && configFlag.Changed) || envPresent("STACKCTL_CONFIG")
	if !explicit {
		if _, err := os.Stat(opts.ConfigPath); errors.Is(err, fs.ErrNotExist) {
			return config.Default(), nil
		}
	}
	return config.Load(opts.ConfigPath)
}

// applyEnvOverrides folds STACKCTL_* overrides into the loaded config
// before the engine snapshots it.
func applyEnvOverrides(cfg *config.Config) {
	var overrides runEnv
	if err := parseEnv(&overrides); err != nil {
		return
	}
	if v := strings.TrimSpace(overrides.Approver); v != "" {
		cfg.Approval.Approver = v
	}
	if v := strings.TrimSpace(overrides.ArtifactDir); v != "" {
		cfg.Artifacts.Dir = v
	}
	if v := strings.TrimSpace(overrides.ToolBinary); v != "" {
		cfg.Tool.Binary = v
	}
}
