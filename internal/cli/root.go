// Package cli wires the stackctl commands together. Each subcommand is a
// thin shell around the run engine and the config loader; the CLI layer owns
// flag parsing, environment-variable defaults, and exit-code mapping.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/stackgate/stackctl/internal/config"
	"github.com/stackgate/stackctl/internal/logging"
)

// Options holds the root flag values shared by all subcommands.
type Options struct {
	ConfigPath string
	Env        string
	Region     string
	LogLevel   string
}

type loggerKey struct{}

// Execute builds the command tree and runs it with the given arguments.
func Execute(args []string, logger *slog.Logger) error {
	opts, err := defaultOptions()
	if err != nil {
		return err
	}

	rootCmd := newRootCommand(opts)
	rootCmd.SetArgs(args)
	rootCmd.SetContext(context.WithValue(context.Background(), loggerKey{}, logger))
	return rootCmd.Execute()
}

// defaultOptions seeds the root flags, letting STACKCTL_* variables override
// the built-in defaults. Explicit flags still win over both.
func defaultOptions() (*Options, error) {
	base := baseEnv{
		ConfigPath: config.DefaultFileName,
		LogLevel:   "info",
	}
	if err := parseEnv(&base); err != nil {
		return nil, fmt.Errorf("parse STACKCTL environment variables: %w", err)
	}
	return &Options{
		ConfigPath: base.ConfigPath,
		Env:        base.Env,
		Region:     base.Region,
		LogLevel:   base.LogLevel,
	}, nil
}

func newRootCommand(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "stackctl",
		Short:         "Run infrastructure changes through a staged, gated pipeline",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			level := logging.ParseLevel(opts.LogLevel)
			logger := logging.NewLogger(os.Stderr, level)
			cmd.SetContext(context.WithValue(cmd.Context(), loggerKey{}, logger))
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", opts.ConfigPath, "path to the stackctl config file")
	cmd.PersistentFlags().StringVar(&opts.Env, "env", opts.Env, "target environment name")
	cmd.PersistentFlags().StringVar(&opts.Region, "region", opts.Region, "override the environment's region for this run")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", opts.LogLevel, "log level (debug, info, warn, error)")

	cmd.AddCommand(
		newPlanCommand(opts),
		newApplyCommand(opts),
		newDestroyCommand(opts),
		newEnvironmentsCommand(opts),
		newArtifactsCommand(opts),
		newDoctorCommand(opts),
	)

	return cmd
}

// LoggerFromContext returns the logger stored by Execute, or a default
// stderr logger when called outside the command tree.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return logger
	}
	return logging.NewLogger(os.Stderr, logging.LevelInfo)
}
