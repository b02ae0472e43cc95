package cli

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/stackgate/stackctl/internal/artifact"
	"github.com/stackgate/stackctl/internal/config"
)

// newArtifactsCommand groups the plan artifact maintenance subcommands.
func newArtifactsCommand(opts *Options) *cobra.Command {
	return newGroupCommand(
		"artifacts",
		"Inspect and prune recorded plan artifacts",
		newArtifactsListCommand(opts),
		newArtifactsPruneCommand(opts),
	)
}

func newArtifactsListCommand(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List recorded plan artifacts for an environment, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			manager, err := artifactManager(cmd, opts)
			if err != nil {
				return err
			}

			artifacts, err := manager.List(opts.Env)
			if err != nil {
				return err
			}
			if len(artifacts) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "no plan artifacts recorded for environment %q\n", opts.Env)
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			defer func() { _ = w.Flush() }()

			fmt.Fprintf(w, "PATH\tCREATED\n")
			for _, a := range artifacts {
				fmt.Fprintf(w, "%s\t%s\n", a.Path, a.CreatedAt.UTC().Format(time.RFC3339))
			}
			return nil
		},
	}
}

func newArtifactsPruneCommand(opts *Options) *cobra.Command {
	var keep int
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete old plan artifacts, keeping the most recent ones",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			manager, err := artifactManager(cmd, opts)
			if err != nil {
				return err
			}

			removed, err := manager.Prune(opts.Env, keep)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d artifact(s) for environment %q\n", removed, opts.Env)
			return nil
		},
	}
	cmd.Flags().IntVar(&keep, "keep", artifact.DefaultKeep, "number of recent artifacts to keep")
	return cmd
}

// artifactManager builds a Manager over the real filesystem from the loaded
// config, after checking the environment flag and name.
func artifactManager(cmd *cobra.Command, opts *Options) (*artifact.Manager, error) {
	if strings.TrimSpace(opts.Env) == "" {
		return nil, errors.New("environment is required: pass --env or set STACKCTL_ENV")
	}

	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return nil, err
	}
	applyEnvOverrides(cfg)
	if _, err := config.ResolveEnvironment(cfg, opts.Env); err != nil {
		return nil, err
	}

	logger := LoggerFromContext(cmd.Context())
	return artifact.NewManager(afero.NewOsFs(), logger, cfg.ArtifactsDir(), cfg.Artifacts.Prefix, cfg.Artifacts.Extension), nil
}
