package cli

import (
	"github.com/spf13/cobra"

	"github.com/stackgate/stackctl/internal/run"
)

// newDestroyCommand creates the "destroy" subcommand. Destroy runs plan the
// teardown, then gate on approval, twice in environments that escalate.
func newDestroyCommand(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "destroy",
		Short: "Plan, gate on approval, and destroy an environment's resources",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAction(cmd, opts, run.ActionDestroy)
		},
	}
	addRunFlags(cmd)
	return cmd
}
