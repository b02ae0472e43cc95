package cli

import (
	"github.com/spf13/cobra"

	"github.com/stackgate/stackctl/internal/run"
)

// newPlanCommand creates the "plan" subcommand. A plan run computes and
// records a change plan without touching real resources.
func newPlanCommand(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Compute and record a change plan for an environment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAction(cmd, opts, run.ActionPlan)
		},
	}
	addRunFlags(cmd)
	return cmd
}
