package cli

import (
	"github.com/spf13/cobra"

	"github.com/stackgate/stackctl/internal/run"
)

// newApplyCommand creates the "apply" subcommand. An apply run plans the
// change, waits for approval, and then executes the recorded plan.
func newApplyCommand(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Plan, gate on approval, and apply changes to an environment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAction(cmd, opts, run.ActionApply)
		},
	}
	addRunFlags(cmd)
	return cmd
}
