package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/stackgate/stackctl/internal/config"
)

// newEnvironmentsCommand creates the "environments" subcommand, which lists
// every configured environment after inheritance is resolved.
func newEnvironmentsCommand(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:     "environments",
		Aliases: []string{"envs"},
		Short:   "List configured environments and their approval policies",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			defer func() { _ = w.Flush() }()

			fmt.Fprintf(w, "NAME\tREGION\tVAR FILE\tESCALATED APPROVAL\n")
			for _, name := range cfg.Names() {
				resolved, err := config.ResolveEnvironment(cfg, name)
				if err != nil {
					return err
				}
				varFile := resolved.VarFile
				if varFile == "" {
					varFile = "-"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%v\n", resolved.Name, resolved.Region, varFile, resolved.EscalatedApproval)
			}
			return nil
		},
	}
}
