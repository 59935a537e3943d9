package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version of the current build. overridden by the build system.
// see "Makefile" for more information
var (
	Version string
)

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "version",
		Aliases: []string{"v"},
		Short:   "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			if Version == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "Version information not available")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "sift version %s\n", Version)
			return nil
		},
	}
}
