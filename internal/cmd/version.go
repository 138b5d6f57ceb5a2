package cmd

import (
	"github.com/dendrascience/gitfuse/version"
	"github.com/spf13/cobra"
)

// NewVersionCmd prints build information in more detail than --version.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			version.Write(cmd.OutOrStdout(), "gitfuse")
		},
	}
}
