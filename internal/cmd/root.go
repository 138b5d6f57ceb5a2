package cmd

import (
	"github.com/dendrascience/gitfuse/version"
	"github.com/spf13/cobra"
)

// NewRootCmd creates and returns the root cobra command for the gitfuse CLI.
// It sets up all subcommands, command groups, and basic configuration.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "gitfuse",
		Short: "gitfuse - A FUSE filesystem that commits every edit to git",
		Long: `gitfuse is a FUSE filesystem that transparently version-controls every
write made through its mount point.

The mount mirrors a git work tree. Every completed edit, deletion and rename
is committed automatically, and the read-only .githistory directory exposes
every past version of every file.

Use subcommands to perform different operations:
  - mount: Mount a git work tree at a specified mountpoint
  - history: List the commits that touched a path
  - show: Print a path as recorded in a commit
  - version: Print build information`,
		Version:       version.GetFullVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	groupUtilities := "utilities"
	groupFilesystem := "filesystem"

	// Add command groups for better organization
	rootCmd.AddGroup(&cobra.Group{
		ID:    groupFilesystem,
		Title: "Filesystem Operations",
	})
	rootCmd.AddGroup(&cobra.Group{
		ID:    groupUtilities,
		Title: "Utility Commands",
	})

	mountCmd := NewMountCmd()
	historyCmd := NewHistoryCmd()
	showCmd := NewShowCmd()
	versionCmd := NewVersionCmd()

	mountCmd.GroupID = groupFilesystem
	historyCmd.GroupID = groupUtilities
	showCmd.GroupID = groupUtilities
	versionCmd.GroupID = groupUtilities

	// Add subcommands
	rootCmd.AddCommand(mountCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(versionCmd)

	return rootCmd
}
