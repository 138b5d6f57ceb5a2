package cmd

import (
	"fmt"

	"github.com/dendrascience/gitfuse/gitrepo"
	"github.com/dendrascience/gitfuse/internal/logging"
	"github.com/spf13/cobra"
)

// NewHistoryCmd creates and returns the history subcommand for the
// gitfuse CLI. It lists the commits of a path the way the mounted
// .githistory directory does, without needing a mount.
func NewHistoryCmd() *cobra.Command {
	var (
		gitBinary string
		short     bool
	)

	cmd := &cobra.Command{
		Use:   "history REPOSITORY PATH",
		Short: "List the commits that touched a path",
		Long: `List the commits that touched PATH, oldest first.

PATH is relative to the top of the work tree at REPOSITORY. The output is
the same list of names the mounted history directory shows for PATH.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := gitrepo.Open(cmd.Context(), args[0], gitrepo.Options{
				Binary: gitBinary,
				Logger: logging.Discard(),
			})
			if err != nil {
				return err
			}
			ids, err := repo.Log(cmd.Context(), args[1])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, id := range ids {
				if short {
					fmt.Fprintln(out, id.Short())
					continue
				}
				fmt.Fprintln(out, id)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&gitBinary, "git", "git", "git executable")
	cmd.Flags().BoolVarP(&short, "short", "s", false, "Print abbreviated commit ids")

	return cmd
}
