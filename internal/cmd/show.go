package cmd

import (
	"github.com/dendrascience/gitfuse/gitrepo"
	"github.com/dendrascience/gitfuse/internal/logging"
	"github.com/spf13/cobra"
)

// NewShowCmd creates and returns the show subcommand for the gitfuse CLI.
// It prints the content of a path as recorded in one commit.
func NewShowCmd() *cobra.Command {
	var gitBinary string

	cmd := &cobra.Command{
		Use:   "show REPOSITORY COMMIT PATH",
		Short: "Print a path as recorded in a commit",
		Long: `Print the content of PATH as recorded in COMMIT to standard output.

COMMIT is a full commit id as listed by the history command or the mounted
history directory.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := gitrepo.Open(cmd.Context(), args[0], gitrepo.Options{
				Binary: gitBinary,
				Logger: logging.Discard(),
			})
			if err != nil {
				return err
			}
			data, err := repo.Show(cmd.Context(), gitrepo.CommitID(args[1]), args[2])
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	cmd.Flags().StringVar(&gitBinary, "git", "git", "git executable")

	return cmd
}
