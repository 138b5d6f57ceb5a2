package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"bazil.org/fuse"
	"bazil.org/fuse/fs"
	"github.com/dendrascience/gitfuse/commit"
	"github.com/dendrascience/gitfuse/gitfs"
	"github.com/dendrascience/gitfuse/gitrepo"
	"github.com/dendrascience/gitfuse/internal/config"
	"github.com/dendrascience/gitfuse/internal/logging"
	"github.com/dendrascience/gitfuse/version"
	"github.com/spf13/cobra"
)

type mountFlags struct {
	configFile  string
	historyDir  string
	repoLink    string
	gitBinary   string
	authorName  string
	authorEmail string
	logLevel    string
	logFile     string
	init        bool
	allowOther  bool
	debug       bool
}

// NewMountCmd creates and returns the mount subcommand for the gitfuse CLI.
// It handles mounting a git work tree at a specified mountpoint.
func NewMountCmd() *cobra.Command {
	return newMountCmd(runMount)
}

func newMountCmd(run func(context.Context, *config.Config) error) *cobra.Command {
	var flags mountFlags

	cmd := &cobra.Command{
		Use:   "mount REPOSITORY MOUNTPOINT",
		Short: "Mount a git work tree",
		Long: `Mount a git work tree at the specified mountpoint.

REPOSITORY is the top level of a git work tree. With --init it is created
when it is not a repository yet.
MOUNTPOINT is the directory where the filesystem will be mounted.

Settings may also come from a YAML file given with --config; flags win
over the file.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := mountConfig(cmd, &flags, args)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	defaults := config.Default()
	cmd.Flags().StringVarP(&flags.configFile, "config", "c", "", "Path to a YAML config file")
	cmd.Flags().StringVar(&flags.historyDir, "history-dir", defaults.HistoryDir, "Name of the reserved history directory")
	cmd.Flags().StringVar(&flags.repoLink, "repo-link", defaults.RepoLink, "Name of the reserved repository symlink")
	cmd.Flags().StringVar(&flags.gitBinary, "git", defaults.Git.Binary, "git executable")
	cmd.Flags().StringVar(&flags.authorName, "author-name", defaults.Git.AuthorName, "Author name for automatic commits")
	cmd.Flags().StringVar(&flags.authorEmail, "author-email", defaults.Git.AuthorEmail, "Author email for automatic commits")
	cmd.Flags().StringVar(&flags.logLevel, "log-level", defaults.Log.Level, "Log level (debug, info, warn, error)")
	cmd.Flags().StringVar(&flags.logFile, "log-file", "", "Also write logs to this file, rotated by size")
	cmd.Flags().BoolVar(&flags.init, "init", false, "Initialize the repository if it does not exist")
	cmd.Flags().BoolVar(&flags.allowOther, "allow-other", false, "Allow other users to access the mount")
	cmd.Flags().BoolVar(&flags.debug, "debug", false, "Log every FUSE request")

	return cmd
}

// mountConfig layers defaults, the optional config file, positional
// arguments and explicitly set flags, then validates the result.
func mountConfig(cmd *cobra.Command, flags *mountFlags, args []string) (*config.Config, error) {
	cfg := config.Default()
	if flags.configFile != "" {
		var err error
		cfg, err = config.LoadFile(flags.configFile)
		if err != nil {
			return nil, err
		}
	}

	cfg.Repository = args[0]
	cfg.Mountpoint = args[1]

	set := cmd.Flags().Changed
	if set("history-dir") {
		cfg.HistoryDir = flags.historyDir
	}
	if set("repo-link") {
		cfg.RepoLink = flags.repoLink
	}
	if set("git") {
		cfg.Git.Binary = flags.gitBinary
	}
	if set("author-name") {
		cfg.Git.AuthorName = flags.authorName
	}
	if set("author-email") {
		cfg.Git.AuthorEmail = flags.authorEmail
	}
	if set("init") {
		cfg.Git.Init = flags.init
	}
	if set("log-level") {
		cfg.Log.Level = flags.logLevel
	}
	if set("log-file") {
		cfg.Log.File = flags.logFile
	}
	if set("allow-other") {
		cfg.Mount.AllowOther = flags.allowOther
	}
	if set("debug") {
		cfg.Mount.Debug = flags.debug
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runMount(ctx context.Context, cfg *config.Config) error {
	level, err := cfg.LogLevel()
	if err != nil {
		return err
	}
	logger, closeLog := logging.New(logging.Options{
		Level:      level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	defer closeLog()

	logger.Info("gitfuse starting", "version", version.GetFullVersion())

	repo, err := gitrepo.Open(ctx, cfg.Repository, gitrepo.Options{
		Binary:      cfg.Git.Binary,
		AuthorName:  cfg.Git.AuthorName,
		AuthorEmail: cfg.Git.AuthorEmail,
		Init:        cfg.Git.Init,
		Logger:      logger.With("component", "gitrepo"),
	})
	if err != nil {
		return fmt.Errorf("opening repository: %w", err)
	}

	engine := commit.NewEngine(repo, commit.Options{Logger: logger.With("component", "commit")})
	filesystem, err := gitfs.New(gitfs.Options{
		Config: cfg.FS(),
		Repo:   repo,
		Engine: engine,
		Logger: logger.With("component", "gitfs"),
	})
	if err != nil {
		return err
	}

	if cfg.Mount.Debug {
		fuse.Debug = func(msg interface{}) {
			logger.Debug("fuse", "request", msg)
		}
	}

	options := []fuse.MountOption{
		fuse.FSName("gitfuse"),
		fuse.Subtype("gitfuse"),
	}
	if cfg.Mount.AllowOther {
		options = append(options, fuse.AllowOther())
	}

	c, err := fuse.Mount(cfg.Mountpoint, options...)
	if err != nil {
		return fmt.Errorf("mounting %s: %w", cfg.Mountpoint, err)
	}
	defer c.Close()

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	served := make(chan struct{})
	go func() {
		select {
		case <-served:
			return
		case <-sigCtx.Done():
		}
		logger.Info("received signal, unmounting", "mountpoint", cfg.Mountpoint)
		if err := fuse.Unmount(cfg.Mountpoint); err != nil {
			logger.Error("unmount failed", "mountpoint", cfg.Mountpoint, "error", err)
		}
	}()

	logger.Info("mounted", "mountpoint", cfg.Mountpoint, "repository", repo.RepoRoot())
	err = fs.Serve(c, filesystem)
	close(served)
	if cerr := engine.Close(context.WithoutCancel(ctx)); cerr != nil {
		logger.Error("committing pending changes", "error", cerr)
	}
	if err != nil {
		return fmt.Errorf("serving %s: %w", cfg.Mountpoint, err)
	}
	logger.Info("shutdown complete")
	return nil
}
