// Package config holds the settings of a gitfuse mount.
//
// Values start from Default, may be overlaid by a YAML file, and are
// finally overridden by command-line flags. The result is validated once
// and then treated as immutable for the life of the mount.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/dendrascience/gitfuse/gitfs"
	"gopkg.in/yaml.v3"
)

// Config is the complete configuration of one mount.
type Config struct {
	// Repository is the git work tree mirrored by the mount.
	Repository string `yaml:"repository"`

	// Mountpoint is where the filesystem is mounted.
	Mountpoint string `yaml:"mountpoint"`

	// HistoryDir is the reserved top-level directory exposing history.
	HistoryDir string `yaml:"history_dir"`

	// RepoLink is the reserved top-level symlink to the repository.
	RepoLink string `yaml:"repo_link"`

	Git   GitConfig   `yaml:"git"`
	Mount MountConfig `yaml:"mount"`
	Log   LogConfig   `yaml:"log"`
}

// GitConfig configures the git backend.
type GitConfig struct {
	// Binary is the git executable. Default: git from PATH.
	Binary string `yaml:"binary"`

	// AuthorName and AuthorEmail sign every automatic commit.
	AuthorName  string `yaml:"author_name"`
	AuthorEmail string `yaml:"author_email"`

	// Init creates the repository when the directory is not one yet.
	Init bool `yaml:"init"`
}

// MountConfig configures the FUSE mount itself.
type MountConfig struct {
	// AllowOther lets users other than the mounting user access the
	// mount. Requires user_allow_other in /etc/fuse.conf.
	AllowOther bool `yaml:"allow_other"`

	// Debug logs every FUSE request.
	Debug bool `yaml:"debug"`
}

// LogConfig configures process logging.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`

	// File, when set, receives a copy of the log with size-based
	// rotation.
	File string `yaml:"file"`

	MaxSizeMB  int `yaml:"max_size_mb"`
	MaxBackups int `yaml:"max_backups"`
	MaxAgeDays int `yaml:"max_age_days"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		HistoryDir: gitfs.DefaultHistoryDir,
		RepoLink:   gitfs.DefaultRepoLink,
		Git: GitConfig{
			Binary:      "git",
			AuthorName:  "gitfuse",
			AuthorEmail: "gitfuse@localhost",
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  64,
			MaxBackups: 5,
			MaxAgeDays: 30,
		},
	}
}

// LoadFile overlays the YAML file at path on the defaults.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// FS returns the reserved names for the filesystem.
func (c *Config) FS() gitfs.Config {
	return gitfs.Config{HistoryDir: c.HistoryDir, RepoLink: c.RepoLink}
}

// LogLevel parses Log.Level.
func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Repository == "" {
		errs = append(errs, errors.New("repository is required"))
	}
	if c.Mountpoint == "" {
		errs = append(errs, errors.New("mountpoint is required"))
	}
	if c.Repository != "" && c.Mountpoint != "" && PathsOverlap(c.Repository, c.Mountpoint) {
		errs = append(errs, fmt.Errorf("repository %s and mountpoint %s must not contain one another", c.Repository, c.Mountpoint))
	}
	if err := c.FS().Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Git.Binary == "" {
		errs = append(errs, errors.New("git.binary is required"))
	}
	if _, err := c.LogLevel(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// PathsOverlap reports whether one path is the other or lies inside it.
// Relative paths are resolved against the working directory.
func PathsOverlap(path1, path2 string) bool {
	abs1, err := filepath.Abs(path1)
	if err != nil {
		return false
	}
	abs2, err := filepath.Abs(path2)
	if err != nil {
		return false
	}
	return within(abs1, abs2) || within(abs2, abs1)
}

func within(child, parent string) bool {
	if child == parent {
		return true
	}
	if !strings.HasSuffix(parent, string(filepath.Separator)) {
		parent += string(filepath.Separator)
	}
	return strings.HasPrefix(child, parent)
}
