package gitfs

import (
	"fmt"
	"strings"
)

const (
	// DefaultHistoryDir is the reserved top-level directory that
	// exposes per-file history.
	DefaultHistoryDir = ".githistory"

	// DefaultRepoLink is the reserved top-level symlink pointing at
	// the backing repository.
	DefaultRepoLink = ".gitfuserepo"

	// gitDir is the repository metadata directory, never exposed.
	gitDir = ".git"
)

// Config holds the mount-wide reserved names. It is built once at
// startup and never mutated.
type Config struct {
	HistoryDir string
	RepoLink   string
}

// Kind classifies a mount path.
type Kind int

const (
	KindReal Kind = iota
	KindHistory
	KindRepoLink
	KindHidden
)

func (k Kind) String() string {
	switch k {
	case KindReal:
		return "real"
	case KindHistory:
		return "history"
	case KindRepoLink:
		return "repolink"
	case KindHidden:
		return "hidden"
	default:
		return "unknown"
	}
}

func (c Config) withDefaults() Config {
	if c.HistoryDir == "" {
		c.HistoryDir = DefaultHistoryDir
	}
	if c.RepoLink == "" {
		c.RepoLink = DefaultRepoLink
	}
	return c
}

// Validate reports reserved names that cannot be used.
func (c Config) Validate() error {
	c = c.withDefaults()
	for _, name := range []string{c.HistoryDir, c.RepoLink} {
		if strings.ContainsRune(name, '/') || name == "." || name == ".." {
			return fmt.Errorf("reserved name %q must be a single path component", name)
		}
		if name == gitDir {
			return fmt.Errorf("reserved name %q collides with the repository directory", name)
		}
	}
	if c.HistoryDir == c.RepoLink {
		return fmt.Errorf("history directory and repository link share the name %q", c.HistoryDir)
	}
	return nil
}

// Classify routes a mount path. For KindHistory the second result is the
// real mount path whose history is addressed ("" for the history root);
// otherwise it is p itself.
func (c Config) Classify(p string) (Kind, string) {
	first, rest, _ := strings.Cut(p, "/")
	switch first {
	case c.HistoryDir:
		return KindHistory, rest
	case c.RepoLink:
		if rest == "" {
			return KindRepoLink, p
		}
		return KindHidden, p
	case gitDir:
		return KindHidden, p
	}
	return KindReal, p
}

// joinPath appends a directory entry name to a mount path.
func joinPath(dir, name string) string {
	if dir == "" {
		return name
	}
	return dir + "/" + name
}
