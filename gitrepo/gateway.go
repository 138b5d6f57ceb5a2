package gitrepo

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// CommitID is a full hexadecimal commit hash as assigned by git.
type CommitID string

// Short returns the abbreviated form used in log lines.
func (c CommitID) Short() string {
	if len(c) > 7 {
		return string(c[:7])
	}
	return string(c)
}

// Gateway is the narrow contract the filesystem needs from the
// version-control backend. Paths are slash separated and relative to
// RepoRoot.
type Gateway interface {
	// Stage records the current work tree state of every path in the
	// index. Paths missing from the work tree are staged as removals,
	// directories recursively.
	Stage(ctx context.Context, paths ...string) error

	// Commit turns the index into a new commit. It returns
	// ErrNothingToCommit when the index matches HEAD.
	Commit(ctx context.Context, message string) (CommitID, error)

	// Log lists the commits that touched path, oldest first.
	Log(ctx context.Context, path string) ([]CommitID, error)

	// Show returns the content of path as recorded in commit id.
	Show(ctx context.Context, id CommitID, path string) ([]byte, error)

	// RepoRoot is the absolute path of the work tree.
	RepoRoot() string
}

// Sentinel errors for package gitrepo.
var (
	ErrNothingToCommit = errors.New("nothing to commit")
	ErrCommitNotFound  = errors.New("commit not found")
	ErrPathNotInCommit = errors.New("path not present in commit")
	ErrNotRepository   = errors.New("not a git work tree")
)

// Error describes a failed git invocation.
type Error struct {
	Op     string
	Args   []string
	Stderr string
	Err    error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("git %s failed", e.Op)
	if len(e.Args) > 0 {
		msg = fmt.Sprintf("git %s failed", strings.Join(e.Args, " "))
	}
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}
