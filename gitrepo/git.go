package gitrepo

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// waitDelay bounds how long an interrupted git may take to clean up its
// lock files before it is killed.
const waitDelay = 10 * time.Second

// Options configures a Repository.
type Options struct {
	// Binary is the git executable. Empty means "git" from PATH.
	Binary string

	// AuthorName and AuthorEmail override the identity recorded on
	// automatic commits. Empty values fall back to git's own config.
	AuthorName  string
	AuthorEmail string

	// Init creates the repository when the directory is not yet a
	// git work tree.
	Init bool

	// Logger receives diagnostic messages. If nil, a no-op logger
	// is used.
	Logger *slog.Logger
}

// Repository implements Gateway by running the git executable against
// a work tree.
type Repository struct {
	root   string
	binary string
	env    []string
	logger *slog.Logger
}

var _ Gateway = (*Repository)(nil)

// Open attaches to the git work tree rooted at dir. dir must be the top
// level of the work tree, not a subdirectory of one.
func Open(ctx context.Context, dir string, options Options) (*Repository, error) {
	if options.Binary == "" {
		options.Binary = "git"
	}
	if options.Logger == nil {
		options.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", dir, err)
	}
	abs, err = filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", dir, err)
	}

	r := &Repository{
		root:   abs,
		binary: options.Binary,
		logger: options.Logger,
		env: append(os.Environ(),
			"GIT_LITERAL_PATHSPECS=1",
			"GIT_TERMINAL_PROMPT=0",
			"LC_ALL=C",
		),
	}
	if options.AuthorName != "" {
		r.env = append(r.env, "GIT_AUTHOR_NAME="+options.AuthorName, "GIT_COMMITTER_NAME="+options.AuthorName)
	}
	if options.AuthorEmail != "" {
		r.env = append(r.env, "GIT_AUTHOR_EMAIL="+options.AuthorEmail, "GIT_COMMITTER_EMAIL="+options.AuthorEmail)
	}

	top, err := r.run(ctx, "rev-parse", "--show-toplevel")
	if err != nil {
		if !options.Init {
			return nil, fmt.Errorf("%w: %s", ErrNotRepository, abs)
		}
		if _, err := r.run(ctx, "init", "-q"); err != nil {
			return nil, err
		}
		r.logger.Info("initialized repository", "root", abs)
		top, err = r.run(ctx, "rev-parse", "--show-toplevel")
		if err != nil {
			return nil, err
		}
	}

	toplevel, err := filepath.EvalSymlinks(strings.TrimSpace(string(top)))
	if err != nil {
		return nil, fmt.Errorf("resolving work tree root: %w", err)
	}
	if toplevel != abs {
		return nil, fmt.Errorf("%w: %s is inside %s", ErrNotRepository, abs, toplevel)
	}

	return r, nil
}

// RepoRoot returns the absolute work tree path.
func (r *Repository) RepoRoot() string {
	return r.root
}

// Stage adds present paths and removes missing ones from the index in
// at most three git invocations. Present paths the repository ignores
// are left out; git refuses to add them without force.
func (r *Repository) Stage(ctx context.Context, paths ...string) error {
	var present, absent []string
	for _, p := range paths {
		p = cleanPath(p)
		_, err := os.Lstat(filepath.Join(r.root, filepath.FromSlash(p)))
		switch {
		case err == nil:
			present = append(present, p)
		case errors.Is(err, fs.ErrNotExist):
			absent = append(absent, p)
		default:
			return err
		}
	}

	if len(absent) > 0 {
		args := append([]string{"rm", "-r", "-q", "--cached", "--ignore-unmatch", "--"}, absent...)
		if _, err := r.run(ctx, args...); err != nil {
			return err
		}
	}
	present, err := r.unignored(ctx, present)
	if err != nil {
		return err
	}
	if len(present) > 0 {
		args := append([]string{"add", "-A", "--"}, present...)
		if _, err := r.run(ctx, args...); err != nil {
			return err
		}
	}
	return nil
}

// Commit records the index as a new commit on the current branch.
func (r *Repository) Commit(ctx context.Context, message string) (CommitID, error) {
	_, err := r.run(ctx, "diff", "--cached", "--quiet")
	switch exitCode(err) {
	case 0:
		return "", ErrNothingToCommit
	case 1:
	default:
		return "", err
	}

	if _, err := r.run(ctx, "commit", "-q", "--no-verify", "--allow-empty-message", "-m", message); err != nil {
		return "", err
	}

	out, err := r.run(ctx, "rev-parse", "HEAD")
	if err != nil {
		return "", err
	}
	id := CommitID(strings.TrimSpace(string(out)))
	r.logger.Debug("committed", "commit", id.Short(), "message", message)
	return id, nil
}

// Log lists the commits touching path, oldest first. A repository
// without commits has an empty log.
func (r *Repository) Log(ctx context.Context, p string) ([]CommitID, error) {
	has, err := r.hasHead(ctx)
	if err != nil || !has {
		return nil, err
	}

	out, err := r.run(ctx, "log", "--reverse", "--format=%H", "--", cleanPath(p))
	if err != nil {
		return nil, err
	}

	var ids []CommitID
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			ids = append(ids, CommitID(line))
		}
	}
	return ids, scanner.Err()
}

// Show returns the raw blob recorded for path in commit id.
func (r *Repository) Show(ctx context.Context, id CommitID, p string) ([]byte, error) {
	if !isHex(string(id)) {
		return nil, fmt.Errorf("%w: %q", ErrCommitNotFound, id)
	}
	if _, err := r.run(ctx, "cat-file", "-e", string(id)+"^{commit}"); err != nil {
		if exitCode(err) > 0 {
			return nil, fmt.Errorf("%w: %s", ErrCommitNotFound, id)
		}
		return nil, err
	}

	out, err := r.run(ctx, "cat-file", "blob", string(id)+":"+cleanPath(p))
	if err != nil {
		if exitCode(err) > 0 {
			return nil, fmt.Errorf("%w: %s at %s", ErrPathNotInCommit, p, id.Short())
		}
		return nil, err
	}
	return out, nil
}

func (r *Repository) hasHead(ctx context.Context) (bool, error) {
	_, err := r.run(ctx, "rev-parse", "-q", "--verify", "HEAD^{commit}")
	switch exitCode(err) {
	case 0:
		return true, nil
	case 1, 128:
		return false, nil
	default:
		return false, err
	}
}

func (r *Repository) run(ctx context.Context, args ...string) ([]byte, error) {
	full := append([]string{
		"-C", r.root,
		"-c", "commit.gpgsign=false",
		"-c", "core.autocrlf=false",
		"-c", "core.quotepath=off",
	}, args...)

	cmd := exec.CommandContext(ctx, r.binary, full...)
	cmd.Env = r.env
	// git removes its index.lock on SIGINT but not on SIGKILL.
	cmd.Cancel = func() error {
		return cmd.Process.Signal(os.Interrupt)
	}
	cmd.WaitDelay = waitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return stdout.Bytes(), &Error{
			Op:     args[0],
			Args:   args,
			Stderr: strings.TrimSpace(stderr.String()),
			Err:    err,
		}
	}
	return stdout.Bytes(), nil
}

// unignored drops the paths matched by the repository's ignore rules.
// Tracked files are never reported as ignored.
func (r *Repository) unignored(ctx context.Context, paths []string) ([]string, error) {
	if len(paths) == 0 {
		return nil, nil
	}
	args := append([]string{"check-ignore", "-z", "--"}, paths...)
	out, err := r.run(ctx, args...)
	switch exitCode(err) {
	case 0:
	case 1:
		// Nothing ignored.
		return paths, nil
	default:
		return nil, err
	}

	ignored := make(map[string]bool)
	for _, p := range strings.Split(string(out), "\x00") {
		if p != "" {
			ignored[p] = true
		}
	}
	kept := paths[:0:0]
	for _, p := range paths {
		if ignored[p] {
			r.logger.Debug("not staging ignored path", "path", p)
			continue
		}
		kept = append(kept, p)
	}
	return kept, nil
}

// exitCode reports the process exit status carried by err: 0 for nil,
// -1 when the process never ran.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

func cleanPath(p string) string {
	p = path.Clean("/" + filepath.ToSlash(p))
	if p == "/" {
		return "."
	}
	return strings.TrimPrefix(p, "/")
}

func isHex(s string) bool {
	if len(s) < 4 {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') && (c < 'A' || c > 'F') {
			return false
		}
	}
	return true
}
