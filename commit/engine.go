package commit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/dendrascience/gitfuse/gitrepo"
	"github.com/google/uuid"
)

// Kind names the operation recorded in a commit message.
type Kind string

const (
	Created   Kind = "created"
	Edited    Kind = "edited"
	Deleted   Kind = "deleted"
	Renamed   Kind = "renamed"
	Truncated Kind = "truncated"
)

// DefaultTruncateDelay is how long a truncate made outside any handle
// waits for an open of the same path before it is committed on its own.
const DefaultTruncateDelay = time.Second

// Options configures an Engine.
type Options struct {
	// Logger receives one line per commit. If nil, a no-op logger is
	// used.
	Logger *slog.Logger

	// TruncateDelay overrides DefaultTruncateDelay when positive.
	TruncateDelay time.Duration
}

// Engine turns completed edit sessions and single-shot mutations into
// commits. Only one stage+commit sequence runs against the repository
// at any instant.
type Engine struct {
	repo          gitrepo.Gateway
	logger        *slog.Logger
	truncateDelay time.Duration

	// commitMu spans Stage and Commit as one critical section.
	commitMu sync.Mutex

	mu       sync.Mutex
	sessions map[string]map[*Session]struct{}
	// pending holds handle-less truncates not yet committed.
	pending map[string]*pendingTruncate
	closed  bool
}

type pendingTruncate struct {
	timer *time.Timer
}

// NewEngine creates an engine committing into repo.
func NewEngine(repo gitrepo.Gateway, options Options) *Engine {
	if options.Logger == nil {
		options.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if options.TruncateDelay <= 0 {
		options.TruncateDelay = DefaultTruncateDelay
	}
	return &Engine{
		repo:          repo,
		logger:        options.Logger,
		truncateDelay: options.TruncateDelay,
		sessions:      make(map[string]map[*Session]struct{}),
		pending:       make(map[string]*pendingTruncate),
	}
}

// Open starts an edit session for path. A session opened on a freshly
// created file starts dirty so that even an empty new file is recorded,
// and so does one that absorbs a pending truncate of path.
func (e *Engine) Open(path string, created bool) *Session {
	s := &Session{
		id:     uuid.New(),
		engine: e,
		path:   path,
		state:  Opened,
		kind:   Edited,
	}
	if created {
		s.state = Dirty
		s.kind = Created
	}

	e.mu.Lock()
	if pt, ok := e.pending[path]; ok {
		pt.timer.Stop()
		delete(e.pending, path)
		s.state = Dirty
	}
	e.track(s, path)
	e.mu.Unlock()

	e.logger.Debug("session opened", "session", s.id, "path", path, "created", created, "dirty", s.state == Dirty)
	return s
}

// Remove records the deletion of path, a file or a whole directory.
func (e *Engine) Remove(ctx context.Context, path string) error {
	e.mu.Lock()
	e.dropPending(path)
	e.mu.Unlock()

	_, err := e.commit(ctx, fmt.Sprintf("%s %s", Deleted, path), path)
	return err
}

// Rename records a move from oldPath to newPath in one commit. For a
// directory every descendant is staged as removed under oldPath and
// added under newPath in the same batch. Open sessions follow the move.
func (e *Engine) Rename(ctx context.Context, oldPath, newPath string) error {
	e.mu.Lock()
	e.dropPending(oldPath)
	moves := make(map[string]string)
	for path := range e.sessions {
		if moved, ok := rebase(path, oldPath, newPath); ok {
			moves[path] = moved
		}
	}
	for path, moved := range moves {
		set := e.sessions[path]
		delete(e.sessions, path)
		for s := range set {
			s.mu.Lock()
			s.path = moved
			s.mu.Unlock()
			e.track(s, moved)
		}
	}
	e.mu.Unlock()

	_, err := e.commit(ctx, fmt.Sprintf("%s %s to %s", Renamed, oldPath, newPath), oldPath, newPath)
	return err
}

// Symlink records a newly created symbolic link. Links never pass
// through an edit session.
func (e *Engine) Symlink(ctx context.Context, path string) error {
	_, err := e.commit(ctx, fmt.Sprintf("%s %s", Created, path), path)
	return err
}

// Truncate records a size change made outside any handle. When sessions
// are open on path they absorb the change and commit it on close.
// Otherwise the change waits up to the truncate delay for an Open of
// path, which absorbs it the same way; an open(2) with O_TRUNC reaches
// the filesystem as exactly that pair. Unclaimed, it is committed alone.
func (e *Engine) Truncate(ctx context.Context, path string) error {
	e.mu.Lock()
	set := e.sessions[path]
	open := make([]*Session, 0, len(set))
	for s := range set {
		open = append(open, s)
	}
	if len(open) == 0 && !e.closed {
		if pt, ok := e.pending[path]; ok {
			pt.timer.Reset(e.truncateDelay)
		} else {
			next := &pendingTruncate{}
			next.timer = time.AfterFunc(e.truncateDelay, func() { e.expire(path, next) })
			e.pending[path] = next
		}
		e.mu.Unlock()
		return nil
	}
	e.mu.Unlock()

	if len(open) > 0 {
		for _, s := range open {
			s.MarkDirty()
		}
		return nil
	}

	_, err := e.commit(ctx, truncateMessage(path), path)
	return err
}

// Close commits every pending truncate. Later truncates outside a handle
// commit immediately.
func (e *Engine) Close(ctx context.Context) error {
	e.mu.Lock()
	e.closed = true
	paths := make([]string, 0, len(e.pending))
	for path, pt := range e.pending {
		pt.timer.Stop()
		paths = append(paths, path)
	}
	clear(e.pending)
	e.mu.Unlock()

	var errs []error
	for _, path := range paths {
		if _, err := e.commit(ctx, truncateMessage(path), path); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// PendingTruncates reports how many truncates wait for an open.
func (e *Engine) PendingTruncates() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.pending)
}

// expire commits a truncate nobody opened the file for. A truncate
// claimed by Open or superseded by Remove or Rename is gone from the
// table and is skipped.
func (e *Engine) expire(path string, pt *pendingTruncate) {
	e.mu.Lock()
	if e.pending[path] != pt {
		e.mu.Unlock()
		return
	}
	delete(e.pending, path)
	e.mu.Unlock()

	if _, err := e.commit(context.Background(), truncateMessage(path), path); err != nil {
		e.logger.Warn("deferred truncate commit failed", "path", path, "error", err)
	}
}

// dropPending forgets truncates at or below path, whose commit is about
// to stage them anyway. Requires e.mu.
func (e *Engine) dropPending(path string) {
	for p, pt := range e.pending {
		if _, ok := rebase(p, path, path); ok {
			pt.timer.Stop()
			delete(e.pending, p)
		}
	}
}

func truncateMessage(path string) string {
	return fmt.Sprintf("%s %s", Truncated, path)
}

// OpenSessions reports how many sessions are live on path.
func (e *Engine) OpenSessions(path string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.sessions[path])
}

// commit stages paths and commits them under commitMu. An unchanged
// stage is not an error and yields an empty id. Cancelling ctx does not
// interrupt a started stage+commit: a git process killed halfway leaves
// the index locked for every later commit.
func (e *Engine) commit(ctx context.Context, message string, paths ...string) (gitrepo.CommitID, error) {
	ctx = context.WithoutCancel(ctx)

	e.commitMu.Lock()
	defer e.commitMu.Unlock()

	if err := e.repo.Stage(ctx, paths...); err != nil {
		e.logger.Error("staging failed", "paths", paths, "error", err)
		return "", fmt.Errorf("staging %v: %w", paths, err)
	}

	id, err := e.repo.Commit(ctx, message)
	if errors.Is(err, gitrepo.ErrNothingToCommit) {
		e.logger.Debug("nothing to commit", "paths", paths)
		return "", nil
	}
	if err != nil {
		e.logger.Error("commit failed", "message", message, "error", err)
		return "", fmt.Errorf("committing %q: %w", message, err)
	}

	e.logger.Info("committed", "commit", id.Short(), "message", message)
	return id, nil
}

// track and untrack require e.mu.
func (e *Engine) track(s *Session, path string) {
	set, ok := e.sessions[path]
	if !ok {
		set = make(map[*Session]struct{})
		e.sessions[path] = set
	}
	set[s] = struct{}{}
}

func (e *Engine) untrack(s *Session, path string) {
	set := e.sessions[path]
	delete(set, s)
	if len(set) == 0 {
		delete(e.sessions, path)
	}
}

// rebase maps p from under oldPath to under newPath.
func rebase(p, oldPath, newPath string) (string, bool) {
	if p == oldPath {
		return newPath, true
	}
	if len(p) > len(oldPath) && p[:len(oldPath)] == oldPath && p[len(oldPath)] == '/' {
		return newPath + p[len(oldPath):], true
	}
	return "", false
}
