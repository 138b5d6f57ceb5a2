// Package memrepo is an in-memory gitrepo.Gateway for tests. It snapshots
// the work tree on Stage the way git's index does, so engine and
// filesystem tests run without a git executable.
package memrepo

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dendrascience/gitfuse/gitrepo"
)

// Commit is one recorded snapshot.
type Commit struct {
	ID      gitrepo.CommitID
	Message string
	Changed []string

	tree map[string][]byte
}

// Repo stores commits in memory over a real work tree.
type Repo struct {
	root string

	// Delay is slept inside every Stage and Commit call; tests raise it
	// to widen race windows.
	Delay time.Duration

	mu      sync.Mutex
	index   map[string][]byte
	commits []Commit
	failure error

	inflight atomic.Int32
	overlaps atomic.Int32
}

var _ gitrepo.Gateway = (*Repo)(nil)

// New returns a Repo over the work tree at root.
func New(root string) *Repo {
	return &Repo{
		root:  root,
		index: make(map[string][]byte),
	}
}

// FailWith makes every following Stage and Commit return err. A nil err
// restores normal operation.
func (r *Repo) FailWith(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failure = err
}

// Commits returns the recorded commits, oldest first.
func (r *Repo) Commits() []Commit {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Commit(nil), r.commits...)
}

// Overlaps counts Stage or Commit calls that ran while another one was
// still in flight.
func (r *Repo) Overlaps() int {
	return int(r.overlaps.Load())
}

func (r *Repo) RepoRoot() string {
	return r.root
}

func (r *Repo) enter() func() {
	if r.inflight.Add(1) > 1 {
		r.overlaps.Add(1)
	}
	if r.Delay > 0 {
		time.Sleep(r.Delay)
	}
	return func() { r.inflight.Add(-1) }
}

func (r *Repo) Stage(ctx context.Context, paths ...string) error {
	defer r.enter()()

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failure != nil {
		return r.failure
	}

	for _, p := range paths {
		p = clean(p)
		for name := range r.index {
			if p == "" || name == p || strings.HasPrefix(name, p+"/") {
				delete(r.index, name)
			}
		}

		start := filepath.Join(r.root, filepath.FromSlash(p))
		err := filepath.WalkDir(start, func(full string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			rel, err := filepath.Rel(r.root, full)
			if err != nil {
				return err
			}
			rel = filepath.ToSlash(rel)
			if d.IsDir() {
				if d.Name() == ".git" {
					return filepath.SkipDir
				}
				return nil
			}
			var content []byte
			if d.Type()&fs.ModeSymlink != 0 {
				target, err := os.Readlink(full)
				if err != nil {
					return err
				}
				content = []byte(target)
			} else {
				content, err = os.ReadFile(full)
				if err != nil {
					return err
				}
			}
			r.index[rel] = content
			return nil
		})
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

func (r *Repo) Commit(ctx context.Context, message string) (gitrepo.CommitID, error) {
	defer r.enter()()

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failure != nil {
		return "", r.failure
	}

	head := map[string][]byte{}
	parent := ""
	if n := len(r.commits); n > 0 {
		head = r.commits[n-1].tree
		parent = string(r.commits[n-1].ID)
	}

	changed := map[string]bool{}
	for name, content := range r.index {
		if old, ok := head[name]; !ok || !bytes.Equal(old, content) {
			changed[name] = true
		}
	}
	for name := range head {
		if _, ok := r.index[name]; !ok {
			changed[name] = true
		}
	}
	if len(changed) == 0 {
		return "", gitrepo.ErrNothingToCommit
	}

	tree := make(map[string][]byte, len(r.index))
	for name, content := range r.index {
		tree[name] = content
	}
	names := make([]string, 0, len(changed))
	for name := range changed {
		names = append(names, name)
	}
	sort.Strings(names)

	sum := sha1.Sum([]byte(fmt.Sprintf("%s\x00%d\x00%s\x00%s", parent, len(r.commits), message, strings.Join(names, "\x00"))))
	commit := Commit{
		ID:      gitrepo.CommitID(hex.EncodeToString(sum[:])),
		Message: message,
		Changed: names,
		tree:    tree,
	}
	r.commits = append(r.commits, commit)
	return commit.ID, nil
}

func (r *Repo) Log(ctx context.Context, p string) ([]gitrepo.CommitID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p = clean(p)
	var ids []gitrepo.CommitID
	for _, c := range r.commits {
		for _, name := range c.Changed {
			if p == "" || name == p || strings.HasPrefix(name, p+"/") {
				ids = append(ids, c.ID)
				break
			}
		}
	}
	return ids, nil
}

func (r *Repo) Show(ctx context.Context, id gitrepo.CommitID, p string) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, c := range r.commits {
		if c.ID != id {
			continue
		}
		content, ok := c.tree[clean(p)]
		if !ok {
			return nil, fmt.Errorf("%w: %s", gitrepo.ErrPathNotInCommit, p)
		}
		return append([]byte(nil), content...), nil
	}
	return nil, fmt.Errorf("%w: %s", gitrepo.ErrCommitNotFound, id)
}

func clean(p string) string {
	return strings.TrimPrefix(path.Clean("/"+p), "/")
}
