package gitfs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"bazil.org/fuse"
	"bazil.org/fuse/fs"
	"github.com/dendrascience/gitfuse/commit"
	"github.com/dendrascience/gitfuse/gitrepo"
)

// attrValid bounds how long the kernel trusts attributes of real
// entries, so changes made directly in the backing directory show up.
const attrValid = time.Second

// Options configures a filesystem.
type Options struct {
	// Config holds the reserved names. Zero values use the defaults.
	Config Config

	// Repo is the version-control backend. Required.
	Repo gitrepo.Gateway

	// Engine commits mutations. If nil, one is built over Repo.
	Engine *commit.Engine

	// Logger receives diagnostic messages. If nil, a no-op logger
	// is used.
	Logger *slog.Logger
}

// FS implements the gitfuse FUSE filesystem
type FS struct {
	config    Config
	repo      gitrepo.Gateway
	engine    *commit.Engine
	tree      *RealTree
	logger    *slog.Logger
	repoLink  string
	mountedAt time.Time
	root      *Dir
	nodes     *nodeTable
}

var (
	_ fs.FS          = (*FS)(nil)
	_ fs.FSDestroyer = (*FS)(nil)
)

// New creates a filesystem mirroring the work tree of options.Repo.
func New(options Options) (*FS, error) {
	if options.Repo == nil {
		return nil, errors.New("repository is required")
	}
	config := options.Config.withDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if options.Logger == nil {
		options.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if options.Engine == nil {
		options.Engine = commit.NewEngine(options.Repo, commit.Options{Logger: options.Logger})
	}

	root := options.Repo.RepoRoot()
	filesys := &FS{
		config:    config,
		repo:      options.Repo,
		engine:    options.Engine,
		tree:      NewRealTree(root),
		logger:    options.Logger,
		repoLink:  strings.TrimSuffix(filepath.Clean(root), "/") + "/",
		mountedAt: time.Now(),
		nodes:     newNodeTable(),
	}
	filesys.root = &Dir{node: node{fs: filesys}}
	return filesys, nil
}

// Root returns the root directory node
func (filesys *FS) Root() (fs.Node, error) {
	return filesys.root, nil
}

// Destroy commits changes still waiting in the engine. Linux sends it
// only to fuseblk mounts, so the mount command closes the engine itself
// once serving ends.
func (filesys *FS) Destroy() {
	if err := filesys.engine.Close(context.Background()); err != nil {
		filesys.logger.Error("committing pending changes at unmount", "error", err)
	}
}

// Config returns the reserved names in effect.
func (filesys *FS) Config() Config {
	return filesys.config
}

// node is the state shared by every real-tree node: the mount path it
// currently stands for. Renames retarget it in place.
type node struct {
	fs *FS

	mu   sync.RWMutex
	path string
}

func (n *node) Path() string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.path
}

func (n *node) setPath(p string) {
	n.mu.Lock()
	n.path = p
	n.mu.Unlock()
}

func (n *node) base() *node {
	return n
}

// attr fills a from the backing entry's current host metadata.
func (n *node) attr(a *fuse.Attr) error {
	p := n.Path()
	info, err := n.fs.tree.Lstat(p)
	if err != nil {
		return toErrno(err)
	}
	fillAttr(a, info)
	if p == "" {
		a.Inode = 1
	}
	return nil
}

// Forget drops the node from the table once the kernel releases it.
func (n *node) Forget() {
	n.fs.nodes.drop(n.Path(), n)
}

// setattr applies chmod, chown, truncate and utimes to the backing
// entry. Only a size change is a content change worth committing.
func (n *node) setattr(ctx context.Context, req *fuse.SetattrRequest, resp *fuse.SetattrResponse) error {
	p := n.Path()
	tree := n.fs.tree

	if req.Valid.Mode() {
		if err := tree.Chmod(p, req.Mode.Perm()); err != nil {
			return toErrno(err)
		}
	}

	if req.Valid.Uid() || req.Valid.Gid() {
		uid, gid := -1, -1
		if req.Valid.Uid() {
			uid = int(req.Uid)
		}
		if req.Valid.Gid() {
			gid = int(req.Gid)
		}
		if err := tree.Lchown(p, uid, gid); err != nil {
			return toErrno(err)
		}
	}

	if req.Valid.Size() {
		if err := tree.Truncate(p, int64(req.Size)); err != nil {
			return toErrno(err)
		}
		if err := n.fs.engine.Truncate(ctx, p); err != nil {
			n.fs.logger.Warn("commit after truncate failed", "path", p, "error", err)
			return toErrno(err)
		}
	}

	if req.Valid.Atime() || req.Valid.Mtime() || req.Valid.AtimeNow() || req.Valid.MtimeNow() {
		info, err := tree.Lstat(p)
		if err != nil {
			return toErrno(err)
		}
		var current fuse.Attr
		fillAttr(&current, info)

		now := time.Now()
		atime, mtime := current.Atime, current.Mtime
		switch {
		case req.Valid.AtimeNow():
			atime = now
		case req.Valid.Atime():
			atime = req.Atime
		}
		switch {
		case req.Valid.MtimeNow():
			mtime = now
		case req.Valid.Mtime():
			mtime = req.Mtime
		}
		if err := tree.Chtimes(p, atime, mtime); err != nil {
			return toErrno(err)
		}
	}

	return n.attr(&resp.Attr)
}

func fillAttr(a *fuse.Attr, info os.FileInfo) {
	a.Valid = attrValid
	a.Size = uint64(info.Size())
	a.Mode = info.Mode()
	a.Mtime = info.ModTime()
	fillHostAttr(a, info)
}

func direntType(mode os.FileMode) fuse.DirentType {
	switch {
	case mode.IsDir():
		return fuse.DT_Dir
	case mode&os.ModeSymlink != 0:
		return fuse.DT_Link
	case mode.IsRegular():
		return fuse.DT_File
	default:
		return fuse.DT_Unknown
	}
}

// realNode is implemented by Dir, File and Symlink.
type realNode interface {
	fs.Node
	base() *node
}

// nodeTable keeps one node per live mount path so that repeated lookups
// return the same node and renames can retarget nodes the kernel still
// holds.
type nodeTable struct {
	mu    sync.Mutex
	nodes map[string]realNode
}

func newNodeTable() *nodeTable {
	return &nodeTable{nodes: make(map[string]realNode)}
}

// lookup returns the node for p, creating one matching info's type when
// none exists or the cached one has the wrong type.
func (t *nodeTable) lookup(filesys *FS, p string, info os.FileInfo) realNode {
	t.mu.Lock()
	defer t.mu.Unlock()

	if n, ok := t.nodes[p]; ok && sameType(n, info.Mode()) {
		return n
	}

	var n realNode
	switch {
	case info.IsDir():
		n = &Dir{node: node{fs: filesys, path: p}}
	case info.Mode()&os.ModeSymlink != 0:
		n = &Symlink{node: node{fs: filesys, path: p}}
	default:
		n = &File{node: node{fs: filesys, path: p}}
	}
	t.nodes[p] = n
	return n
}

func (t *nodeTable) drop(p string, n *node) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if cur, ok := t.nodes[p]; ok && cur.base() == n {
		delete(t.nodes, p)
	}
}

// move rekeys oldPath and everything below it to newPath.
func (t *nodeTable) move(oldPath, newPath string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for p := range t.nodes {
		if p == newPath || strings.HasPrefix(p, newPath+"/") {
			delete(t.nodes, p)
		}
	}

	moved := make(map[string]realNode)
	for p, n := range t.nodes {
		var target string
		switch {
		case p == oldPath:
			target = newPath
		case strings.HasPrefix(p, oldPath+"/"):
			target = newPath + p[len(oldPath):]
		default:
			continue
		}
		delete(t.nodes, p)
		n.base().setPath(target)
		moved[target] = n
	}
	for p, n := range moved {
		t.nodes[p] = n
	}
}

// forget drops p and everything below it.
func (t *nodeTable) forget(p string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for key := range t.nodes {
		if key == p || strings.HasPrefix(key, p+"/") {
			delete(t.nodes, key)
		}
	}
}

func sameType(n realNode, mode os.FileMode) bool {
	switch n.(type) {
	case *Dir:
		return mode.IsDir()
	case *Symlink:
		return mode&os.ModeSymlink != 0
	default:
		return mode.IsRegular()
	}
}
