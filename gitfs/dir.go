package gitfs

import (
	"context"
	"os"
	"syscall"

	"bazil.org/fuse"
	"bazil.org/fuse/fs"
	"github.com/dendrascience/gitfuse/util"
)

// Dir is a directory of the real tree. The root directory also carries
// the reserved entries.
type Dir struct {
	node
}

var (
	_ fs.Node               = (*Dir)(nil)
	_ fs.NodeStringLookuper = (*Dir)(nil)
	_ fs.HandleReadDirAller = (*Dir)(nil)
	_ fs.NodeCreater        = (*Dir)(nil)
	_ fs.NodeMkdirer        = (*Dir)(nil)
	_ fs.NodeRemover        = (*Dir)(nil)
	_ fs.NodeRenamer        = (*Dir)(nil)
	_ fs.NodeSymlinker      = (*Dir)(nil)
	_ fs.NodeSetattrer      = (*Dir)(nil)
	_ fs.NodeForgetter      = (*Dir)(nil)
)

// Attr returns directory attributes
func (d *Dir) Attr(ctx context.Context, a *fuse.Attr) error {
	return d.attr(a)
}

// Lookup resolves a name in this directory, routing reserved names at
// the root to the synthetic nodes.
func (d *Dir) Lookup(ctx context.Context, name string) (fs.Node, error) {
	p := joinPath(d.Path(), name)

	switch kind, target := d.fs.config.Classify(p); kind {
	case KindHistory:
		return &historyDir{fs: d.fs, path: target}, nil
	case KindRepoLink:
		return &repoLink{fs: d.fs}, nil
	case KindHidden:
		return nil, syscall.ENOENT
	}

	info, err := d.fs.tree.Lstat(p)
	if err != nil {
		return nil, toErrno(err)
	}
	return d.fs.nodes.lookup(d.fs, p, info), nil
}

// ReadDirAll lists directory contents
func (d *Dir) ReadDirAll(ctx context.Context) ([]fuse.Dirent, error) {
	dir := d.Path()
	entries, err := d.fs.tree.ReadDir(dir)
	if err != nil {
		return nil, toErrno(err)
	}

	dirents := make([]fuse.Dirent, 0, len(entries)+2)
	for _, entry := range entries {
		if kind, _ := d.fs.config.Classify(joinPath(dir, entry.Name())); kind != KindReal {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			// removed between listing and stat
			continue
		}
		dirents = append(dirents, fuse.Dirent{
			Inode: hostInode(info),
			Name:  entry.Name(),
			Type:  direntType(info.Mode()),
		})
	}

	if dir == "" {
		dirents = append(dirents,
			fuse.Dirent{
				Inode: util.InodeFor("history:"),
				Name:  d.fs.config.HistoryDir,
				Type:  fuse.DT_Dir,
			},
			fuse.Dirent{
				Inode: util.InodeFor("repolink:"),
				Name:  d.fs.config.RepoLink,
				Type:  fuse.DT_Link,
			},
		)
	}
	return dirents, nil
}

// Create creates and opens a new regular file. The session starts dirty
// so that an empty new file is still recorded.
func (d *Dir) Create(ctx context.Context, req *fuse.CreateRequest, resp *fuse.CreateResponse) (fs.Node, fs.Handle, error) {
	p, err := d.realChild(req.Name)
	if err != nil {
		return nil, nil, err
	}

	flags := hostOpenFlags(req.Flags)
	if req.Flags&fuse.OpenFlags(os.O_EXCL) != 0 {
		flags |= os.O_EXCL
	}
	f, err := d.fs.tree.Create(p, flags, req.Mode.Perm())
	if err != nil {
		return nil, nil, toErrno(err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, toErrno(err)
	}

	file := d.fs.nodes.lookup(d.fs, p, info).(*File)
	fillAttr(&resp.Attr, info)

	session := d.fs.engine.Open(p, true)
	d.fs.logger.Debug("created file", "path", p, "session", session.ID())
	return file, &handle{file: f, session: session, writable: true, fs: d.fs}, nil
}

// Mkdir creates a directory on the real tree. Empty directories are
// invisible to git, so nothing is committed.
func (d *Dir) Mkdir(ctx context.Context, req *fuse.MkdirRequest) (fs.Node, error) {
	p, err := d.realChild(req.Name)
	if err != nil {
		return nil, err
	}
	if err := d.fs.tree.Mkdir(p, req.Mode.Perm()); err != nil {
		return nil, toErrno(err)
	}
	info, err := d.fs.tree.Lstat(p)
	if err != nil {
		return nil, toErrno(err)
	}
	return d.fs.nodes.lookup(d.fs, p, info), nil
}

// Remove unlinks a file or removes an empty directory. Unlinking a file
// commits its deletion.
func (d *Dir) Remove(ctx context.Context, req *fuse.RemoveRequest) error {
	p, err := d.realChild(req.Name)
	if err != nil {
		return err
	}

	if req.Dir {
		if err := d.fs.tree.Rmdir(p); err != nil {
			return toErrno(err)
		}
		d.fs.nodes.forget(p)
		return nil
	}

	if err := d.fs.tree.Unlink(p); err != nil {
		return toErrno(err)
	}
	d.fs.nodes.forget(p)
	if err := d.fs.engine.Remove(ctx, p); err != nil {
		return toErrno(err)
	}
	return nil
}

// Rename moves an entry on the real tree and commits the move. A
// directory move stages every descendant in the same commit.
func (d *Dir) Rename(ctx context.Context, req *fuse.RenameRequest, newDir fs.Node) error {
	target, ok := newDir.(*Dir)
	if !ok {
		return toErrno(ErrNotSupported)
	}
	oldPath, err := d.realChild(req.OldName)
	if err != nil {
		return err
	}
	newPath, err := target.realChild(req.NewName)
	if err != nil {
		return err
	}

	if err := d.fs.tree.Rename(oldPath, newPath); err != nil {
		return toErrno(err)
	}
	d.fs.nodes.move(oldPath, newPath)
	if err := d.fs.engine.Rename(ctx, oldPath, newPath); err != nil {
		return toErrno(err)
	}
	return nil
}

// Symlink creates a symbolic link on the real tree and commits it.
func (d *Dir) Symlink(ctx context.Context, req *fuse.SymlinkRequest) (fs.Node, error) {
	p, err := d.realChild(req.NewName)
	if err != nil {
		return nil, err
	}
	if err := d.fs.tree.Symlink(req.Target, p); err != nil {
		return nil, toErrno(err)
	}
	info, err := d.fs.tree.Lstat(p)
	if err != nil {
		return nil, toErrno(err)
	}
	n := d.fs.nodes.lookup(d.fs, p, info)
	if err := d.fs.engine.Symlink(ctx, p); err != nil {
		return nil, toErrno(err)
	}
	return n, nil
}

// Setattr changes mode, ownership or times of the directory.
func (d *Dir) Setattr(ctx context.Context, req *fuse.SetattrRequest, resp *fuse.SetattrResponse) error {
	if req.Valid.Size() {
		return syscall.EISDIR
	}
	return d.setattr(ctx, req, resp)
}

// realChild resolves name in d for a mutation. Reserved names refuse
// mutation; the repository metadata directory does not exist as far as
// the mount is concerned.
func (d *Dir) realChild(name string) (string, error) {
	p := joinPath(d.Path(), name)
	switch kind, _ := d.fs.config.Classify(p); kind {
	case KindHistory, KindRepoLink:
		return "", toErrno(ErrNotSupported)
	case KindHidden:
		return "", toErrno(ErrNotFound)
	}
	return p, nil
}

// hostOpenFlags keeps the access mode and sync flags of a kernel open.
// Creation and truncation are handled separately, and appends arrive
// with explicit offsets already computed by the kernel.
func hostOpenFlags(flags fuse.OpenFlags) int {
	return int(flags) &^ (os.O_CREATE | os.O_EXCL | os.O_TRUNC | os.O_APPEND | syscall.O_NOCTTY)
}
