package gitfs

import (
	"context"
	"errors"
	"os"
	"slices"
	"syscall"

	"bazil.org/fuse"
	"bazil.org/fuse/fs"
	"github.com/dendrascience/gitfuse/gitrepo"
	"github.com/dendrascience/gitfuse/util"
)

const (
	historyMode  = os.ModeDir | 0o555
	revisionMode = 0o444
)

// historyDir mirrors a directory of the real tree under the history
// root. Its children are history directories for subdirectories and
// version directories for files.
type historyDir struct {
	readOnly
	fs   *FS
	path string
}

var (
	_ fs.Node               = (*historyDir)(nil)
	_ fs.NodeStringLookuper = (*historyDir)(nil)
	_ fs.HandleReadDirAller = (*historyDir)(nil)
	_ fs.NodeForgetter      = (*historyDir)(nil)
)

func (d *historyDir) key() string {
	return "history:" + d.path
}

func (d *historyDir) Attr(ctx context.Context, a *fuse.Attr) error {
	a.Inode = util.InodeFor(d.key())
	a.Mode = historyMode
	a.Nlink = 2
	a.Mtime = d.fs.mountedAt
	a.Ctime = d.fs.mountedAt
	a.Atime = d.fs.mountedAt
	return nil
}

func (d *historyDir) Lookup(ctx context.Context, name string) (fs.Node, error) {
	p := joinPath(d.path, name)
	if kind, _ := d.fs.config.Classify(p); kind != KindReal {
		return nil, syscall.ENOENT
	}

	info, err := d.fs.tree.Lstat(p)
	switch {
	case err == nil && info.IsDir():
		return &historyDir{fs: d.fs, path: p}, nil
	case err == nil:
		return &versionsDir{fs: d.fs, path: p}, nil
	case !errors.Is(err, os.ErrNotExist):
		return nil, toErrno(err)
	}

	// Gone from the real tree. Whatever git still remembers under p is
	// either a deleted file or a deleted directory.
	ids, err := d.fs.repo.Log(ctx, p)
	if err != nil {
		return nil, toErrno(err)
	}
	if len(ids) == 0 {
		return nil, syscall.ENOENT
	}
	isFile, err := d.wasFile(ctx, p, ids)
	if err != nil {
		return nil, toErrno(err)
	}
	if isFile {
		return &versionsDir{fs: d.fs, path: p}, nil
	}
	return &historyDir{fs: d.fs, path: p}, nil
}

// wasFile reports whether p held file content in any of ids, newest
// first. A directory never has content of its own.
func (d *historyDir) wasFile(ctx context.Context, p string, ids []gitrepo.CommitID) (bool, error) {
	for _, id := range slices.Backward(ids) {
		_, err := d.fs.repo.Show(ctx, id, p)
		if err == nil {
			return true, nil
		}
		if !errors.Is(err, gitrepo.ErrPathNotInCommit) {
			return false, err
		}
	}
	return false, nil
}

// ReadDirAll lists the current real entries. Deleted paths are not
// listed but stay reachable by name.
func (d *historyDir) ReadDirAll(ctx context.Context) ([]fuse.Dirent, error) {
	entries, err := d.fs.tree.ReadDir(d.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, toErrno(err)
	}

	dirents := make([]fuse.Dirent, 0, len(entries))
	for _, entry := range entries {
		p := joinPath(d.path, entry.Name())
		if kind, _ := d.fs.config.Classify(p); kind != KindReal {
			continue
		}
		dirents = append(dirents, fuse.Dirent{
			Inode: util.InodeFor("history:" + p),
			Name:  entry.Name(),
			Type:  fuse.DT_Dir,
		})
	}
	return dirents, nil
}

func (d *historyDir) Forget() {
	util.ForgetInode(d.key())
}

// versionsDir lists one entry per commit that touched a file, oldest
// first, named by the full commit id.
type versionsDir struct {
	readOnly
	fs   *FS
	path string
}

var (
	_ fs.Node               = (*versionsDir)(nil)
	_ fs.NodeStringLookuper = (*versionsDir)(nil)
	_ fs.HandleReadDirAller = (*versionsDir)(nil)
	_ fs.NodeForgetter      = (*versionsDir)(nil)
)

func (d *versionsDir) key() string {
	return "history:" + d.path
}

func (d *versionsDir) Attr(ctx context.Context, a *fuse.Attr) error {
	a.Inode = util.InodeFor(d.key())
	a.Mode = historyMode
	a.Nlink = 2
	a.Mtime = d.fs.mountedAt
	a.Ctime = d.fs.mountedAt
	a.Atime = d.fs.mountedAt
	return nil
}

// ReadDirAll asks git on every call.
func (d *versionsDir) ReadDirAll(ctx context.Context) ([]fuse.Dirent, error) {
	ids, err := d.fs.repo.Log(ctx, d.path)
	if err != nil {
		return nil, toErrno(err)
	}
	dirents := make([]fuse.Dirent, 0, len(ids))
	for _, id := range ids {
		dirents = append(dirents, fuse.Dirent{
			Inode: util.InodeFor(revisionKey(id, d.path)),
			Name:  string(id),
			Type:  fuse.DT_File,
		})
	}
	return dirents, nil
}

func (d *versionsDir) Lookup(ctx context.Context, name string) (fs.Node, error) {
	id := gitrepo.CommitID(name)
	ids, err := d.fs.repo.Log(ctx, d.path)
	if err != nil {
		return nil, toErrno(err)
	}
	if !slices.Contains(ids, id) {
		return nil, syscall.ENOENT
	}

	data, err := d.fs.repo.Show(ctx, id, d.path)
	switch {
	case errors.Is(err, gitrepo.ErrPathNotInCommit):
		// the commit deleted the file
		data = nil
	case err != nil:
		return nil, toErrno(err)
	}
	return &revisionFile{fs: d.fs, path: d.path, id: id, data: data}, nil
}

func (d *versionsDir) Forget() {
	util.ForgetInode(d.key())
}

// revisionFile is the content of one path at one commit. Historical
// content never changes, so it is loaded once per node and the kernel
// may cache it.
type revisionFile struct {
	readOnly
	fs   *FS
	path string
	id   gitrepo.CommitID
	data []byte
}

var (
	_ fs.Node          = (*revisionFile)(nil)
	_ fs.NodeOpener    = (*revisionFile)(nil)
	_ fs.HandleReader  = (*revisionFile)(nil)
	_ fs.NodeForgetter = (*revisionFile)(nil)
)

func revisionKey(id gitrepo.CommitID, p string) string {
	return "revision:" + string(id) + ":" + p
}

func (f *revisionFile) Attr(ctx context.Context, a *fuse.Attr) error {
	a.Inode = util.InodeFor(revisionKey(f.id, f.path))
	a.Mode = revisionMode
	a.Size = uint64(len(f.data))
	a.Nlink = 1
	a.Mtime = f.fs.mountedAt
	a.Ctime = f.fs.mountedAt
	a.Atime = f.fs.mountedAt
	return nil
}

func (f *revisionFile) Open(ctx context.Context, req *fuse.OpenRequest, resp *fuse.OpenResponse) (fs.Handle, error) {
	if !req.Flags.IsReadOnly() || req.Flags&fuse.OpenTruncate != 0 {
		return nil, toErrno(ErrNotSupported)
	}
	resp.Flags |= fuse.OpenKeepCache
	return f, nil
}

func (f *revisionFile) Read(ctx context.Context, req *fuse.ReadRequest, resp *fuse.ReadResponse) error {
	if req.Offset >= int64(len(f.data)) {
		return nil
	}
	end := min(req.Offset+int64(req.Size), int64(len(f.data)))
	resp.Data = f.data[req.Offset:end]
	return nil
}

func (f *revisionFile) Forget() {
	util.ForgetInode(revisionKey(f.id, f.path))
}

// readOnly refuses every mutation of the history namespace.
type readOnly struct{}

func (readOnly) Create(ctx context.Context, req *fuse.CreateRequest, resp *fuse.CreateResponse) (fs.Node, fs.Handle, error) {
	return nil, nil, toErrno(ErrNotSupported)
}

func (readOnly) Mkdir(ctx context.Context, req *fuse.MkdirRequest) (fs.Node, error) {
	return nil, toErrno(ErrNotSupported)
}

func (readOnly) Remove(ctx context.Context, req *fuse.RemoveRequest) error {
	return toErrno(ErrNotSupported)
}

func (readOnly) Rename(ctx context.Context, req *fuse.RenameRequest, newDir fs.Node) error {
	return toErrno(ErrNotSupported)
}

func (readOnly) Symlink(ctx context.Context, req *fuse.SymlinkRequest) (fs.Node, error) {
	return nil, toErrno(ErrNotSupported)
}

func (readOnly) Setattr(ctx context.Context, req *fuse.SetattrRequest, resp *fuse.SetattrResponse) error {
	return toErrno(ErrNotSupported)
}
