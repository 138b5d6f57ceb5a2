package gitfs

import (
	"context"
	"os"

	"bazil.org/fuse"
	"bazil.org/fuse/fs"
	"github.com/dendrascience/gitfuse/util"
)

// repoLink is the reserved symlink at the mount root pointing at the
// backing repository. The target is fixed when the filesystem is built.
type repoLink struct {
	readOnly
	fs *FS
}

var (
	_ fs.Node           = (*repoLink)(nil)
	_ fs.NodeReadlinker = (*repoLink)(nil)
)

func (l *repoLink) Attr(ctx context.Context, a *fuse.Attr) error {
	a.Inode = util.InodeFor("repolink:")
	a.Mode = os.ModeSymlink | 0o777
	a.Size = uint64(len(l.fs.repoLink))
	a.Nlink = 1
	a.Mtime = l.fs.mountedAt
	a.Ctime = l.fs.mountedAt
	a.Atime = l.fs.mountedAt
	return nil
}

func (l *repoLink) Readlink(ctx context.Context, req *fuse.ReadlinkRequest) (string, error) {
	return l.fs.repoLink, nil
}
