package gitfs

import (
	"context"
	"syscall"

	"bazil.org/fuse"
	"bazil.org/fuse/fs"
)

// Symlink is a symbolic link of the real tree.
type Symlink struct {
	node
}

var (
	_ fs.Node           = (*Symlink)(nil)
	_ fs.NodeReadlinker = (*Symlink)(nil)
	_ fs.NodeSetattrer  = (*Symlink)(nil)
	_ fs.NodeForgetter  = (*Symlink)(nil)
)

func (s *Symlink) Attr(ctx context.Context, a *fuse.Attr) error {
	return s.attr(a)
}

func (s *Symlink) Readlink(ctx context.Context, req *fuse.ReadlinkRequest) (string, error) {
	target, err := s.fs.tree.Readlink(s.Path())
	if err != nil {
		return "", toErrno(err)
	}
	return target, nil
}

// Setattr on a link only changes ownership. Host chmod and utimes
// would follow the link to its target.
func (s *Symlink) Setattr(ctx context.Context, req *fuse.SetattrRequest, resp *fuse.SetattrResponse) error {
	if req.Valid.Size() {
		return syscall.EINVAL
	}
	req.Valid &^= fuse.SetattrMode | fuse.SetattrAtime | fuse.SetattrMtime | fuse.SetattrAtimeNow | fuse.SetattrMtimeNow
	return s.setattr(ctx, req, resp)
}
