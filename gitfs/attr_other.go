//go:build !linux

package gitfs

import (
	"os"

	"bazil.org/fuse"
)

func fillHostAttr(a *fuse.Attr, info os.FileInfo) {
	a.Atime = info.ModTime()
	a.Ctime = info.ModTime()
}

func hostInode(info os.FileInfo) uint64 {
	return 0
}
