//go:build linux

package gitfs

import (
	"os"
	"syscall"
	"time"

	"bazil.org/fuse"
)

// fillHostAttr copies the host-specific stat fields into a.
func fillHostAttr(a *fuse.Attr, info os.FileInfo) {
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		a.Atime = info.ModTime()
		a.Ctime = info.ModTime()
		return
	}
	a.Inode = st.Ino
	a.Nlink = uint32(st.Nlink)
	a.Uid = st.Uid
	a.Gid = st.Gid
	a.Rdev = uint32(st.Rdev)
	a.Blocks = uint64(st.Blocks)
	a.BlockSize = uint32(st.Blksize)
	a.Atime = time.Unix(int64(st.Atim.Sec), int64(st.Atim.Nsec))
	a.Ctime = time.Unix(int64(st.Ctim.Sec), int64(st.Ctim.Nsec))
}

func hostInode(info os.FileInfo) uint64 {
	if st, ok := info.Sys().(*syscall.Stat_t); ok {
		return st.Ino
	}
	return 0
}
