package gitfs

import (
	"errors"
	"os"
	"syscall"

	"bazil.org/fuse"
	"github.com/dendrascience/gitfuse/gitrepo"
)

// Sentinel errors for package gitfs.
var (
	// ErrNotSupported is returned for mutations of the read-only
	// synthetic namespace.
	ErrNotSupported = errors.New("operation not supported on a read-only virtual path")

	// ErrNotFound is returned for paths that exist in neither the real
	// tree nor the history.
	ErrNotFound = errors.New("no such virtual path")
)

// toErrno maps an error to the errno the kernel reports. Host errors keep
// their errno; backend failures have no filesystem equivalent and become
// EIO.
func toErrno(err error) error {
	if err == nil {
		return nil
	}

	var gitErr *gitrepo.Error
	var errno syscall.Errno
	var fuseErr fuse.Errno
	switch {
	case errors.As(err, &fuseErr):
		return fuseErr
	case errors.Is(err, ErrNotSupported):
		return fuse.Errno(syscall.ENOTSUP)
	case errors.Is(err, ErrNotFound), errors.Is(err, gitrepo.ErrCommitNotFound), errors.Is(err, os.ErrNotExist):
		return fuse.Errno(syscall.ENOENT)
	case errors.As(err, &gitErr):
		return fuse.Errno(syscall.EIO)
	case errors.As(err, &errno):
		return fuse.Errno(errno)
	default:
		return fuse.Errno(syscall.EIO)
	}
}
