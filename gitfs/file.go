package gitfs

import (
	"context"
	"io"
	"os"
	"sync"
	"syscall"

	"bazil.org/fuse"
	"bazil.org/fuse/fs"
	"github.com/dendrascience/gitfuse/commit"
)

// File is a regular file of the real tree.
type File struct {
	node
}

var (
	_ fs.Node          = (*File)(nil)
	_ fs.NodeOpener    = (*File)(nil)
	_ fs.NodeSetattrer = (*File)(nil)
	_ fs.NodeFsyncer   = (*File)(nil)
	_ fs.NodeForgetter = (*File)(nil)
)

// Attr returns the host attributes of the backing file
func (f *File) Attr(ctx context.Context, a *fuse.Attr) error {
	return f.attr(a)
}

// Open opens the backing file. Any handle that may write gets an edit
// session; read-only handles never commit.
func (f *File) Open(ctx context.Context, req *fuse.OpenRequest, resp *fuse.OpenResponse) (fs.Handle, error) {
	p := f.Path()
	flags := hostOpenFlags(req.Flags)
	if req.Flags&fuse.OpenTruncate != 0 {
		flags |= os.O_TRUNC
	}

	file, err := f.fs.tree.Open(p, flags)
	if err != nil {
		return nil, toErrno(err)
	}

	h := &handle{file: file, fs: f.fs}
	if !req.Flags.IsReadOnly() {
		h.writable = true
		h.session = f.fs.engine.Open(p, false)
		if req.Flags&fuse.OpenTruncate != 0 {
			h.session.MarkDirty()
		}
	}
	return h, nil
}

// Setattr handles chmod, chown, truncate and utimes
func (f *File) Setattr(ctx context.Context, req *fuse.SetattrRequest, resp *fuse.SetattrResponse) error {
	return f.setattr(ctx, req, resp)
}

// Fsync flushes the backing file to disk. Commits happen on flush and
// release, not here.
func (f *File) Fsync(ctx context.Context, req *fuse.FsyncRequest) error {
	return toErrno(f.fs.tree.Sync(f.Path()))
}

// handle is an open file. Reads and writes go straight to the backing
// file at the kernel's offsets.
type handle struct {
	fs       *FS
	file     *os.File
	session  *commit.Session
	writable bool

	mu     sync.Mutex
	closed bool
}

var (
	_ fs.Handle         = (*handle)(nil)
	_ fs.HandleReader   = (*handle)(nil)
	_ fs.HandleWriter   = (*handle)(nil)
	_ fs.HandleFlusher  = (*handle)(nil)
	_ fs.HandleReleaser = (*handle)(nil)
)

func (h *handle) Read(ctx context.Context, req *fuse.ReadRequest, resp *fuse.ReadResponse) error {
	buf := make([]byte, req.Size)
	n, err := h.file.ReadAt(buf, req.Offset)
	if err != nil && err != io.EOF {
		return toErrno(err)
	}
	resp.Data = buf[:n]
	return nil
}

func (h *handle) Write(ctx context.Context, req *fuse.WriteRequest, resp *fuse.WriteResponse) error {
	if !h.writable {
		return syscall.EBADF
	}
	n, err := h.file.WriteAt(req.Data, req.Offset)
	resp.Size = n
	if n > 0 {
		h.session.MarkDirty()
	}
	if err != nil {
		return toErrno(err)
	}
	return nil
}

// Flush runs on every close(2) of a descriptor sharing this handle. A
// dirty session commits here so that close reports commit failures.
func (h *handle) Flush(ctx context.Context, req *fuse.FlushRequest) error {
	if h.session == nil {
		return nil
	}
	return toErrno(h.session.Flush(ctx))
}

// Release closes the backing file and ends the edit session, committing
// anything written after the last flush.
func (h *handle) Release(ctx context.Context, req *fuse.ReleaseRequest) error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	h.mu.Unlock()

	closeErr := h.file.Close()
	if h.session != nil {
		if err := h.session.Release(ctx); err != nil {
			h.fs.logger.Warn("commit on release failed", "path", h.session.Path(), "session", h.session.ID(), "error", err)
			return toErrno(err)
		}
	}
	return toErrno(closeErr)
}
