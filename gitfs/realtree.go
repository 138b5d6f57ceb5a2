package gitfs

import (
	"os"
	"path/filepath"
	"syscall"
	"time"
)

// RealTree performs filesystem operations on the backing directory. It
// holds no state besides the root, so concurrent calls on distinct
// paths rely only on the host filesystem's own consistency.
type RealTree struct {
	root string
}

// NewRealTree returns a RealTree rooted at root.
func NewRealTree(root string) *RealTree {
	return &RealTree{root: root}
}

// Path converts a mount path into the absolute backing path.
func (t *RealTree) Path(p string) string {
	return filepath.Join(t.root, filepath.FromSlash(p))
}

func (t *RealTree) Lstat(p string) (os.FileInfo, error) {
	return os.Lstat(t.Path(p))
}

func (t *RealTree) Open(p string, flag int) (*os.File, error) {
	return os.OpenFile(t.Path(p), flag, 0)
}

func (t *RealTree) Create(p string, flag int, perm os.FileMode) (*os.File, error) {
	return os.OpenFile(t.Path(p), flag|os.O_CREATE, perm)
}

func (t *RealTree) Truncate(p string, size int64) error {
	return os.Truncate(t.Path(p), size)
}

func (t *RealTree) Chmod(p string, mode os.FileMode) error {
	return os.Chmod(t.Path(p), mode)
}

func (t *RealTree) Lchown(p string, uid, gid int) error {
	return os.Lchown(t.Path(p), uid, gid)
}

func (t *RealTree) Chtimes(p string, atime, mtime time.Time) error {
	return os.Chtimes(t.Path(p), atime, mtime)
}

func (t *RealTree) Mkdir(p string, perm os.FileMode) error {
	return os.Mkdir(t.Path(p), perm)
}

// Rmdir removes an empty directory and nothing else.
func (t *RealTree) Rmdir(p string) error {
	full := t.Path(p)
	if err := syscall.Rmdir(full); err != nil {
		return &os.PathError{Op: "rmdir", Path: full, Err: err}
	}
	return nil
}

// Unlink removes a non-directory entry.
func (t *RealTree) Unlink(p string) error {
	full := t.Path(p)
	if err := syscall.Unlink(full); err != nil {
		return &os.PathError{Op: "unlink", Path: full, Err: err}
	}
	return nil
}

func (t *RealTree) Rename(oldPath, newPath string) error {
	return os.Rename(t.Path(oldPath), t.Path(newPath))
}

func (t *RealTree) ReadDir(p string) ([]os.DirEntry, error) {
	return os.ReadDir(t.Path(p))
}

func (t *RealTree) Symlink(target, p string) error {
	return os.Symlink(target, t.Path(p))
}

func (t *RealTree) Readlink(p string) (string, error) {
	return os.Readlink(t.Path(p))
}

// Sync flushes the backing file to stable storage.
func (t *RealTree) Sync(p string) error {
	f, err := os.Open(t.Path(p))
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Sync()
}
