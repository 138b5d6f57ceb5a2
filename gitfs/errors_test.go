package gitfs

import (
	"errors"
	"fmt"
	"os"
	"syscall"
	"testing"

	"bazil.org/fuse"
	"github.com/dendrascience/gitfuse/gitrepo"
)

func TestToErrno(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want syscall.Errno
	}{
		{"not supported", ErrNotSupported, syscall.ENOTSUP},
		{"wrapped not supported", fmt.Errorf("mkdir: %w", ErrNotSupported), syscall.ENOTSUP},
		{"not found", ErrNotFound, syscall.ENOENT},
		{"unknown commit", fmt.Errorf("%w: abc", gitrepo.ErrCommitNotFound), syscall.ENOENT},
		{"bare not exist", fmt.Errorf("stat: %w", os.ErrNotExist), syscall.ENOENT},
		{"host errno", &os.PathError{Op: "open", Path: "/x", Err: syscall.EACCES}, syscall.EACCES},
		{"host not empty", &os.PathError{Op: "rmdir", Path: "/x", Err: syscall.ENOTEMPTY}, syscall.ENOTEMPTY},
		{"backend", &gitrepo.Error{Op: "commit", Err: errors.New("exit status 128")}, syscall.EIO},
		{"wrapped backend", fmt.Errorf("committing: %w", &gitrepo.Error{Op: "add", Err: errors.New("boom")}), syscall.EIO},
		{"already translated", fuse.Errno(syscall.EROFS), syscall.EROFS},
		{"anything else", errors.New("mystery"), syscall.EIO},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errnoOf(toErrno(tt.err)); got != tt.want {
				t.Errorf("toErrno(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}

	if toErrno(nil) != nil {
		t.Error("toErrno(nil) should be nil")
	}
}
