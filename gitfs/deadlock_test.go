package gitfs

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"bazil.org/fuse"
)

// TestSetattrDeadlockFix verifies that truncating a file while its handle
// flushes and releases cannot wedge the session and engine locks.
func TestSetattrDeadlockFix(t *testing.T) {
	filesys, _, _ := newTestFS(t)
	writeFile(t, filesys, "test.json", `{"a":1}`)

	f := lookupPath(t, filesys, "test.json").(*File)
	h := open(t, f, fuse.OpenReadWrite)
	write(t, h, 0, []byte(`{"a":2}`))

	ctx := context.Background()
	done := make(chan error, 2)
	go func() {
		req := &fuse.SetattrRequest{Valid: fuse.SetattrSize, Size: 3}
		done <- f.Setattr(ctx, req, &fuse.SetattrResponse{})
	}()
	go func() {
		if err := h.Flush(ctx, &fuse.FlushRequest{}); err != nil {
			done <- err
			return
		}
		done <- h.Release(ctx, &fuse.ReleaseRequest{})
	}()

	for range 2 {
		select {
		case err := <-done:
			if err != nil {
				t.Fatalf("operation failed: %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("Setattr deadlocked - test timed out")
		}
	}
}

// TestSetattrFunctionality verifies Setattr works correctly
func TestSetattrFunctionality(t *testing.T) {
	filesys, _, root := newTestFS(t)
	writeFile(t, filesys, "test.json", "test")

	f := lookupPath(t, filesys, "test.json").(*File)
	ctx := context.Background()
	newTime := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	// Test mtime update
	req := &fuse.SetattrRequest{
		Valid: fuse.SetattrMtime,
		Mtime: newTime,
	}
	resp := &fuse.SetattrResponse{}

	err := f.Setattr(ctx, req, resp)
	if err != nil {
		t.Fatalf("Setattr failed: %v", err)
	}

	if !resp.Attr.Mtime.Equal(newTime) {
		t.Errorf("Expected modified time %v, got %v", newTime, resp.Attr.Mtime)
	}
	info, err := os.Stat(filepath.Join(root, "test.json"))
	if err != nil {
		t.Fatal(err)
	}
	if !info.ModTime().Equal(newTime) {
		t.Errorf("Expected real modified time %v, got %v", newTime, info.ModTime())
	}

	// Test size update (truncation)
	req = &fuse.SetattrRequest{
		Valid: fuse.SetattrSize,
		Size:  2,
	}

	err = f.Setattr(ctx, req, resp)
	if err != nil {
		t.Fatalf("Setattr size failed: %v", err)
	}

	if resp.Attr.Size != 2 {
		t.Errorf("Expected size 2, got %d", resp.Attr.Size)
	}

	if got := readReal(t, root, "test.json"); got != "te" {
		t.Errorf("Expected data 'te', got '%s'", got)
	}
}
