// Package commit decides when filesystem activity becomes a git commit.
//
// Every open file handle owns a Session that moves through
// Idle, Opened, Dirty and Committing. Writes make it dirty; closing the
// handle commits it, so an open/write/close cycle yields exactly one
// commit whatever the number of writes. Deletes, renames and symlink
// creation are single-operation sessions committed immediately.
//
// A truncate outside any handle is held back briefly: the kernel turns
// open(2) with O_TRUNC into a truncate followed by a plain open, and the
// session of that open absorbs it so an overwrite is still one commit.
//
// The repository index is a single-writer resource, so the Engine runs
// every stage+commit pair under one mutex. Sessions that finish while a
// commit is in flight wait their turn and then commit on their own; they
// are never merged into another session's commit.
package commit
