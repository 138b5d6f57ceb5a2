// Package gitfs implements a FUSE filesystem that records every edit made
// through the mount as a git commit.
//
// The mount mirrors a git work tree. Reads, writes and metadata changes
// are forwarded to the backing directory, and each completed edit is
// handed to the commit engine, which stages the touched paths and commits
// them one edit at a time.
//
// Two reserved names live at the mount root:
//   - .githistory: a read-only tree mirroring the work tree, where every
//     file is a directory holding one entry per commit that touched it,
//     named by the full commit id and oldest first
//   - .gitfuserepo: a symlink to the backing repository
//
// The repository's own .git directory is hidden from the mount.
//
// The main entry point is New() which creates a filesystem that can be
// mounted using the bazil.org/fuse library.
package gitfs
