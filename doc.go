// Package main provides the gitfuse command-line interface.
//
// gitfuse is a FUSE filesystem that mirrors a git work tree and commits
// every edit made through the mount. Past versions of every file are
// browsable under the read-only .githistory directory at the mount root.
//
// The main binary supports multiple subcommands:
//   - mount: Mount a git work tree at a specified mountpoint
//   - history: List the commits that touched a path
//   - show: Print a path as recorded in a commit
package main
