// Package util provides small shared helpers for the gitfuse filesystem.
//
// Synthetic entries (the history tree, the repository link) have no
// backing inode, so this package hands out inode numbers from a range
// above VirtualInodeBase and remembers them per key for the life of the
// process. The key registry is split into shards picked by a color hash
// of the key to keep lock contention low under parallel lookups.
package util
