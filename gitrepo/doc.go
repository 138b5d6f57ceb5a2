// Package gitrepo is the only part of gitfuse that talks to git.
//
// Gateway is the contract the filesystem consumes: stage paths, commit
// the index, list the commits touching a path and read a path's content
// at a commit. Repository implements it by running the git executable
// against the backing work tree with literal pathspecs, so file names
// containing glob characters are never expanded.
package gitrepo
