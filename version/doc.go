// Package version reports the gitfuse build version.
//
// Values come from variables injected at link time with
//
//	-ldflags "-X github.com/dendrascience/gitfuse/version.Version=v1.0.0 -X github.com/dendrascience/gitfuse/version.Commit=abc123 -X github.com/dendrascience/gitfuse/version.Date=2023-01-01T00:00:00Z"
//
// and otherwise from the vcs stamps the go toolchain records in the
// binary, falling back to development defaults.
package version
