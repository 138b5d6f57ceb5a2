// Package cmd provides the command-line interface implementation for gitfuse.
//
// This package contains all the subcommand implementations for the gitfuse CLI tool.
// It uses the Cobra library for command structure and Fang for styling.
//
// The package is organized into the following commands:
//   - root: Main command coordinator and entry point
//   - mount: FUSE filesystem mounting functionality
//   - history: Commit listing for a single path
//   - show: Historical content of a path at one commit
//   - version: Build information
//
// Each command is implemented as a separate file with its own constructor function
// that returns a *cobra.Command. Mount settings are layered from defaults, an
// optional YAML file and flags by the internal/config package.
package cmd
