// Package main hosts the xrit CLI entrypoint and command graph.
//
// The Cobra-based command tree runs the daemon in the foreground, inspects
// and renames received transport files, queries a running daemon through its
// status endpoint, and scaffolds configuration. It centralizes configuration
// resolution so subcommands can focus on output.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
