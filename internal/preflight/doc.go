// Package preflight provides readiness checks for the filesystem paths and
// downstream services xritd depends on.
//
// These checks run in two contexts:
//   - The daemon calls RunAll at startup and refuses to start workers when a
//     watched folder or output directory is unusable.
//   - The CLI "xrit config validate" command prints every result so operators
//     can fix problems before starting the daemon.
//
// Publisher checks are gated by their config settings; unconfigured
// publishers are skipped.
package preflight
