// Package daemon coordinates the long-running xritd process.
//
// It wires configuration, the segment journal, metrics, publishers and one
// workflow manager per watched folder into a single lifecycle with
// flock-based locking to prevent multiple instances. The daemon also runs
// the cron-scheduled maintenance job and serves the optional metrics
// endpoint.
//
// Keep orchestration logic here: group handling lives in organizer and
// workflow while the daemon focuses on startup, shutdown, and housekeeping.
package daemon
