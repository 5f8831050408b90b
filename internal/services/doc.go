// Package services defines shared utilities consumed by the reassembler,
// scheduler and publishers.
//
// Key responsibilities:
//   - Context helpers that stamp folder names, group keys, pipeline names and
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper so callers can classify
//     failures (bad input, transient I/O, renderer trouble) with errors.Is.
//
// Use these helpers when wiring new pipeline logic so operational behaviour
// (error handling, observability, retries) stays uniform across workers.
package services
