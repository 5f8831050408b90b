// Package config loads, normalizes, and validates xritd configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// XRITD_NATS_URL. The Config type centralizes every knob the daemon and CLI
// need: the watched transport-file folders, which product pipelines run, the
// scheduler tick and retry ceiling, and the optional journal, publishing and
// metrics surfaces.
//
// A Config is immutable once Load returns it. Workers receive a pointer at
// construction and never mutate it; always obtain settings through this
// package so downstream code sees sanitized paths and clear validation errors.
package config
