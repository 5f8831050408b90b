// Package journal persists accepted segments in SQLite so reassembly state
// survives a daemon restart.
//
// The journal is transient storage: one row per segment that the organizer
// accepted into a channel buffer, deleted again when the owning group is
// removed. It is never an archive of products. Schema changes bump the version
// in schema.go; users delete the database to adopt the new schema.
package journal
