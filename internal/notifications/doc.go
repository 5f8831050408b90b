// Package notifications announces finished products to downstream systems.
//
// Two publishers are available: a NATS publisher that emits a msgpack encoded
// ProductEvent on a per-product subject, and an S3 mirror that uploads the
// rendered file to a bucket. NewService assembles whichever publishers the
// configuration enables and degrades to a no-op when none are configured.
//
// Workflow code depends only on the Publisher interface. Publish failures are
// reported to the caller, which logs them; they never affect product state.
package notifications
