// Package workflow turns reassembled segment groups into image products.
//
// A Manager owns one watched folder. Every tick it asks its organizer to scan
// the folder, takes a snapshot of the live groups and walks each one through
// the product pipelines: visible, infrared, water vapour, false colour and any
// other products. Finished outputs are written atomically, announced through
// the configured publishers, and the consumed segment files are erased when
// the configuration asks for it. Groups leave the organizer once every enabled
// pipeline is satisfied.
//
// Pipeline failures are counted per group. A group that keeps failing is
// retired after max_retry_count ticks so one bad product never stalls the
// folder.
package workflow
