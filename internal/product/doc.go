// Package product models reassembly state: per-channel segment buffers,
// product groups that aggregate them for one observation, and the pipeline
// state the scheduler advances.
//
// Values in this package carry no locking. The organizer owns live groups
// and hands out deep copies via Clone; the scheduler mutates live groups only
// through the organizer.
package product
