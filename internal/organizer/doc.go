// Package organizer reassembles segment files into product groups.
//
// An Organizer watches one folder. Each accepted transport file is routed by
// its product header to a group (satellite product, region, frame time
// bucket) and a channel buffer inside that group. The scheduler reads deep
// copied snapshots through Groups and writes its progress back through
// Update, so it never observes a group mid-change.
//
// Groups live in memory. When a journal is attached every accepted segment is
// also recorded there and Restore rebuilds the groups after a restart.
package organizer
