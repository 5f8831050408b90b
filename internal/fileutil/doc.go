// Package fileutil holds small filesystem helpers shared by the scheduler and
// the renderer: atomic writes, existence checks, and tolerant removal.
package fileutil
