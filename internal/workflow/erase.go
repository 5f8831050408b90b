package workflow

import (
	"log/slog"
	"maps"
	"slices"

	"xritd/internal/fileutil"
	"xritd/internal/logging"
	"xritd/internal/product"
)

// eraseFiles deletes consumed segment files and returns how many were
// removed. Water vapour and other products go as soon as their own pipeline
// is done. Visible and infrared segments feed false colour, so they stay
// until false colour has been produced when it is enabled.
func (m *Manager) eraseFiles(logger *slog.Logger, g *product.Group) int {
	state := g.State()
	erased := 0

	if m.pipelines.Done(product.PipelineWaterVapour, state) {
		erased += m.eraseBuffer(logger, g, g.WaterVapour)
	}
	for _, name := range slices.Sorted(maps.Keys(g.Other)) {
		buf := g.Other[name]
		if !m.pipelines.Enabled(product.PipelineOther) || buf.OK {
			erased += m.eraseBuffer(logger, g, buf)
		}
	}

	if m.pipelines.Enabled(product.PipelineFalseColor) && !state.FalseColor {
		return erased
	}
	if m.pipelines.Done(product.PipelineInfrared, state) {
		erased += m.eraseBuffer(logger, g, g.Infrared)
	}
	if m.pipelines.Done(product.PipelineVisible, state) {
		erased += m.eraseBuffer(logger, g, g.Visible)
	}
	return erased
}

// eraseBuffer removes the segment files of a buffer once. Buffers still
// receiving segments are left alone unless the whole group is finished.
func (m *Manager) eraseBuffer(logger *slog.Logger, g *product.Group, buf *product.ChannelBuffer) int {
	if buf.Erased || len(buf.Segments) == 0 {
		return 0
	}
	if !buf.IsComplete() && !g.IsProcessed {
		return 0
	}
	removed := 0
	for _, path := range buf.Paths() {
		ok, err := fileutil.RemoveIfExists(path)
		switch {
		case err != nil:
			logging.WarnWithContext(logger, "segment erase failed", "segment_erase_failed",
				logging.String(logging.FieldPath, path),
				logging.String(logging.FieldChannel, buf.Name),
				logging.Error(err),
				logging.String(logging.FieldImpact, "segment file stays on disk"),
				logging.String(logging.FieldErrorHint, "check permissions on the watched folder"),
			)
		case ok:
			removed++
			m.metrics.FileErased(m.folder.Name)
		default:
			logger.Debug("segment already gone",
				logging.String(logging.FieldPath, path),
				logging.String(logging.FieldChannel, buf.Name),
			)
		}
	}
	buf.Erased = true
	return removed
}
