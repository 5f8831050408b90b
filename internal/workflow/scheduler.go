package workflow

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"maps"
	"path/filepath"
	"slices"
	"time"

	"xritd/internal/fileutil"
	"xritd/internal/logging"
	"xritd/internal/notifications"
	"xritd/internal/product"
	"xritd/internal/render"
	"xritd/internal/services"
)

var fixedPipelines = []product.Pipeline{
	product.PipelineVisible,
	product.PipelineInfrared,
	product.PipelineWaterVapour,
}

// processGroup advances one snapshot group and writes the resulting flags
// back to the organizer.
func (m *Manager) processGroup(ctx context.Context, g *product.Group, result *TickResult) {
	ctx = services.WithGroupKey(ctx, int64(g.Key))
	logger := logging.WithContext(ctx, m.logger)

	// Retired groups are reclaimed on the tick after they were marked.
	if g.IsProcessed {
		if m.organizer.Remove(ctx, g.Key) {
			result.Removed++
			logger.Info("retired group removed",
				logging.String(logging.FieldEventType, "group_removed"),
				logging.Bool("failed", g.Failed),
				logging.Int("retry_count", g.RetryCount),
			)
		}
		return
	}

	if err := m.runPipelines(ctx, logger, g, result); err != nil {
		m.recordFailure(logger, g, err, result)
		m.commit(g)
		return
	}

	g.IsProcessed = m.pipelines.Satisfied(g.State())

	if g.Timeout(m.now()) {
		if !g.IsProcessed {
			logging.WarnWithContext(logger, "flushing incomplete group after timeout", "group_timeout",
				logging.String("group", g.String()),
				logging.Duration("age", g.Age(m.now())),
				logging.String(logging.FieldImpact, "missing channels are not rendered"),
				logging.String(logging.FieldErrorHint, "check reception quality for dropped segments"),
			)
		}
		g.ForceComplete()
	}

	if m.erase {
		result.Erased += m.eraseFiles(logger, g)
	}

	m.commit(g)
	if m.pipelines.Satisfied(g.State()) && m.organizer.Remove(ctx, g.Key) {
		result.Removed++
		logger.Debug("group complete",
			logging.String(logging.FieldEventType, "group_removed"),
			logging.String("group", g.String()),
		)
	}
}

// runPipelines fires every eligible pipeline. The first failure aborts the
// remaining pipelines for this tick; flags set before it are kept.
func (m *Manager) runPipelines(ctx context.Context, logger *slog.Logger, g *product.Group, result *TickResult) error {
	stamp := g.Key.Timestamp(m.bucket)

	for _, p := range fixedPipelines {
		buf := g.Channel(p)
		if !m.pipelines.Enabled(p) || g.State().Get(p) || !buf.IsComplete() {
			continue
		}
		source, _ := buf.FirstSegment()
		name := OutputName(g.SatelliteName, g.RegionName, p.Tag(), stamp, source, m.noaaNames)
		err := m.produce(ctx, logger, g, p, p.Tag(), name, result, func(rctx context.Context) (image.Image, error) {
			return m.renderer.RenderFullImage(rctx, buf, g.CropImage)
		})
		if err != nil {
			return err
		}
		g.SetProcessed(p)
		buf.OK = true
	}

	if m.pipelines.Enabled(product.PipelineFalseColor) && !g.IsFalseColorProcessed && m.renderer.CanRenderFalseColor(g) {
		p := product.PipelineFalseColor
		visible, _ := g.Visible.FirstSegment()
		name := OutputName(g.SatelliteName, g.RegionName, p.Tag(), stamp, falseColorSource(visible), m.noaaNames)
		err := m.produce(ctx, logger, g, p, p.Tag(), name, result, func(rctx context.Context) (image.Image, error) {
			return m.renderer.RenderFalseColor(rctx, g)
		})
		if err != nil {
			return err
		}
		g.SetProcessed(p)
	}

	if !m.pipelines.Enabled(product.PipelineOther) {
		return nil
	}
	for _, channel := range slices.Sorted(maps.Keys(g.Other)) {
		buf := g.Other[channel]
		if buf.OK || !buf.IsComplete() {
			continue
		}
		ts := stamp
		if buf.Timestamp != 0 {
			ts = time.Unix(buf.Timestamp, 0)
		}
		source, _ := buf.FirstSegment()
		name := OutputName(g.SatelliteName, g.RegionName, buf.Name, ts, source, m.noaaNames)
		err := m.produce(ctx, logger, g, product.PipelineOther, buf.Name, name, result, func(rctx context.Context) (image.Image, error) {
			return m.renderer.RenderFullImage(rctx, buf, false)
		})
		if err != nil {
			return err
		}
		buf.OK = true
	}
	return nil
}

// produce writes one output unless a file already exists at its path. An
// existing file counts as done without invoking the renderer.
func (m *Manager) produce(ctx context.Context, logger *slog.Logger, g *product.Group, p product.Pipeline, tag, name string, result *TickResult, renderFn func(context.Context) (image.Image, error)) error {
	path := filepath.Join(m.folder.OutputDir, name)
	logger = logger.With(
		logging.String(logging.FieldPipeline, string(p)),
		logging.String(logging.FieldPath, path),
	)

	exists, err := fileutil.Exists(path)
	if err != nil {
		return services.Wrap(services.ErrTransient, "workflow", "check output", "stat output file", err)
	}
	if exists {
		result.Skipped++
		m.metrics.ProductSkipped(m.folder.Name, string(p))
		logger.Debug("output already exists; skipping render",
			logging.String(logging.FieldEventType, "product_skipped"),
		)
		return nil
	}

	logger.Debug("rendering product", logging.String(logging.FieldEventType, "product_render_started"))
	started := time.Now()
	// Renders are never aborted by shutdown.
	img, err := renderFn(context.WithoutCancel(ctx))
	if err != nil {
		return fmt.Errorf("render %s: %w", p, err)
	}
	if err := render.WritePNG(path, img); err != nil {
		return services.Wrap(services.ErrTransient, "workflow", "write output", "write png", err)
	}

	result.Written++
	m.metrics.ProductWritten(m.folder.Name, string(p))
	logger.Info("product written",
		logging.String(logging.FieldEventType, "product_written"),
		logging.String("satellite", g.SatelliteName),
		logging.String("region", g.RegionName),
		logging.Duration("render_time", time.Since(started)),
	)
	m.publish(ctx, logger, g, p, tag, path)
	return nil
}

func (m *Manager) publish(ctx context.Context, logger *slog.Logger, g *product.Group, p product.Pipeline, tag, path string) {
	err := m.publisher.Publish(services.WithPipeline(ctx, string(p)), notifications.Product{
		Folder:    m.folder.Name,
		GroupKey:  int64(g.Key),
		Pipeline:  string(p),
		Tag:       tag,
		Satellite: g.SatelliteName,
		Region:    g.RegionName,
		Path:      path,
		FrameTime: g.FrameTime,
	})
	if err == nil {
		return
	}
	m.metrics.PublishFailed(m.folder.Name)
	logging.WarnWithContext(logger, "product announcement failed", "publish_failed",
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check NATS and S3 connectivity"),
		logging.String(logging.FieldImpact, "product was written but downstream consumers were not notified"),
	)
}

func (m *Manager) recordFailure(logger *slog.Logger, g *product.Group, err error, result *TickResult) {
	g.RetryCount++
	kind := services.Classify(err)
	result.Failed++
	m.metrics.PipelineFailed(m.folder.Name, string(kind))
	m.setLastError(err)
	logging.ErrorWithContext(logger, "group processing failed", "pipeline_failed",
		logging.Error(err),
		logging.String(logging.FieldErrorKind, string(kind)),
		logging.Bool("retryable", services.Retryable(err)),
		logging.String("group", g.String()),
		logging.Int("retry_count", g.RetryCount),
		logging.Int("max_retry_count", m.maxRetry),
		logging.String(logging.FieldErrorHint, "inspect the segment files of this group"),
	)
	if g.RetryCount < m.maxRetry {
		return
	}
	g.IsProcessed = true
	g.Failed = true
	result.Retired++
	m.metrics.PoisonGroup(m.folder.Name)
	logger.Error("group retired after repeated failures",
		logging.String(logging.FieldEventType, "group_retired"),
		logging.Alert("poison_group"),
		logging.Int("retry_count", g.RetryCount),
	)
}

// commit merges the snapshot's scheduler-owned flags into the live group.
// Flags only ever move from false to true.
func (m *Manager) commit(g *product.Group) {
	m.organizer.Update(g.Key, func(live *product.Group) {
		live.IsProcessed = live.IsProcessed || g.IsProcessed
		live.IsFalseColorProcessed = live.IsFalseColorProcessed || g.IsFalseColorProcessed
		live.IsVisibleProcessed = live.IsVisibleProcessed || g.IsVisibleProcessed
		live.IsInfraredProcessed = live.IsInfraredProcessed || g.IsInfraredProcessed
		live.IsWaterVapourProcessed = live.IsWaterVapourProcessed || g.IsWaterVapourProcessed
		live.RetryCount = max(live.RetryCount, g.RetryCount)
		live.Failed = live.Failed || g.Failed
		mergeBuffer(live.Visible, g.Visible)
		mergeBuffer(live.Infrared, g.Infrared)
		mergeBuffer(live.WaterVapour, g.WaterVapour)
		for name, buf := range g.Other {
			if target, ok := live.Other[name]; ok {
				mergeBuffer(target, buf)
			}
		}
	})
}

func mergeBuffer(live, snapshot *product.ChannelBuffer) {
	live.OK = live.OK || snapshot.OK
	live.Erased = live.Erased || snapshot.Erased
}
