package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"

	"github.com/gofrs/flock"

	"xritd/internal/config"
	"xritd/internal/journal"
	"xritd/internal/logging"
	"xritd/internal/metrics"
	"xritd/internal/notifications"
	"xritd/internal/organizer"
	"xritd/internal/render"
	"xritd/internal/workflow"
)

// Daemon runs one workflow manager per folder and enforces single-instance
// execution.
type Daemon struct {
	cfg       *config.Config
	logger    *slog.Logger
	journal   *journal.Store
	metrics   *metrics.Collectors
	publisher notifications.Publisher
	managers  []*workflow.Manager

	lockPath string
	lock     *flock.Flock

	maintenance *maintenance
	server      *metricsServer

	running atomic.Bool
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	LockFilePath string
	JournalPath  string
	Workflows    []workflow.StatusSummary
}

// Option customizes daemon construction.
type Option func(*options)

type options struct {
	renderer  render.Renderer
	publisher notifications.Publisher
}

// WithRenderer overrides the renderer handed to every workflow manager.
func WithRenderer(r render.Renderer) Option {
	return func(o *options) { o.renderer = r }
}

// WithPublisher overrides the publishers built from configuration.
func WithPublisher(p notifications.Publisher) Option {
	return func(o *options) { o.publisher = p }
}

// New constructs a daemon with initialized dependencies. Failure to open the
// journal or create an output directory is fatal.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...Option) (*Daemon, error) {
	if cfg == nil {
		return nil, errors.New("daemon requires config")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		metrics:  metrics.New(),
		lockPath: filepath.Join(cfg.Paths.StateDir, "xritd.lock"),
	}
	d.lock = flock.New(d.lockPath)

	var segmentJournal organizer.SegmentJournal
	if cfg.Journal.Enabled {
		store, err := journal.Open(cfg.Journal.Path)
		if err != nil {
			return nil, fmt.Errorf("open journal: %w", err)
		}
		d.journal = store
		segmentJournal = store
	}

	d.publisher = o.publisher
	if d.publisher == nil {
		pub, err := notifications.NewService(ctx, cfg)
		if err != nil {
			d.closeJournal()
			return nil, fmt.Errorf("init publishers: %w", err)
		}
		d.publisher = pub
	}

	for _, folder := range cfg.Folders {
		org := organizer.NewFromConfig(cfg, folder, segmentJournal, d.metrics, logger)
		mgr, err := workflow.NewManager(cfg, folder, org, logger,
			workflow.WithRenderer(o.renderer),
			workflow.WithPublisher(d.publisher),
			workflow.WithMetrics(d.metrics),
		)
		if err != nil {
			_ = d.publisher.Close()
			d.closeJournal()
			return nil, fmt.Errorf("folder %s: %w", folder.Name, err)
		}
		d.managers = append(d.managers, mgr)
	}

	maint, err := newMaintenance(cfg, d, logger)
	if err != nil {
		_ = d.publisher.Close()
		d.closeJournal()
		return nil, err
	}
	d.maintenance = maint
	d.server = newMetricsServer(cfg, d, logger)
	return d, nil
}

// Start restores journaled segments, launches every workflow manager, and
// acquires the daemon lock.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another xritd instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	for _, mgr := range d.managers {
		restored, err := mgr.Organizer().Restore(runCtx)
		if err != nil {
			logging.WarnWithContext(d.logger, "journal restore failed", "journal_restore_failed",
				logging.String(logging.FieldFolder, mgr.Folder().Name),
				logging.Error(err),
				logging.String(logging.FieldImpact, "segments received before the restart are rescanned from disk"),
			)
		} else if restored > 0 {
			d.logger.Info("segments restored from journal",
				logging.String(logging.FieldFolder, mgr.Folder().Name),
				logging.Int("segments", restored),
			)
		}
	}

	for i, mgr := range d.managers {
		if err := mgr.Start(runCtx); err != nil {
			for _, started := range d.managers[:i] {
				started.Stop()
			}
			cancel()
			_ = d.lock.Unlock()
			return fmt.Errorf("start workflow %s: %w", mgr.Folder().Name, err)
		}
	}
	if err := d.server.start(runCtx); err != nil {
		logging.WarnWithContext(d.logger, "metrics server failed to start", "metrics_start_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check metrics.bind for address conflicts"),
			logging.String(logging.FieldImpact, "metrics are not exposed"),
		)
	}
	d.maintenance.start()

	d.cancel = cancel
	d.running.Store(true)
	d.logger.Info("xritd daemon started",
		logging.String("lock", d.lockPath),
		logging.Int("folders", len(d.managers)),
	)
	return nil
}

// Stop stops background processing and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	d.maintenance.stop()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	for _, mgr := range d.managers {
		mgr.Stop()
	}
	d.server.stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("xritd daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	var errs []error
	if d.publisher != nil {
		errs = append(errs, d.publisher.Close())
	}
	if d.journal != nil {
		errs = append(errs, d.journal.Close())
	}
	return errors.Join(errs...)
}

func (d *Daemon) closeJournal() {
	if d.journal != nil {
		_ = d.journal.Close()
	}
}

// Metrics returns the collectors shared by every folder.
func (d *Daemon) Metrics() *metrics.Collectors { return d.metrics }

// Status returns the current daemon status.
func (d *Daemon) Status() Status {
	status := Status{
		Running:      d.running.Load(),
		LockFilePath: d.lockPath,
	}
	if d.journal != nil {
		status.JournalPath = d.journal.Path()
	}
	for _, mgr := range d.managers {
		status.Workflows = append(status.Workflows, mgr.Status())
	}
	return status
}
