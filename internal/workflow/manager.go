package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"xritd/internal/config"
	"xritd/internal/logging"
	"xritd/internal/metrics"
	"xritd/internal/notifications"
	"xritd/internal/organizer"
	"xritd/internal/product"
	"xritd/internal/render"
	"xritd/internal/services"
)

// Manager schedules product generation for one watched folder.
type Manager struct {
	folder    config.Folder
	organizer *organizer.Organizer
	renderer  render.Renderer
	publisher notifications.Publisher
	metrics   *metrics.Collectors
	logger    *slog.Logger
	now       func() time.Time

	pipelines product.Pipelines
	interval  time.Duration
	bucket    time.Duration
	maxRetry  int
	erase     bool
	noaaNames bool

	mu       sync.RWMutex
	running  bool
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	lastErr  error
	lastTick time.Time
	ticks    uint64
	written  int
	retired  int
}

// ManagerOption configures optional Manager behavior.
type ManagerOption func(*Manager)

// WithRenderer replaces the built-in raw renderer.
func WithRenderer(r render.Renderer) ManagerOption {
	return func(m *Manager) {
		if r != nil {
			m.renderer = r
		}
	}
}

// WithPublisher announces written products through p.
func WithPublisher(p notifications.Publisher) ManagerOption {
	return func(m *Manager) {
		if p != nil {
			m.publisher = p
		}
	}
}

// WithMetrics records scheduler activity in c.
func WithMetrics(c *metrics.Collectors) ManagerOption {
	return func(m *Manager) { m.metrics = c }
}

// WithClock overrides the time source used for group timeouts.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// NewManager constructs a scheduler for folder. The output directory is
// created up front; failing to create it is fatal.
func NewManager(cfg *config.Config, folder config.Folder, org *organizer.Organizer, logger *slog.Logger, opts ...ManagerOption) (*Manager, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "workflow", "new manager", "configuration is required", nil)
	}
	if org == nil {
		return nil, services.Wrap(services.ErrConfiguration, "workflow", "new manager", "organizer is required", nil)
	}
	if err := os.MkdirAll(folder.OutputDir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "workflow", "new manager",
			fmt.Sprintf("create output directory %q", folder.OutputDir), err)
	}

	m := &Manager{
		folder:    folder,
		organizer: org,
		renderer:  render.NewRaw(),
		publisher: notifications.Nop(),
		logger: logging.NewComponentLogger(logger, "workflow").With(
			logging.String(logging.FieldFolder, folder.Name),
		),
		now: time.Now,
		pipelines: product.Pipelines{
			FalseColor:  cfg.Pipelines.FalseColor,
			Visible:     cfg.Pipelines.Visible,
			Infrared:    cfg.Pipelines.Infrared,
			WaterVapour: cfg.Pipelines.WaterVapour,
			Other:       cfg.Pipelines.Other,
		},
		interval:  cfg.Workflow.TickInterval(),
		bucket:    cfg.Workflow.TimeBucket(),
		maxRetry:  cfg.Workflow.MaxRetryCount,
		erase:     cfg.Workflow.EraseFiles,
		noaaNames: cfg.Workflow.NOAAFileFormat,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.interval <= 0 {
		m.interval = 200 * time.Millisecond
	}
	if m.maxRetry <= 0 {
		m.maxRetry = 1
	}
	return m, nil
}

// Folder returns the folder this manager serves.
func (m *Manager) Folder() config.Folder { return m.folder }

// Organizer returns the organizer feeding this manager.
func (m *Manager) Organizer() *organizer.Organizer { return m.organizer }
