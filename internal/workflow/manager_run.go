package workflow

import (
	"context"
	"errors"
	"maps"
	"slices"
	"time"

	"github.com/google/uuid"

	"xritd/internal/logging"
	"xritd/internal/organizer"
	"xritd/internal/services"
)

// TickResult summarizes one scheduler pass.
type TickResult struct {
	CorrelationID string
	Scan          organizer.ScanResult
	Groups        int
	Written       int
	Skipped       int
	Failed        int
	Retired       int
	Removed       int
	Erased        int
}

// Start launches the scheduling loop in its own goroutine.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return errors.New("workflow already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	m.wg.Add(1)
	go m.run(runCtx)
	return nil
}

// Stop ends the loop and waits for the current tick to finish. Renders in
// flight are allowed to complete.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
}

func (m *Manager) run(ctx context.Context) {
	defer m.wg.Done()
	m.logger.Info("workflow started",
		logging.String(logging.FieldEventType, "workflow_started"),
		logging.Duration("tick_interval", m.interval),
	)
	for {
		m.Tick(ctx)
		select {
		case <-ctx.Done():
			m.logger.Info("workflow stopped", logging.String(logging.FieldEventType, "workflow_stopped"))
			return
		case <-time.After(m.interval):
		}
	}
}

// Tick runs one scan and scheduling pass. Groups are visited in key order;
// a cancelled context stops the pass between groups.
func (m *Manager) Tick(ctx context.Context) TickResult {
	started := time.Now()
	result := TickResult{CorrelationID: uuid.NewString()}
	ctx = services.WithRequestID(services.WithFolder(ctx, m.folder.Name), result.CorrelationID)
	logger := logging.WithContext(ctx, m.logger)

	scan, err := m.organizer.Scan(ctx)
	result.Scan = scan
	if err != nil {
		m.setLastError(err)
		logging.WarnWithContext(logger, "folder scan failed", "scan_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check that the watched folder exists and is readable"),
			logging.String(logging.FieldImpact, "new segments are picked up on the next tick"),
		)
	}

	groups := m.organizer.Groups()
	result.Groups = len(groups)
	for _, key := range slices.Sorted(maps.Keys(groups)) {
		if ctx.Err() != nil {
			break
		}
		m.processGroup(ctx, groups[key], &result)
	}

	m.metrics.ObserveTick(m.folder.Name, time.Since(started))
	m.metrics.SetGroupsTracked(m.folder.Name, m.organizer.Len())
	m.recordTick(result)
	if result.Written > 0 || result.Failed > 0 || result.Removed > 0 {
		logger.Debug("tick complete",
			logging.Int("groups", result.Groups),
			logging.Int("written", result.Written),
			logging.Int("skipped", result.Skipped),
			logging.Int("failed", result.Failed),
			logging.Int("removed", result.Removed),
			logging.Int("erased", result.Erased),
			logging.Duration("elapsed", time.Since(started)),
		)
	}
	return result
}
