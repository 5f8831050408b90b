package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"xritd/internal/config"
	"xritd/internal/logging"
	"xritd/internal/product"
)

// journalRetention bounds how long journal rows outlive the groups they
// describe.
const journalRetention = 2 * product.GroupLifetime

// MaintenanceResult summarizes one housekeeping pass.
type MaintenanceResult struct {
	LogsRemoved   int
	JournalPruned int64
	JournalRows   int
}

type maintenance struct {
	scheduler *cron.Cron
	logger    *slog.Logger
}

func newMaintenance(cfg *config.Config, d *Daemon, logger *slog.Logger) (*maintenance, error) {
	expr := strings.TrimSpace(cfg.Maintenance.Schedule)
	m := &maintenance{logger: logging.NewComponentLogger(logger, "maintenance")}
	if expr == "" {
		return m, nil
	}
	schedule, err := config.MaintenanceParser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("parse maintenance schedule %q: %w", expr, err)
	}
	m.scheduler = cron.New(cron.WithParser(config.MaintenanceParser))
	m.scheduler.Schedule(schedule, cron.FuncJob(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if _, err := d.RunMaintenance(ctx); err != nil {
			logging.WarnWithContext(m.logger, "maintenance failed", "maintenance_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "journal may grow until the next run"),
			)
		}
	}))
	return m, nil
}

func (m *maintenance) start() {
	if m == nil || m.scheduler == nil {
		return
	}
	m.scheduler.Start()
}

func (m *maintenance) stop() {
	if m == nil || m.scheduler == nil {
		return
	}
	<-m.scheduler.Stop().Done()
}

// RunMaintenance prunes old log files and stale journal rows.
func (d *Daemon) RunMaintenance(ctx context.Context) (MaintenanceResult, error) {
	var result MaintenanceResult
	logDir := strings.TrimSpace(d.cfg.Paths.LogDir)
	if logDir != "" {
		result.LogsRemoved = logging.CleanupOldLogs(d.logger, d.cfg.Logging.RetentionDays,
			logging.RetentionTarget{
				Dir:     logDir,
				Pattern: "xritd-*.log",
				Exclude: []string{filepath.Join(logDir, "xritd.log")},
			},
			logging.RetentionTarget{Dir: logDir, Pattern: "xritd-*.events"},
		)
	}

	if d.journal != nil {
		cutoff := time.Now().Add(-journalRetention)
		pruned, err := d.journal.PruneBefore(ctx, cutoff)
		if err != nil {
			return result, fmt.Errorf("prune journal: %w", err)
		}
		result.JournalPruned = pruned
		if pruned > 0 {
			if err := d.journal.Vacuum(ctx); err != nil {
				return result, fmt.Errorf("vacuum journal: %w", err)
			}
		}
		rows, err := d.journal.Count(ctx)
		if err != nil {
			return result, fmt.Errorf("count journal rows: %w", err)
		}
		result.JournalRows = rows
	}

	d.logger.Info("maintenance complete",
		logging.Int("logs_removed", result.LogsRemoved),
		logging.Int64("journal_pruned", result.JournalPruned),
		logging.Int("journal_rows", result.JournalRows),
	)
	return result, nil
}
