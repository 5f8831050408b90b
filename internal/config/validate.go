package config

import (
	"errors"
	"fmt"
	"net"
	"path/filepath"

	"github.com/robfig/cron/v3"
)

// MaintenanceParser is the cron dialect accepted by maintenance.schedule.
var MaintenanceParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateFolders(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validatePublish(); err != nil {
		return err
	}
	if err := c.validateMetrics(); err != nil {
		return err
	}
	if err := c.validateMaintenance(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateFolders() error {
	if len(c.Folders) == 0 {
		return errors.New("at least one [[folders]] entry is required")
	}
	if _, err := filepath.Match(c.Workflow.ScanPattern, "probe"); err != nil {
		return fmt.Errorf("workflow.scan_pattern: %w", err)
	}
	seenPaths := make(map[string]int, len(c.Folders))
	seenNames := make(map[string]int, len(c.Folders))
	for i, folder := range c.Folders {
		if folder.Path == "" {
			return fmt.Errorf("folders[%d].path must be set", i)
		}
		if prev, ok := seenPaths[folder.Path]; ok {
			return fmt.Errorf("folders[%d].path duplicates folders[%d].path (%s)", i, prev, folder.Path)
		}
		if prev, ok := seenNames[folder.Name]; ok {
			return fmt.Errorf("folders[%d].name duplicates folders[%d].name (%s)", i, prev, folder.Name)
		}
		seenPaths[folder.Path] = i
		seenNames[folder.Name] = i
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if err := ensurePositiveMap(map[string]int{
		"workflow.tick_interval_ms":    c.Workflow.TickIntervalMS,
		"workflow.max_retry_count":     c.Workflow.MaxRetryCount,
		"workflow.time_bucket_seconds": c.Workflow.TimeBucketSeconds,
	}); err != nil {
		return err
	}
	if c.Workflow.TimeBucketSeconds >= 1<<20 {
		return errors.New("workflow.time_bucket_seconds must be below 1048576")
	}
	return nil
}

func (c *Config) validatePublish() error {
	if c.Publish.RequestTimeout <= 0 {
		return errors.New("publish.request_timeout must be positive (seconds)")
	}
	if c.Publish.S3Bucket == "" && (c.Publish.S3Endpoint != "" || c.Publish.S3Prefix != "") {
		return errors.New("publish.s3_bucket must be set when s3_endpoint or s3_prefix is configured")
	}
	return nil
}

func (c *Config) validateMetrics() error {
	if c.Metrics.Bind == "" {
		return nil
	}
	if _, _, err := net.SplitHostPort(c.Metrics.Bind); err != nil {
		return fmt.Errorf("metrics.bind: %w", err)
	}
	return nil
}

func (c *Config) validateMaintenance() error {
	if c.Maintenance.Schedule == "" {
		return nil
	}
	if _, err := MaintenanceParser.Parse(c.Maintenance.Schedule); err != nil {
		return fmt.Errorf("maintenance.schedule: %w", err)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	if c.Logging.RetentionDays < 0 {
		return errors.New("logging.retention_days must be >= 0")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
