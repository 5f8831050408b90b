package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeFolders(); err != nil {
		return err
	}
	if err := c.normalizeJournal(); err != nil {
		return err
	}
	c.normalizeWorkflow()
	c.normalizePublish()
	c.normalizeLogging()
	c.Metrics.Bind = strings.TrimSpace(c.Metrics.Bind)
	c.Maintenance.Schedule = strings.TrimSpace(c.Maintenance.Schedule)
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeFolders() error {
	for i := range c.Folders {
		folder := &c.Folders[i]
		var err error
		if folder.Path, err = expandPath(strings.TrimSpace(folder.Path)); err != nil {
			return fmt.Errorf("folders[%d].path: %w", i, err)
		}
		if strings.TrimSpace(folder.OutputDir) == "" {
			folder.OutputDir = folder.Path
		}
		if folder.OutputDir, err = expandPath(strings.TrimSpace(folder.OutputDir)); err != nil {
			return fmt.Errorf("folders[%d].output_dir: %w", i, err)
		}
		folder.Name = strings.TrimSpace(folder.Name)
		if folder.Name == "" && folder.Path != "" {
			folder.Name = filepath.Base(folder.Path)
		}
	}
	return nil
}

func (c *Config) normalizeJournal() error {
	c.Journal.Path = strings.TrimSpace(c.Journal.Path)
	if c.Journal.Path == "" {
		c.Journal.Path = filepath.Join(c.Paths.StateDir, defaultJournalFile)
	}
	var err error
	if c.Journal.Path, err = expandPath(c.Journal.Path); err != nil {
		return fmt.Errorf("journal.path: %w", err)
	}
	return nil
}

func (c *Config) normalizeWorkflow() {
	c.Workflow.ScanPattern = strings.TrimSpace(c.Workflow.ScanPattern)
	if c.Workflow.ScanPattern == "" {
		c.Workflow.ScanPattern = defaultScanPattern
	}
}

func (c *Config) normalizePublish() {
	if c.Publish.NATSURL == "" {
		if value, ok := os.LookupEnv("XRITD_NATS_URL"); ok {
			c.Publish.NATSURL = value
		}
	}
	c.Publish.NATSURL = strings.TrimSpace(c.Publish.NATSURL)
	c.Publish.SubjectPrefix = strings.Trim(strings.TrimSpace(c.Publish.SubjectPrefix), ".")
	if c.Publish.SubjectPrefix == "" {
		c.Publish.SubjectPrefix = defaultSubjectPrefix
	}
	c.Publish.S3Bucket = strings.TrimSpace(c.Publish.S3Bucket)
	c.Publish.S3Prefix = strings.Trim(strings.TrimSpace(c.Publish.S3Prefix), "/")
	c.Publish.S3Region = strings.TrimSpace(c.Publish.S3Region)
	c.Publish.S3Endpoint = strings.TrimSpace(c.Publish.S3Endpoint)
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
