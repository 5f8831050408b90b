package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains daemon-owned directories.
type Paths struct {
	LogDir   string `toml:"log_dir"`
	StateDir string `toml:"state_dir"`
}

// Folder describes one watched directory of incoming transport files. Each
// folder gets its own reassembler and scheduler.
type Folder struct {
	Name      string `toml:"name"`
	Path      string `toml:"path"`
	OutputDir string `toml:"output_dir"`
}

// Pipelines toggles the five product pipelines.
type Pipelines struct {
	FalseColor  bool `toml:"false_color"`
	Visible     bool `toml:"visible"`
	Infrared    bool `toml:"infrared"`
	WaterVapour bool `toml:"water_vapour"`
	Other       bool `toml:"other"`
}

// Workflow contains scheduler timing and behaviour switches.
type Workflow struct {
	TickIntervalMS     int    `toml:"tick_interval_ms"`
	MaxRetryCount      int    `toml:"max_retry_count"`
	EraseFiles         bool   `toml:"erase_files"`
	NOAAFileFormat     bool   `toml:"noaa_file_format"`
	CropFullDisk       bool   `toml:"crop_full_disk"`
	TimeBucketSeconds  int    `toml:"time_bucket_seconds"`
	ValidateTrailerCRC bool   `toml:"validate_trailer_crc"`
	RenameIncoming     bool   `toml:"rename_incoming"`
	ScanPattern        string `toml:"scan_pattern"`
}

// Journal configures the SQLite segment journal used to rebuild reassembly
// state after a restart.
type Journal struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Publish configures downstream product notifications.
type Publish struct {
	NATSURL        string `toml:"nats_url"`
	SubjectPrefix  string `toml:"subject_prefix"`
	S3Bucket       string `toml:"s3_bucket"`
	S3Prefix       string `toml:"s3_prefix"`
	S3Region       string `toml:"s3_region"`
	S3Endpoint     string `toml:"s3_endpoint"`
	S3UsePathStyle bool   `toml:"s3_use_path_style"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Metrics configures the optional Prometheus endpoint. An empty bind disables it.
type Metrics struct {
	Bind string `toml:"bind"`
}

// Maintenance configures the periodic housekeeping job.
type Maintenance struct {
	Schedule string `toml:"schedule"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for xritd.
//
// Configuration sections by subsystem:
//   - Paths: log and state directories
//   - Folders: watched transport-file directories and their output targets
//   - Pipelines: which product kinds are generated
//   - Workflow: scheduler tick, retry ceiling, naming and erasure
//   - Journal: crash-tolerant reassembly state
//   - Publish: NATS product events and S3 mirroring
//   - Metrics: Prometheus exposition
//   - Maintenance: housekeeping schedule
//   - Logging: log format, level, and retention
type Config struct {
	Paths       Paths       `toml:"paths"`
	Folders     []Folder    `toml:"folders"`
	Pipelines   Pipelines   `toml:"pipelines"`
	Workflow    Workflow    `toml:"workflow"`
	Journal     Journal     `toml:"journal"`
	Publish     Publish     `toml:"publish"`
	Metrics     Metrics     `toml:"metrics"`
	Maintenance Maintenance `toml:"maintenance"`
	Logging     Logging     `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/xritd/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		// A file that lists folders replaces the default folder entirely.
		cfg.Folders = nil
		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
		if len(cfg.Folders) == 0 {
			cfg.Folders = Default().Folders
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("xritd.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation. A
// folder that cannot be created is fatal: a worker cannot run without it.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.LogDir, c.Paths.StateDir}
	for _, folder := range c.Folders {
		dirs = append(dirs, folder.Path, folder.OutputDir)
	}
	if c.Journal.Enabled && c.Journal.Path != "" {
		dirs = append(dirs, filepath.Dir(c.Journal.Path))
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// TickInterval returns the scheduler period.
func (w Workflow) TickInterval() time.Duration {
	return time.Duration(w.TickIntervalMS) * time.Millisecond
}

// TimeBucket returns the width of the frame-time bucket used for group keys.
func (w Workflow) TimeBucket() time.Duration {
	return time.Duration(w.TimeBucketSeconds) * time.Second
}

// Timeout returns the publish request timeout.
func (p Publish) Timeout() time.Duration {
	return time.Duration(p.RequestTimeout) * time.Second
}

// Enabled reports whether any publisher is configured.
func (p Publish) Enabled() bool {
	return p.NATSURL != "" || p.S3Bucket != ""
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
