package testsupport

import (
	"path/filepath"
	"testing"

	"xritd/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options. The journal is
// disabled unless WithJournal is passed.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Folders = []config.Folder{{
		Name:      "test",
		Path:      filepath.Join(base, "incoming"),
		OutputDir: filepath.Join(base, "products"),
	}}
	cfgVal.Journal.Enabled = false
	cfgVal.Journal.Path = filepath.Join(base, "state", "journal.db")
	cfgVal.Metrics.Bind = ""

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return builder.cfg
}

// WithPipelines replaces the pipeline enable flags.
func WithPipelines(p config.Pipelines) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Pipelines = p
	}
}

// WithEraseFiles toggles segment erasure after processing.
func WithEraseFiles(enabled bool) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Workflow.EraseFiles = enabled
	}
}

// WithMaxRetryCount overrides the per-group retry ceiling.
func WithMaxRetryCount(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Workflow.MaxRetryCount = n
	}
}

// WithNOAAFileFormat toggles NOAA-style output naming.
func WithNOAAFileFormat(enabled bool) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Workflow.NOAAFileFormat = enabled
	}
}

// WithTickInterval overrides the scheduler tick in milliseconds.
func WithTickInterval(ms int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Workflow.TickIntervalMS = ms
	}
}

// WithJournal enables the segment journal under the test state directory.
func WithJournal() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Journal.Enabled = true
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}

// Folder returns the single watched folder of a config built by NewConfig.
func Folder(cfg *config.Config) config.Folder {
	return cfg.Folders[0]
}
