package config

const (
	defaultLogDir              = "~/.local/share/xritd/logs"
	defaultStateDir            = "~/.local/share/xritd/state"
	defaultFolderPath          = "~/.local/share/xritd/incoming"
	defaultOutputDir           = "~/.local/share/xritd/products"
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
	defaultLogRetentionDays    = 30
	defaultTickIntervalMS      = 200
	defaultMaxRetryCount       = 3
	defaultTimeBucketSeconds   = 1
	defaultScanPattern         = "*.lrit"
	defaultSubjectPrefix       = "xrit.products"
	defaultPublishTimeout      = 10
	defaultMaintenanceSchedule = "@hourly"
	defaultJournalFile         = "journal.db"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LogDir:   defaultLogDir,
			StateDir: defaultStateDir,
		},
		Folders: []Folder{
			{Name: "default", Path: defaultFolderPath, OutputDir: defaultOutputDir},
		},
		Pipelines: Pipelines{
			FalseColor:  true,
			Visible:     true,
			Infrared:    true,
			WaterVapour: true,
			Other:       true,
		},
		Workflow: Workflow{
			TickIntervalMS:    defaultTickIntervalMS,
			MaxRetryCount:     defaultMaxRetryCount,
			TimeBucketSeconds: defaultTimeBucketSeconds,
			CropFullDisk:      true,
			RenameIncoming:    true,
			ScanPattern:       defaultScanPattern,
		},
		Journal: Journal{
			Enabled: true,
		},
		Publish: Publish{
			SubjectPrefix:  defaultSubjectPrefix,
			RequestTimeout: defaultPublishTimeout,
		},
		Maintenance: Maintenance{
			Schedule: defaultMaintenanceSchedule,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
