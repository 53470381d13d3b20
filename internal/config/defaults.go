package config

const (
	defaultLogDir                   = "~/.local/share/txrmwatch/logs"
	defaultExtension                = ".txrm"
	defaultScanInterval             = 300
	defaultSampleInterval           = 60
	defaultSettleWindow             = 600
	defaultMaxConcurrentExtractions = 4
	defaultExtractorTimeout         = 600
	defaultNotifyRequestTimeout     = 10
	defaultJournalRetentionDays     = 30
	defaultLogRetentionDays         = 60
	defaultLogFormat                = "console"
	defaultLogLevel                 = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LogDir: defaultLogDir,
		},
		Monitor: Monitor{
			Extension:                defaultExtension,
			ScanInterval:             defaultScanInterval,
			SampleInterval:           defaultSampleInterval,
			SettleWindow:             defaultSettleWindow,
			MaxConcurrentExtractions: defaultMaxConcurrentExtractions,
		},
		Extractor: Extractor{
			Timeout: defaultExtractorTimeout,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			Success:        true,
			Failure:        true,
		},
		Journal: Journal{
			Enabled:       true,
			RetentionDays: defaultJournalRetentionDays,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
