package config

const (
	defaultRawDir               = "~/hsi/raw"
	defaultProcessedDir         = "~/hsi/processed"
	defaultReportsDir           = "~/hsi/reports"
	defaultAuditDir             = "~/hsi/audit"
	defaultLogDir               = "~/.local/share/leafspec/logs"
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	defaultNormMode             = NormModeAuto
	defaultBaselineRule         = "D0"
	defaultROIFraction          = 1.0
	defaultMinSpectra           = 3
	defaultExportWorkers        = 1
	defaultMinFreeGiB           = 1
	defaultWatchDebounceSeconds = 2
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			RawDir:       defaultRawDir,
			ProcessedDir: defaultProcessedDir,
			ReportsDir:   defaultReportsDir,
			AuditDir:     defaultAuditDir,
			LogDir:       defaultLogDir,
		},
		Normalization: Normalization{
			Mode:         defaultNormMode,
			BaselineRule: defaultBaselineRule,
			ROIFraction:  defaultROIFraction,
		},
		SelfCheck: SelfCheck{
			MinSpectra: defaultMinSpectra,
		},
		Workflow: Workflow{
			ExportWorkers:        defaultExportWorkers,
			MinFreeGiB:           defaultMinFreeGiB,
			WatchDebounceSeconds: defaultWatchDebounceSeconds,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
