package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeNormalization()
	c.normalizeSelfCheck()
	c.normalizeWorkflow()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.RawDir, err = expandPath(c.Paths.RawDir); err != nil {
		return fmt.Errorf("paths.raw_dir: %w", err)
	}
	if c.Paths.ProcessedDir, err = expandPath(c.Paths.ProcessedDir); err != nil {
		return fmt.Errorf("paths.processed_dir: %w", err)
	}
	if c.Paths.ReportsDir, err = expandPath(c.Paths.ReportsDir); err != nil {
		return fmt.Errorf("paths.reports_dir: %w", err)
	}
	if c.Paths.AuditDir, err = expandPath(c.Paths.AuditDir); err != nil {
		return fmt.Errorf("paths.audit_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeNormalization() {
	c.Normalization.Mode = strings.ToUpper(strings.TrimSpace(c.Normalization.Mode))
	if c.Normalization.Mode == "" {
		c.Normalization.Mode = defaultNormMode
	}
	c.Normalization.BaselineRule = strings.TrimSpace(c.Normalization.BaselineRule)
	if c.Normalization.BaselineRule == "" {
		c.Normalization.BaselineRule = defaultBaselineRule
	}
	if c.Normalization.ROIFraction == 0 {
		c.Normalization.ROIFraction = defaultROIFraction
	}
}

func (c *Config) normalizeSelfCheck() {
	if c.SelfCheck.MinSpectra == 0 {
		c.SelfCheck.MinSpectra = defaultMinSpectra
	}
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.ExportWorkers == 0 {
		c.Workflow.ExportWorkers = defaultExportWorkers
	}
	if c.Workflow.MinFreeGiB == 0 {
		c.Workflow.MinFreeGiB = defaultMinFreeGiB
	}
	if c.Workflow.WatchDebounceSeconds == 0 {
		c.Workflow.WatchDebounceSeconds = defaultWatchDebounceSeconds
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
