package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateNormalization(); err != nil {
		return err
	}
	if err := c.validateSelfCheck(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.RawDir) == "" {
		return errors.New("paths.raw_dir must be set")
	}
	if strings.TrimSpace(c.Paths.ProcessedDir) == "" {
		return errors.New("paths.processed_dir must be set")
	}
	if strings.TrimSpace(c.Paths.ReportsDir) == "" {
		return errors.New("paths.reports_dir must be set")
	}
	if c.Paths.RawDir == c.Paths.ProcessedDir {
		return errors.New("paths.raw_dir and paths.processed_dir must differ")
	}
	return nil
}

func (c *Config) validateNormalization() error {
	switch c.Normalization.Mode {
	case NormModeAuto, NormModeCloth, NormModeBaseline, NormModeZScore:
	default:
		return fmt.Errorf("normalization.mode must be one of AUTO, CLOTH, BASELINE, ZSCORE (got %q)", c.Normalization.Mode)
	}
	if c.Normalization.BaselineRule == "" {
		return errors.New("normalization.baseline_rule must be set")
	}
	if c.Normalization.ROIFraction <= 0 || c.Normalization.ROIFraction > 1 {
		return fmt.Errorf("normalization.roi_fraction must be in (0, 1] (got %g)", c.Normalization.ROIFraction)
	}
	return nil
}

func (c *Config) validateSelfCheck() error {
	if c.SelfCheck.MinSpectra < 1 {
		return errors.New("selfcheck.min_spectra must be >= 1")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if c.Workflow.ExportWorkers < 1 {
		return errors.New("workflow.export_workers must be >= 1")
	}
	if c.Workflow.MinFreeGiB < 0 {
		return errors.New("workflow.min_free_gib must be >= 0")
	}
	if c.Workflow.WatchDebounceSeconds < 1 {
		return errors.New("workflow.watch_debounce_seconds must be >= 1")
	}
	return nil
}
