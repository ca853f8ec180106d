package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"leafspec/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// All directory roots (including the raw dir) exist on return; tests
// exercising missing-root behaviour should point the relevant path elsewhere.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.RawDir = filepath.Join(base, "raw")
	cfg.Paths.ProcessedDir = filepath.Join(base, "processed")
	cfg.Paths.ReportsDir = filepath.Join(base, "reports")
	cfg.Paths.AuditDir = filepath.Join(base, "audit")
	cfg.Paths.LogDir = filepath.Join(base, "logs")

	for _, opt := range opts {
		opt(&cfg)
	}

	for _, dir := range []string{
		cfg.Paths.RawDir,
		cfg.Paths.ProcessedDir,
		cfg.Paths.ReportsDir,
		cfg.Paths.AuditDir,
		cfg.Paths.LogDir,
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}

	return &cfg
}

// WithNormMode sets the normalization policy mode on the test config.
func WithNormMode(mode string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Normalization.Mode = mode
	}
}

// WithBaselineRule sets the baseline timepoint rule on the test config.
func WithBaselineRule(rule string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Normalization.BaselineRule = rule
	}
}

// WithROIFraction sets the centered-crop fraction on the test config.
func WithROIFraction(fraction float64) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Normalization.ROIFraction = fraction
	}
}

// WithExportWorkers sets the exporter fan-out on the test config.
func WithExportWorkers(workers int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Workflow.ExportWorkers = workers
	}
}

// WithMinSpectra sets the self-check minimum spectrum count.
func WithMinSpectra(count int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.SelfCheck.MinSpectra = count
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.RawDir)
}
