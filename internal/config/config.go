package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration for the pipeline roots and artifacts.
type Paths struct {
	RawDir       string `toml:"raw_dir"`
	ProcessedDir string `toml:"processed_dir"`
	ReportsDir   string `toml:"reports_dir"`
	AuditDir     string `toml:"audit_dir"`
	LogDir       string `toml:"log_dir"`
}

// Normalization contains the spectral normalization policy.
type Normalization struct {
	// Mode selects the normalization policy: AUTO runs the full
	// CLOTH -> BASELINE -> ZSCORE cascade; any other value forces that
	// single mode.
	Mode string `toml:"mode"`
	// BaselineRule names the timepoint whose spectra define the per-sensor
	// baseline curves (e.g. "D0").
	BaselineRule string `toml:"baseline_rule"`
	// ROIFraction is the centered crop fraction of rows and columns used
	// for spatial reduction. 1.0 means the full frame.
	ROIFraction float64 `toml:"roi_fraction"`
}

// SelfCheck contains thresholds for the dataset self-check battery.
type SelfCheck struct {
	// MinSpectra is the minimum number of spectrum files a dataset must
	// contain to pass.
	MinSpectra int `toml:"min_spectra"`
}

// Workflow contains runtime tuning for stage execution.
type Workflow struct {
	// ExportWorkers bounds the exporter fan-out. 1 keeps the export
	// strictly sequential.
	ExportWorkers int `toml:"export_workers"`
	// MinFreeGiB is the preflight free-disk floor for the processed dir.
	MinFreeGiB int `toml:"min_free_gib"`
	// WatchDebounceSeconds is how long watch mode waits for the raw tree
	// to settle before triggering a rescan.
	WatchDebounceSeconds int `toml:"watch_debounce_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// NormModeAuto and friends are the canonical normalization policy values
// accepted by [normalization].mode and recorded in spectrum files.
const (
	NormModeAuto     = "AUTO"
	NormModeCloth    = "CLOTH"
	NormModeBaseline = "BASELINE"
	NormModeZScore   = "ZSCORE"
)

// Config encapsulates all configuration values for leafspec.
//
// Configuration sections by subsystem:
//   - Paths: raw/processed/reports/audit roots and the log directory
//   - Normalization: cascade policy, baseline timepoint rule, ROI fraction
//   - SelfCheck: dataset validation thresholds
//   - Workflow: exporter fan-out, preflight floor, watch debounce
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Normalization Normalization `toml:"normalization"`
	SelfCheck     SelfCheck     `toml:"selfcheck"`
	Workflow      Workflow      `toml:"workflow"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/leafspec/config.toml")
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

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
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

	defaultPath, err := expandPath("~/.config/leafspec/config.toml")
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("leafspec.toml")
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

// EnsureDirectories creates the artifact directories the pipeline writes to.
// The raw directory is never created here: a missing acquisition root is a
// misconfiguration the scanner must surface, not paper over. AuditDir is
// created on a best-effort basis so runs proceed when external storage is
// temporarily unavailable.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.ProcessedDir, c.Paths.ReportsDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Paths.AuditDir) != "" {
		_ = os.MkdirAll(c.Paths.AuditDir, 0o755)
	}
	return nil
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
	sample := sampleConfig

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sample), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
