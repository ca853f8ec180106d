package selfcheck

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"leafspec/internal/config"
	"leafspec/internal/export"
	"leafspec/internal/fileutil"
	"leafspec/internal/inventory"
	"leafspec/internal/logging"
	"leafspec/internal/pipeline"
	"leafspec/internal/spectral"
	"leafspec/internal/trace"
)

// Checker runs the validation battery over the processed artifacts.
type Checker struct {
	cfg    *config.Config
	logger *slog.Logger
	trace  *trace.Writer
}

// NewChecker builds a checker for cfg. A nil logger disables logging.
func NewChecker(cfg *config.Config, logger *slog.Logger) *Checker {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Checker{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "selfcheck"),
		trace:  trace.NewWriter(filepath.Join(cfg.Paths.ReportsDir, trace.FileName)),
	}
}

// Run executes the full battery and returns the report. A FAIL verdict is
// reported as ErrCheckFailed next to the completed report; any other error is
// a harness fault and carries no report.
func (c *Checker) Run(ctx context.Context) (*Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	log := logging.WithContext(ctx, c.logger)

	report := &Report{
		SensorCounts: make(map[string]int),
		ModeCounts:   make(map[string]int),
	}

	if _, err := os.Stat(c.cfg.Paths.ProcessedDir); err != nil {
		c.traceErr("processed dir unavailable")
		return nil, pipeline.Wrap(pipeline.ErrInfrastructure, pipeline.StageSelfCheck,
			"stat processed dir", c.cfg.Paths.ProcessedDir, err)
	}

	metaPath := filepath.Join(c.cfg.Paths.ProcessedDir, inventory.MetaFileName)
	table, crossCheck := c.checkTable(metaPath, report)

	files, err := export.ListSpectrumFiles(c.cfg.Paths.ProcessedDir)
	if err != nil {
		c.traceErr("processed dir unreadable")
		return nil, pipeline.Wrap(pipeline.ErrInfrastructure, pipeline.StageSelfCheck,
			"list spectra", c.cfg.Paths.ProcessedDir, err)
	}
	report.SpectraFiles = len(files)
	if len(files) < c.cfg.SelfCheck.MinSpectra {
		report.add(CodeSpectraMinCount, "",
			fmt.Sprintf("found %d spectrum files, need at least %d", len(files), c.cfg.SelfCheck.MinSpectra))
	}

	records, err := c.checkFiles(ctx, files, report)
	if err != nil {
		return nil, err
	}
	if crossCheck {
		checkPairing(table, files, report)
	}
	c.checkPolicy(report)
	c.collectWarnings(files, records, report)

	report.Status = StatusPass
	if len(report.Violations) > 0 {
		report.Status = StatusFail
	}
	report.CheckedAt = time.Now().UTC()

	for _, v := range report.Violations {
		log.Warn("violation",
			logging.String("code", v.Code),
			logging.String("file", v.File),
			logging.String("detail", v.Detail))
	}
	for _, w := range report.Warnings {
		log.Warn("advisory", logging.String("detail", w))
	}

	if report.Status == StatusPass && table != nil {
		c.mirrorTable(metaPath, report)
	}

	marker := trace.MarkerOK
	if report.Status == StatusFail {
		marker = trace.MarkerErr
	}
	if err := c.trace.Append(pipeline.StageSelfCheck, marker,
		trace.F("status", report.Status),
		trace.Int("meta_rows", report.MetaRows),
		trace.Int("spectra_count", report.SpectraFiles),
		trace.Modes(report.ModeCounts),
	); err != nil {
		return nil, pipeline.Wrap(pipeline.ErrInfrastructure, pipeline.StageSelfCheck,
			"append trace", "", err)
	}

	log.Info("self-check complete",
		logging.String("status", report.Status),
		logging.Int("meta_rows", report.MetaRows),
		logging.Int("spectra", report.SpectraFiles),
		logging.Int("violations", len(report.Violations)),
		logging.Int("warnings", len(report.Warnings)))

	if report.Status == StatusFail {
		return report, ErrCheckFailed
	}
	return report, nil
}

// checkTable loads and validates the metadata table. The second return
// reports whether the table is structurally sound enough for row-level
// cross-checks against the spectrum files.
func (c *Checker) checkTable(metaPath string, report *Report) (*inventory.Table, bool) {
	table, err := inventory.ReadTable(metaPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			report.add(CodeMetaEmpty, "", "metadata table not found (run scan first)")
		} else {
			report.add(CodeMetaEmpty, "", "metadata table unreadable: "+err.Error())
		}
		return nil, false
	}
	report.MetaRows = len(table.Records)

	if missing := table.MissingColumns(); len(missing) > 0 {
		report.add(CodeMetaMissingColumns, "", "missing columns: "+strings.Join(missing, ", "))
		return table, false
	}
	if len(table.Records) == 0 {
		report.add(CodeMetaEmpty, "", "metadata table has no rows")
		return table, false
	}

	samples := table.Samples()
	report.SampleRows = len(samples)
	for _, rec := range samples {
		report.SensorCounts[rec.Sensor]++
	}
	if len(samples) == 0 {
		report.add(CodeMetaEmpty, "", "metadata table has no non-reference samples")
		return table, true
	}
	for _, sensor := range []string{inventory.SensorVISNIR, inventory.SensorSWIR} {
		if report.SensorCounts[sensor] == 0 {
			report.add(CodeSensorCoverage, "", "no non-reference "+sensor+" samples")
		}
	}
	return table, true
}

// checkFiles validates every spectrum file independently and returns the
// parsed records keyed by sample id. Unreadable files stay in the pairing
// set (they exist) but contribute no record.
func (c *Checker) checkFiles(ctx context.Context, files []string, report *Report) (map[string]export.SpectrumRecord, error) {
	records := make(map[string]export.SpectrumRecord, len(files))
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		base := filepath.Base(path)

		if _, ok := export.SensorFromFileName(base); !ok {
			report.add(CodeFilenameSuffix, base, "no sensor token in file name")
		}

		rec, err := export.ReadSpectrumFile(path)
		if err != nil {
			report.add(CodeFileUnreadable, base, err.Error())
			continue
		}
		if len(rec.Wavelengths) == 0 {
			report.add(CodeFileUnreadable, base, "no data rows")
			continue
		}
		report.ModeCounts[rec.HeaderMode]++
		records[rec.SampleID] = rec

		missing, err := export.MissingSpectrumColumns(path)
		if err == nil && len(missing) > 0 {
			report.add(CodeSpectrumColumns, base, "missing columns: "+strings.Join(missing, ", "))
		}
		// Mode consistency is meaningless when the mode column itself is
		// absent; the column violation above already covers that file.
		if !slices.Contains(missing, "norm_mode_used") {
			switch {
			case len(rec.ColumnModes) > 1:
				report.add(CodeNormModeMismatch, base,
					"rows carry modes "+strings.Join(rec.ColumnModes, ", "))
			case len(rec.ColumnModes) == 1 && rec.ColumnModes[0] != rec.HeaderMode:
				report.add(CodeNormModeMismatch, base,
					fmt.Sprintf("header says %s, rows say %s", rec.HeaderMode, rec.ColumnModes[0]))
			case len(rec.ColumnModes) == 1:
				if _, err := spectral.ParseMode(rec.ColumnModes[0]); err != nil {
					report.add(CodeNormModeMismatch, base, err.Error())
				}
			}
		}
		if !spectral.MonotonicWavelengths(rec.Wavelengths) {
			report.add(CodeWavelengthOrder, base, "wavelengths not strictly increasing")
		}
		for i, v := range rec.Reflectance {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				report.add(CodeNonfiniteReflectance, base,
					fmt.Sprintf("non-finite value at band %d", i))
				break
			}
		}
	}
	return records, nil
}

// checkPairing compares non-reference metadata samples against the spectrum
// files on disk in both directions.
func checkPairing(table *inventory.Table, files []string, report *Report) {
	onDisk := make(map[string]struct{}, len(files))
	for _, path := range files {
		onDisk[export.SampleIDFromFileName(filepath.Base(path))] = struct{}{}
	}

	samples := table.Samples()
	inMeta := make(map[string]struct{}, len(samples))
	for _, rec := range samples {
		inMeta[rec.SampleID] = struct{}{}
		if _, ok := onDisk[rec.SampleID]; !ok {
			report.add(CodeMetaSpectraMismatch, rec.SampleID+export.SpectrumFileSuffix,
				"metadata sample "+rec.SampleID+" has no spectrum file")
		}
	}
	for _, path := range files {
		base := filepath.Base(path)
		if _, ok := inMeta[export.SampleIDFromFileName(base)]; !ok {
			report.add(CodeMetaSpectraMismatch, base, "spectrum file has no metadata sample")
		}
	}
}

// checkPolicy enforces the configured normalization policy against what the
// exported spectra actually declare.
func (c *Checker) checkPolicy(report *Report) {
	switch c.cfg.Normalization.Mode {
	case config.NormModeCloth:
		if report.SpectraFiles > 0 && report.ModeCounts[config.NormModeCloth] == 0 {
			report.add(CodeNormModeMismatch, "",
				"policy CLOTH forced but no spectrum declares a cloth reference")
		}
	case config.NormModeBaseline:
		if !c.anyBaselineCurve() {
			report.add(CodeNormModeMismatch, "",
				"policy BASELINE forced but no baseline curve file exists")
		}
	}
}

func (c *Checker) anyBaselineCurve() bool {
	entries, err := os.ReadDir(c.cfg.Paths.ProcessedDir)
	if err != nil {
		return false
	}
	for _, entry := range entries {
		if !entry.IsDir() && export.IsBaselineFileName(entry.Name()) {
			return true
		}
	}
	return false
}

// collectWarnings gathers advisory findings: a heavy ZSCORE fallback share
// under AUTO, and ratio-normalized reflectance outside the clip range. Both
// flag batches worth a second look without making the verdict FAIL.
func (c *Checker) collectWarnings(files []string, records map[string]export.SpectrumRecord, report *Report) {
	if c.cfg.Normalization.Mode == config.NormModeAuto && report.SpectraFiles > 0 {
		z := report.ModeCounts[config.NormModeZScore]
		if float64(z) > 0.25*float64(report.SpectraFiles) {
			report.warn("ZSCORE fallback used for %d of %d spectra (over 25%%)", z, report.SpectraFiles)
		}
	}
	for _, path := range files {
		base := filepath.Base(path)
		rec, ok := records[export.SampleIDFromFileName(base)]
		if !ok {
			continue
		}
		if rec.HeaderMode != config.NormModeCloth && rec.HeaderMode != config.NormModeBaseline {
			continue
		}
		for _, v := range rec.Reflectance {
			if v < spectral.ClipLow || v > spectral.ClipHigh {
				report.warn("%s: reflectance outside [%g, %g] for %s normalization",
					base, spectral.ClipLow, spectral.ClipHigh, rec.HeaderMode)
				break
			}
		}
	}
}

// mirrorTable copies the verified metadata table into the audit directory.
// The mirror is best effort: a missing or unwritable audit volume must not
// flip a PASS into a harness fault.
func (c *Checker) mirrorTable(metaPath string, report *Report) {
	auditDir := strings.TrimSpace(c.cfg.Paths.AuditDir)
	if auditDir == "" {
		return
	}
	dst := filepath.Join(auditDir, inventory.MetaFileName)
	if err := fileutil.CopyFileVerified(metaPath, dst); err != nil {
		c.logger.Warn("audit mirror failed", logging.String("path", dst), logging.Error(err))
		return
	}
	report.AuditCopy = dst
	c.logger.Info("metadata table mirrored", logging.String("path", dst))
}

func (c *Checker) traceErr(reason string) {
	if err := c.trace.Append(pipeline.StageSelfCheck, trace.MarkerErr, trace.F("err", reason)); err != nil {
		c.logger.Warn("trace append failed", logging.Error(err))
	}
}
