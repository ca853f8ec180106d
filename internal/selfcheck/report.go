package selfcheck

import (
	"fmt"
	"time"

	"leafspec/internal/pipeline"
)

// Violation codes. The code set is stable: downstream tooling keys on these
// strings, so new defect classes get new codes instead of repurposed ones.
const (
	// CodeMetaEmpty: the metadata table is missing, unreadable, has no
	// rows, or has rows but no non-reference samples.
	CodeMetaEmpty = "META_EMPTY"
	// CodeMetaMissingColumns: the metadata table lacks required columns.
	CodeMetaMissingColumns = "META_MISSING_COLUMNS"
	// CodeSensorCoverage: a sensor has no non-reference samples at all.
	CodeSensorCoverage = "SENSOR_COVERAGE"
	// CodeSpectraMinCount: fewer spectrum files than the configured floor.
	CodeSpectraMinCount = "SPECTRA_MIN_COUNT"
	// CodeFileUnreadable: a spectrum file cannot be opened or parsed, or
	// holds no data rows.
	CodeFileUnreadable = "FILE_UNREADABLE"
	// CodeSpectrumColumns: a spectrum file lacks required columns.
	CodeSpectrumColumns = "SPECTRUM_COLUMNS"
	// CodeNormModeMismatch: the mode comment, the norm_mode_used column,
	// and the configured policy disagree about how spectra were
	// normalized.
	CodeNormModeMismatch = "NORM_MODE_MISMATCH"
	// CodeWavelengthOrder: a spectrum's wavelengths are not strictly
	// increasing.
	CodeWavelengthOrder = "WAVELENGTH_ORDER"
	// CodeNonfiniteReflectance: NaN or infinity in a reflectance column.
	CodeNonfiniteReflectance = "NONFINITE_REFLECTANCE"
	// CodeFilenameSuffix: a spectrum file name carries no recoverable
	// sensor token.
	CodeFilenameSuffix = "FILENAME_SUFFIX"
	// CodeMetaSpectraMismatch: metadata samples and spectrum files do not
	// pair up one to one.
	CodeMetaSpectraMismatch = "META_SPECTRA_MISMATCH"
)

// Report statuses.
const (
	StatusPass = "PASS"
	StatusFail = "FAIL"
)

// ErrCheckFailed is returned alongside a completed report whose status is
// FAIL. It marks a data verdict, not a harness fault: callers map it to exit
// code 1 while infrastructure errors exit 2.
var ErrCheckFailed = fmt.Errorf("%w: self-check found violations", pipeline.ErrValidation)

// Violation is one independent defect found by the battery.
type Violation struct {
	// Code is the stable defect class.
	Code string
	// File is the spectrum file basename the defect is scoped to, empty
	// for table- or batch-level defects.
	File string
	// Detail is a human-readable description of the specific finding.
	Detail string
}

// Report is the outcome of one self-check run. A report exists even when the
// verdict is FAIL; only infrastructure faults prevent one.
type Report struct {
	// Status is StatusPass or StatusFail.
	Status string
	// CheckedAt is the UTC completion time.
	CheckedAt time.Time
	// MetaRows counts every metadata row, references included.
	MetaRows int
	// SampleRows counts non-reference metadata rows.
	SampleRows int
	// SpectraFiles counts discovered spectrum files, readable or not.
	SpectraFiles int
	// SensorCounts maps sensor to non-reference sample count.
	SensorCounts map[string]int
	// ModeCounts maps declared normalization mode to spectrum file count.
	ModeCounts map[string]int
	// Violations lists every defect found, in deterministic order.
	Violations []Violation
	// Warnings lists advisory findings that never affect the status.
	Warnings []string
	// AuditCopy is the path of the mirrored metadata table, set only when
	// the verdict is PASS and an audit directory is configured.
	AuditCopy string
}

func (r *Report) add(code, file, detail string) {
	r.Violations = append(r.Violations, Violation{Code: code, File: file, Detail: detail})
}

func (r *Report) warn(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Passed reports whether the battery found no violations.
func (r *Report) Passed() bool {
	return r.Status == StatusPass
}
