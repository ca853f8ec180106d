package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"leafspec/internal/fileutil"
	"leafspec/internal/inventory"
)

// SpectrumFileSuffix is the mandatory suffix of every exported spectrum
// file. The self-check discovers spectra by this convention.
const SpectrumFileSuffix = "_spectrum.csv"

// ModeCommentPrefix heads the first line of every spectrum file.
const ModeCommentPrefix = "# Normalization mode used: "

// HeaderModeUnknown is recorded when a spectrum file lacks the leading mode
// comment.
const HeaderModeUnknown = "UNKNOWN"

// SpectrumColumns is the stable column order of a spectrum file.
var SpectrumColumns = []string{
	"band_idx",
	"wavelength_nm",
	"refl_norm",
	"sensor",
	"timepoint",
	"ref_file",
	"norm_mode_used",
}

// SpectrumRecord is one exported spectrum: the per-band normalized
// reflectance of a single sample plus its provenance.
type SpectrumRecord struct {
	SampleID    string
	Sensor      string
	Timepoint   string
	Wavelengths []float64
	Reflectance []float64
	// NormMode is the normalization recorded in the norm_mode_used column.
	NormMode string
	// HeaderMode is the mode from the leading comment line. Populated on
	// read; HeaderModeUnknown when the comment is absent. Ignored on write
	// (the comment always mirrors NormMode).
	HeaderMode string
	// ColumnModes lists the distinct norm_mode_used values in order of
	// first appearance. Populated on read; more than one entry means the
	// column is internally inconsistent.
	ColumnModes []string
	// RefFile is the reference header basename, or spectral.RefNone.
	RefFile string
	// Region describes the extraction window, e.g. "full" or "center:0.60".
	// Provenance for logs only, not persisted in the file.
	Region string
}

// FileName returns the record's spectrum file name.
func (r SpectrumRecord) FileName() string {
	return r.SampleID + SpectrumFileSuffix
}

// WriteSpectrumFile persists rec under dir atomically and returns the path.
func WriteSpectrumFile(dir string, rec SpectrumRecord) (string, error) {
	if len(rec.Reflectance) == 0 {
		return "", fmt.Errorf("spectrum %s has no bands", rec.SampleID)
	}
	if len(rec.Wavelengths) != len(rec.Reflectance) {
		return "", fmt.Errorf("spectrum %s axis length %d does not match %d values",
			rec.SampleID, len(rec.Wavelengths), len(rec.Reflectance))
	}

	var buf bytes.Buffer
	buf.WriteString(ModeCommentPrefix + rec.NormMode + "\n")
	w := csv.NewWriter(&buf)
	if err := w.Write(SpectrumColumns); err != nil {
		return "", err
	}
	for i, v := range rec.Reflectance {
		row := []string{
			strconv.Itoa(i),
			formatFloat(rec.Wavelengths[i]),
			formatFloat(v),
			rec.Sensor,
			rec.Timepoint,
			rec.RefFile,
			rec.NormMode,
		}
		if err := w.Write(row); err != nil {
			return "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}

	path := filepath.Join(dir, rec.FileName())
	if err := fileutil.WriteFileAtomic(path, buf.Bytes(), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// ReadSpectrumFile parses the spectrum file at path. Non-finite reflectance
// values parse successfully (the self-check inspects them); structurally
// unparseable content is an error.
func ReadSpectrumFile(path string) (SpectrumRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return SpectrumRecord{}, fmt.Errorf("open spectrum file: %w", err)
	}

	rec := SpectrumRecord{
		SampleID:   SampleIDFromFileName(filepath.Base(path)),
		HeaderMode: HeaderModeUnknown,
	}

	text := string(data)
	if strings.HasPrefix(text, "#") {
		first, rest, _ := strings.Cut(text, "\n")
		text = rest
		if strings.HasPrefix(first, strings.TrimRight(ModeCommentPrefix, " ")) {
			_, mode, _ := strings.Cut(first, ":")
			rec.HeaderMode = strings.TrimSpace(mode)
		}
	}

	reader := csv.NewReader(strings.NewReader(text))
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return SpectrumRecord{}, fmt.Errorf("read spectrum rows: %w", err)
	}
	if len(rows) == 0 {
		return rec, nil
	}

	index := make(map[string]int, len(rows[0]))
	for i, col := range rows[0] {
		index[col] = i
	}
	get := func(row []string, col string) string {
		if i, ok := index[col]; ok && i < len(row) {
			return row[i]
		}
		return ""
	}

	for n, row := range rows[1:] {
		wl, err := strconv.ParseFloat(get(row, "wavelength_nm"), 64)
		if err != nil {
			return SpectrumRecord{}, fmt.Errorf("row %d: wavelength_nm: %w", n+2, err)
		}
		refl, err := strconv.ParseFloat(get(row, "refl_norm"), 64)
		if err != nil {
			return SpectrumRecord{}, fmt.Errorf("row %d: refl_norm: %w", n+2, err)
		}
		rec.Wavelengths = append(rec.Wavelengths, wl)
		rec.Reflectance = append(rec.Reflectance, refl)
		if n == 0 {
			rec.Sensor = get(row, "sensor")
			rec.Timepoint = get(row, "timepoint")
			rec.RefFile = get(row, "ref_file")
			rec.NormMode = get(row, "norm_mode_used")
		}
		if mode := get(row, "norm_mode_used"); !containsString(rec.ColumnModes, mode) {
			rec.ColumnModes = append(rec.ColumnModes, mode)
		}
	}
	return rec, nil
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// MissingSpectrumColumns reports required spectrum columns absent from the
// file's header row.
func MissingSpectrumColumns(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	text := string(data)
	if strings.HasPrefix(text, "#") {
		_, text, _ = strings.Cut(text, "\n")
	}
	headerLine, _, _ := strings.Cut(text, "\n")
	reader := csv.NewReader(strings.NewReader(headerLine))
	header, err := reader.Read()
	if err != nil {
		return append([]string(nil), SpectrumColumns...), nil
	}
	present := make(map[string]struct{}, len(header))
	for _, col := range header {
		present[col] = struct{}{}
	}
	var missing []string
	for _, col := range SpectrumColumns {
		if _, ok := present[col]; !ok {
			missing = append(missing, col)
		}
	}
	return missing, nil
}

// ListSpectrumFiles returns the spectrum files under dir sorted by name.
func ListSpectrumFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list spectrum files: %w", err)
	}
	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.HasSuffix(entry.Name(), SpectrumFileSuffix) {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	return files, nil
}

// SampleIDFromFileName strips the spectrum suffix from a file name.
func SampleIDFromFileName(name string) string {
	return strings.TrimSuffix(name, SpectrumFileSuffix)
}

// SensorFromFileName recovers the sensor family from a spectrum file name
// using the same tokens the scanner recognizes.
func SensorFromFileName(name string) (string, bool) {
	return inventory.DetectSensor(name)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
