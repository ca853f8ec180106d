package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"leafspec/internal/fileutil"
)

// BaselineFileName returns the per-sensor baseline curve file name, e.g.
// baseline_VISNIR.csv.
func BaselineFileName(sensor string) string {
	return "baseline_" + sensor + ".csv"
}

// IsBaselineFileName reports whether name is a per-sensor baseline curve.
func IsBaselineFileName(name string) bool {
	return strings.HasPrefix(name, "baseline_") && strings.HasSuffix(name, ".csv")
}

var baselineColumns = []string{"band_idx", "wavelength_nm", "reflectance"}

// BaselineCurve is a stored per-sensor reference curve.
type BaselineCurve struct {
	Wavelengths []float64
	Values      []float64
}

// WriteBaselineCurve persists a baseline curve atomically.
func WriteBaselineCurve(path string, curve BaselineCurve) error {
	if len(curve.Values) == 0 {
		return fmt.Errorf("baseline curve has no bands")
	}
	if len(curve.Wavelengths) != len(curve.Values) {
		return fmt.Errorf("baseline axis length %d does not match %d values",
			len(curve.Wavelengths), len(curve.Values))
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(baselineColumns); err != nil {
		return err
	}
	for i, v := range curve.Values {
		row := []string{strconv.Itoa(i), formatFloat(curve.Wavelengths[i]), formatFloat(v)}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return fileutil.WriteFileAtomic(path, buf.Bytes(), 0o644)
}

// ReadBaselineCurve loads a stored baseline curve.
func ReadBaselineCurve(path string) (BaselineCurve, error) {
	f, err := os.Open(path)
	if err != nil {
		return BaselineCurve{}, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	rows, err := reader.ReadAll()
	if err != nil {
		return BaselineCurve{}, fmt.Errorf("read baseline curve: %w", err)
	}
	if len(rows) < 2 {
		return BaselineCurve{}, fmt.Errorf("baseline curve %s has no data rows", path)
	}

	index := make(map[string]int, len(rows[0]))
	for i, col := range rows[0] {
		index[col] = i
	}
	wlIdx, okWl := index["wavelength_nm"]
	valIdx, okVal := index["reflectance"]
	if !okWl || !okVal {
		return BaselineCurve{}, fmt.Errorf("baseline curve %s lacks wavelength_nm/reflectance columns", path)
	}

	var curve BaselineCurve
	for n, row := range rows[1:] {
		if wlIdx >= len(row) || valIdx >= len(row) {
			return BaselineCurve{}, fmt.Errorf("baseline curve row %d is short", n+2)
		}
		wl, err := strconv.ParseFloat(row[wlIdx], 64)
		if err != nil {
			return BaselineCurve{}, fmt.Errorf("baseline curve row %d: wavelength_nm: %w", n+2, err)
		}
		v, err := strconv.ParseFloat(row[valIdx], 64)
		if err != nil {
			return BaselineCurve{}, fmt.Errorf("baseline curve row %d: reflectance: %w", n+2, err)
		}
		curve.Wavelengths = append(curve.Wavelengths, wl)
		curve.Values = append(curve.Values, v)
	}
	return curve, nil
}
