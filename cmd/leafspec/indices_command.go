package main

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"leafspec/internal/config"
	"leafspec/internal/export"
	"leafspec/internal/fileutil"
	"leafspec/internal/inventory"
	"leafspec/internal/logging"
	"leafspec/internal/spectral"
)

// indexBandTolNm gates band lookup: an axis with no band within this many
// nanometers of a target wavelength yields no value for that index.
const indexBandTolNm = 15.0

const indicesFileName = "indices.csv"

type indexRow struct {
	SampleID  string
	Timepoint string
	NDVI      float64
	HasNDVI   bool
	PRI       float64
	HasPRI    bool
	NDWI      float64
	HasNDWI   bool
}

func newIndicesCommand(cctx *commandContext) *cobra.Command {
	var writeCSV bool

	cmd := &cobra.Command{
		Use:   "indices",
		Short: "Compute NDVI, PRI, and NDWI from exported spectra",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := cctx.stageLogger()
			if err != nil {
				return err
			}

			rows, err := computeIndices(cfg, logger)
			if err != nil {
				return err
			}
			if len(rows) == 0 {
				return errors.New("no VISNIR spectra to index (run export first)")
			}

			out := cmd.OutOrStdout()
			tableRows := make([][]string, 0, len(rows))
			for _, row := range rows {
				tableRows = append(tableRows, []string{
					row.SampleID,
					conditionLabel(row.Timepoint),
					formatIndex(row.NDVI, row.HasNDVI),
					formatIndex(row.PRI, row.HasPRI),
					formatIndex(row.NDWI, row.HasNDWI),
				})
			}
			fmt.Fprintln(out, renderTable(out,
				[]string{"Sample", "Condition", "NDVI", "PRI", "NDWI"}, tableRows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight}))

			if writeCSV {
				path, err := writeIndicesCSV(cfg, rows)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Indices written: %s\n", path)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&writeCSV, "csv", false, "Also write indices.csv to the reports dir")
	return cmd
}

// computeIndices derives one row per VISNIR spectrum, joining the matching
// SWIR spectrum (same plant and timepoint) for NDWI when one exists.
func computeIndices(cfg *config.Config, logger *slog.Logger) ([]indexRow, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	files, err := export.ListSpectrumFiles(cfg.Paths.ProcessedDir)
	if err != nil {
		return nil, err
	}

	var visnir []export.SpectrumRecord
	swirByKey := make(map[string]export.SpectrumRecord)
	for _, path := range files {
		rec, err := export.ReadSpectrumFile(path)
		if err != nil {
			logger.Warn("skipping unreadable spectrum",
				logging.String("file", filepath.Base(path)),
				logging.Error(err))
			continue
		}
		switch rec.Sensor {
		case inventory.SensorVISNIR:
			visnir = append(visnir, rec)
		case inventory.SensorSWIR:
			swirByKey[pairKey(rec.SampleID)] = rec
		}
	}
	sort.Slice(visnir, func(i, j int) bool { return visnir[i].SampleID < visnir[j].SampleID })

	rows := make([]indexRow, 0, len(visnir))
	for _, rec := range visnir {
		row := indexRow{SampleID: rec.SampleID, Timepoint: rec.Timepoint}
		if nir, red, ok := bandPair(rec, spectral.WavelengthNIRNm, spectral.WavelengthRedNm); ok {
			row.NDVI = spectral.NDVI(nir, red)
			row.HasNDVI = true
		}
		if r531, r570, ok := bandPair(rec, spectral.WavelengthPRI531Nm, spectral.WavelengthPRI570Nm); ok {
			row.PRI = spectral.PRI(r531, r570)
			row.HasPRI = true
		}
		if swir, ok := swirByKey[pairKey(rec.SampleID)]; ok {
			nirIdx, nirErr := spectral.PickBand(rec.Wavelengths, spectral.WavelengthNDWINIRNm, indexBandTolNm)
			swirIdx, swirErr := spectral.PickBand(swir.Wavelengths, spectral.WavelengthSWIRNm, indexBandTolNm)
			if nirErr == nil && swirErr == nil {
				row.NDWI = spectral.NDWI(rec.Reflectance[nirIdx], swir.Reflectance[swirIdx])
				row.HasNDWI = true
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func bandPair(rec export.SpectrumRecord, targetA, targetB float64) (float64, float64, bool) {
	idxA, errA := spectral.PickBand(rec.Wavelengths, targetA, indexBandTolNm)
	idxB, errB := spectral.PickBand(rec.Wavelengths, targetB, indexBandTolNm)
	if errA != nil || errB != nil {
		return 0, 0, false
	}
	return rec.Reflectance[idxA], rec.Reflectance[idxB], true
}

// pairKey collapses the sensor token out of a sample ID so the VISNIR and
// SWIR acquisitions of one plant and timepoint can be matched.
func pairKey(sampleID string) string {
	lower := strings.ToLower(sampleID)
	for _, token := range []string{"visnir", "swir", "vis"} {
		if strings.Contains(lower, token) {
			return strings.Replace(lower, token, "", 1)
		}
	}
	return lower
}

func formatIndex(v float64, ok bool) string {
	if !ok {
		return "-"
	}
	return strconv.FormatFloat(v, 'f', 4, 64)
}

func writeIndicesCSV(cfg *config.Config, rows []indexRow) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"sample_id", "timepoint", "condition", "ndvi", "pri", "ndwi"}); err != nil {
		return "", err
	}
	for _, row := range rows {
		record := []string{
			row.SampleID,
			row.Timepoint,
			conditionLabel(row.Timepoint),
			csvIndex(row.NDVI, row.HasNDVI),
			csvIndex(row.PRI, row.HasPRI),
			csvIndex(row.NDWI, row.HasNDWI),
		}
		if err := w.Write(record); err != nil {
			return "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}

	path := filepath.Join(cfg.Paths.ReportsDir, indicesFileName)
	if err := fileutil.WriteFileAtomic(path, buf.Bytes(), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func csvIndex(v float64, ok bool) string {
	if !ok {
		return ""
	}
	return strconv.FormatFloat(v, 'f', 6, 64)
}
