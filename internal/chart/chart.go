package chart

import (
	"bytes"
	"fmt"
	"log/slog"
	"math"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"leafspec/internal/config"
	"leafspec/internal/export"
	"leafspec/internal/fileutil"
	"leafspec/internal/logging"
)

// FileName is the rendered spectra page under the reports directory.
const FileName = "spectra.html"

// RenderSpectra renders every exported spectrum into an HTML page with one
// line chart per sensor and returns the written path. Spectra whose axis
// does not match their sensor's chart axis are skipped with a warning, and
// an available baseline curve is overlaid as its own series.
func RenderSpectra(cfg *config.Config, logger *slog.Logger) (string, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "chart")

	files, err := export.ListSpectrumFiles(cfg.Paths.ProcessedDir)
	if err != nil {
		return "", err
	}

	bySensor := make(map[string][]export.SpectrumRecord)
	for _, path := range files {
		rec, err := export.ReadSpectrumFile(path)
		if err != nil {
			logger.Warn("skipping unreadable spectrum",
				logging.String("file", filepath.Base(path)),
				logging.Error(err))
			continue
		}
		if len(rec.Wavelengths) == 0 {
			continue
		}
		bySensor[rec.Sensor] = append(bySensor[rec.Sensor], rec)
	}
	if len(bySensor) == 0 {
		return "", fmt.Errorf("no spectra to plot in %s", cfg.Paths.ProcessedDir)
	}

	sensors := make([]string, 0, len(bySensor))
	for sensor := range bySensor {
		sensors = append(sensors, sensor)
	}
	sort.Strings(sensors)

	page := components.NewPage()
	page.PageTitle = "leafspec spectra"
	for _, sensor := range sensors {
		page.AddCharts(sensorChart(cfg, logger, sensor, bySensor[sensor]))
	}

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		return "", fmt.Errorf("render spectra page: %w", err)
	}

	path := filepath.Join(cfg.Paths.ReportsDir, FileName)
	if err := fileutil.WriteFileAtomic(path, buf.Bytes(), 0o644); err != nil {
		return "", err
	}
	logger.Info("spectra page written",
		logging.String("path", path),
		logging.Int("sensors", len(sensors)))
	return path, nil
}

func sensorChart(cfg *config.Config, logger *slog.Logger, sensor string, records []export.SpectrumRecord) *charts.Line {
	axis := records[0].Wavelengths

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "1200px", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Normalized spectra (" + sensor + ")",
			Subtitle: fmt.Sprintf("%d spectra", len(records)),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "wavelength (nm)"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "normalized reflectance"}),
	)
	line.SetXAxis(axisLabels(axis))

	for _, rec := range records {
		if len(rec.Wavelengths) != len(axis) {
			logger.Warn("skipping spectrum with mismatched axis",
				logging.String(logging.FieldSampleID, rec.SampleID),
				logging.String(logging.FieldSensor, sensor))
			continue
		}
		line.AddSeries(rec.SampleID, lineData(rec.Reflectance))
	}

	curve, err := export.ReadBaselineCurve(filepath.Join(cfg.Paths.ProcessedDir, export.BaselineFileName(sensor)))
	if err == nil && len(curve.Values) == len(axis) {
		line.AddSeries("baseline", lineData(curve.Values))
	}
	return line
}

func axisLabels(wavelengths []float64) []string {
	labels := make([]string, len(wavelengths))
	for i, wl := range wavelengths {
		labels[i] = strconv.FormatFloat(wl, 'g', -1, 64)
	}
	return labels
}

// lineData maps values onto chart points, turning non-finite values into
// gaps so one NaN cannot break the page's embedded JSON.
func lineData(values []float64) []opts.LineData {
	data := make([]opts.LineData, len(values))
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			data[i] = opts.LineData{}
			continue
		}
		data[i] = opts.LineData{Value: v}
	}
	return data
}
