package chart_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"leafspec/internal/chart"
	"leafspec/internal/config"
	"leafspec/internal/export"
	"leafspec/internal/inventory"
	"leafspec/internal/testsupport"
)

func exportTree(t *testing.T, cfg *config.Config) {
	t.Helper()
	if _, err := inventory.NewScanner(cfg, nil).Scan(context.Background()); err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if _, err := export.NewExporter(cfg, nil).Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
}

func renderPage(t *testing.T, cfg *config.Config) string {
	t.Helper()
	path, err := chart.RenderSpectra(cfg, nil)
	if err != nil {
		t.Fatalf("RenderSpectra() error = %v", err)
	}
	if want := filepath.Join(cfg.Paths.ReportsDir, chart.FileName); path != want {
		t.Fatalf("path = %s, want %s", path, want)
	}
	html, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile(%s) error = %v", path, err)
	}
	return string(html)
}

func TestRenderSpectraChartsEachSensor(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	spec := testsupport.CubeSpec{
		Wavelengths: []float64{450, 550, 650},
		BandValues:  []float64{0.5, 1.0, 1.5},
	}
	testsupport.WriteCubePair(t, cfg.Paths.RawDir, "leaf_a_visnir_D1", spec)
	testsupport.WriteCubePair(t, cfg.Paths.RawDir, "leaf_b_swir_D1", spec)
	testsupport.WriteCubePair(t, cfg.Paths.RawDir, "cloth_visnir_D1", testsupport.CubeSpec{
		Wavelengths: []float64{450, 550, 650},
		BandValues:  []float64{1.0, 1.0, 1.0},
	})
	exportTree(t, cfg)

	html := renderPage(t, cfg)
	for _, want := range []string{
		"Normalized spectra (VISNIR)",
		"Normalized spectra (SWIR)",
		"leaf_a_visnir_D1",
		"leaf_b_swir_D1",
	} {
		if !strings.Contains(html, want) {
			t.Fatalf("page missing %q", want)
		}
	}
}

func TestRenderSpectraOverlaysBaselineCurve(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	testsupport.WriteCubePair(t, cfg.Paths.RawDir, "leaf_a_visnir_D1", testsupport.CubeSpec{
		Wavelengths: []float64{450, 550, 650},
		BandValues:  []float64{0.5, 1.0, 1.5},
	})
	exportTree(t, cfg)

	curvePath := filepath.Join(cfg.Paths.ProcessedDir, export.BaselineFileName("VISNIR"))
	err := export.WriteBaselineCurve(curvePath, export.BaselineCurve{
		Wavelengths: []float64{450, 550, 650},
		Values:      []float64{0.9, 1.0, 1.1},
	})
	if err != nil {
		t.Fatalf("WriteBaselineCurve() error = %v", err)
	}

	html := renderPage(t, cfg)
	if !strings.Contains(html, "baseline") {
		t.Fatal("page missing baseline series")
	}
}

func TestRenderSpectraSkipsMismatchedAxis(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	write := func(sampleID string, wavelengths, values []float64) {
		t.Helper()
		_, err := export.WriteSpectrumFile(cfg.Paths.ProcessedDir, export.SpectrumRecord{
			SampleID:    sampleID,
			Sensor:      "VISNIR",
			Timepoint:   "D1",
			Wavelengths: wavelengths,
			Reflectance: values,
			NormMode:    "ZSCORE",
			RefFile:     "NONE",
		})
		if err != nil {
			t.Fatalf("WriteSpectrumFile(%s) error = %v", sampleID, err)
		}
	}
	write("leaf_a_visnir_D1", []float64{450, 550, 650}, []float64{0.4, 0.5, 0.6})
	write("leaf_b_visnir_D1", []float64{450, 550}, []float64{0.4, 0.5})

	html := renderPage(t, cfg)
	if !strings.Contains(html, "leaf_a_visnir_D1") {
		t.Fatal("page missing leaf_a_visnir_D1 series")
	}
	if strings.Contains(html, "leaf_b_visnir_D1") {
		t.Fatal("page should skip the spectrum with a short axis")
	}
}

func TestRenderSpectraFailsWithoutSpectra(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if _, err := chart.RenderSpectra(cfg, nil); err == nil {
		t.Fatal("RenderSpectra() expected error on empty processed dir")
	}
}
