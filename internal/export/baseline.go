package export

import (
	"context"
	"log/slog"
	"path/filepath"
	"sort"

	"leafspec/internal/config"
	"leafspec/internal/logging"
	"leafspec/internal/pipeline"
	"leafspec/internal/spectral"
	"leafspec/internal/trace"
)

// BaselineResult is the outcome of one baseline build.
type BaselineResult struct {
	// Files maps sensor to the written curve path.
	Files map[string]string
	// Members maps sensor to the number of spectra averaged.
	Members map[string]int
	// Skipped lists spectrum files excluded for axis mismatch or parse
	// failure.
	Skipped []string
	// Rule is the timepoint that defined membership.
	Rule string
}

// BuildBaselines computes per-sensor baseline curves from the already
// exported spectra of the configured baseline timepoint and persists them as
// baseline_<SENSOR>.csv in the processed dir. It refuses to run when no
// member spectra exist, since writing an empty reference would silently
// change every later AUTO export.
func BuildBaselines(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*BaselineResult, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "baseline")
	tracer := trace.NewWriter(filepath.Join(cfg.Paths.ReportsDir, trace.FileName))
	rule := cfg.Normalization.BaselineRule

	files, err := ListSpectrumFiles(cfg.Paths.ProcessedDir)
	if err != nil {
		return nil, pipeline.Wrap(pipeline.ErrInfrastructure, pipeline.StageBaseline,
			"list spectra", cfg.Paths.ProcessedDir, err)
	}

	result := &BaselineResult{
		Files:   make(map[string]string),
		Members: make(map[string]int),
		Rule:    rule,
	}
	axes := make(map[string][]float64)
	curves := make(map[string][][]float64)

	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec, err := ReadSpectrumFile(path)
		if err != nil {
			result.Skipped = append(result.Skipped, filepath.Base(path))
			logger.Warn("skipping unreadable spectrum", logging.String("file", filepath.Base(path)), logging.Error(err))
			continue
		}
		if rec.Timepoint != rule {
			continue
		}
		sensor := rec.Sensor
		if axis, ok := axes[sensor]; ok {
			if !sameAxis(axis, rec.Wavelengths) {
				result.Skipped = append(result.Skipped, filepath.Base(path))
				logger.Warn("skipping spectrum with mismatched axis",
					logging.String("file", filepath.Base(path)),
					logging.String(logging.FieldSensor, sensor))
				continue
			}
		} else {
			axes[sensor] = rec.Wavelengths
		}
		curves[sensor] = append(curves[sensor], rec.Reflectance)
	}

	if len(curves) == 0 {
		return nil, pipeline.Wrap(pipeline.ErrValidation, pipeline.StageBaseline,
			"collect members", "no spectra for timepoint "+rule, nil)
	}

	sensors := make([]string, 0, len(curves))
	for sensor := range curves {
		sensors = append(sensors, sensor)
	}
	sort.Strings(sensors)

	total := 0
	for _, sensor := range sensors {
		mean, err := spectral.MeanCurve(curves[sensor])
		if err != nil {
			return nil, pipeline.Wrap(pipeline.ErrInfrastructure, pipeline.StageBaseline,
				"average curves", sensor, err)
		}
		path := filepath.Join(cfg.Paths.ProcessedDir, BaselineFileName(sensor))
		if err := WriteBaselineCurve(path, BaselineCurve{Wavelengths: axes[sensor], Values: mean}); err != nil {
			return nil, pipeline.Wrap(pipeline.ErrInfrastructure, pipeline.StageBaseline,
				"write baseline curve", path, err)
		}
		result.Files[sensor] = path
		result.Members[sensor] = len(curves[sensor])
		total += len(curves[sensor])
		logger.Info("baseline curve written",
			logging.String(logging.FieldSensor, sensor),
			logging.Int("members", len(curves[sensor])),
			logging.String("path", path))
	}

	if err := tracer.Append(pipeline.StageBaseline, trace.MarkerOK,
		trace.Int("sensors", len(result.Files)),
		trace.Int("members", total),
		trace.F("rule", rule),
	); err != nil {
		return nil, pipeline.Wrap(pipeline.ErrInfrastructure, pipeline.StageBaseline, "append trace line", "", err)
	}
	return result, nil
}

func sameAxis(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
