package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"leafspec/internal/config"
	"leafspec/internal/envi"
	"leafspec/internal/fileutil"
	"leafspec/internal/inventory"
	"leafspec/internal/logging"
	"leafspec/internal/pipeline"
	"leafspec/internal/spectral"
	"leafspec/internal/trace"
)

// RunReportFileName is the per-run export report under the reports dir.
const RunReportFileName = "export_spectra_run.csv"

var runReportColumns = []string{"status", "file", "sensor", "timepoint", "ref", "out"}

// ExportedFile describes one successfully written spectrum.
type ExportedFile struct {
	SampleID  string
	Sensor    string
	Timepoint string
	Mode      string
	RefFile   string
	Path      string
}

// SampleFailure describes one sample the batch skipped.
type SampleFailure struct {
	SampleID  string
	FileName  string
	Sensor    string
	Timepoint string
	Reason    string
}

// Result is the outcome of one export batch.
type Result struct {
	Written    int
	Exported   []ExportedFile
	Failed     []SampleFailure
	ModeCounts map[string]int
	MetaPath   string
	ReportPath string
}

// Exporter implements the second pipeline stage: reducing each inventoried
// cube to a normalized mean spectrum and persisting it as a spectrum file.
type Exporter struct {
	cfg    *config.Config
	logger *slog.Logger
	trace  *trace.Writer
}

// NewExporter constructs an exporter over the configured directories.
func NewExporter(cfg *config.Config, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Exporter{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "export"),
		trace:  trace.NewWriter(filepath.Join(cfg.Paths.ReportsDir, trace.FileName)),
	}
}

// Run exports every non-reference sample in the metadata table. Per-sample
// failures are recorded and the batch continues; infrastructure faults abort
// it. Spectrum files are written atomically by distinct workers, so a batch
// aborted mid-run leaves only complete files behind.
func (e *Exporter) Run(ctx context.Context) (*Result, error) {
	metaPath := filepath.Join(e.cfg.Paths.ProcessedDir, inventory.MetaFileName)
	table, err := inventory.ReadTable(metaPath)
	if err != nil {
		e.traceErr("metadata table unavailable")
		return nil, pipeline.Wrap(pipeline.ErrInfrastructure, pipeline.StageExport,
			"read metadata table", metaPath+" (run scan first)", err)
	}

	samples := table.Samples()
	refs := e.resolveReferences(table, samples)
	policy := e.cfg.Normalization.Mode

	e.logger.Info("starting export batch",
		logging.Int("samples", len(samples)),
		logging.String("policy", policy),
		logging.Int("workers", e.cfg.Workflow.ExportWorkers))

	outcomes := make([]sampleOutcome, len(samples))
	g, gctx := errgroup.WithContext(pipeline.WithStage(ctx, pipeline.StageExport))
	g.SetLimit(e.cfg.Workflow.ExportWorkers)
	for i, rec := range samples {
		i, rec := i, rec
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			sctx := pipeline.WithSampleID(gctx, rec.SampleID)
			log := logging.WithContext(sctx, e.logger)
			exported, err := e.exportOne(sctx, rec, refs, policy)
			if err != nil {
				if !errors.Is(err, pipeline.ErrSample) {
					return err
				}
				log.Warn("sample failed", logging.Error(err))
				outcomes[i] = sampleOutcome{err: err}
				return nil
			}
			log.Info("spectrum written",
				logging.String("mode", exported.Mode),
				logging.String("ref", exported.RefFile))
			outcomes[i] = sampleOutcome{exported: exported, ok: true}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		e.traceErr("batch aborted")
		return nil, err
	}

	result := &Result{
		ModeCounts: make(map[string]int),
		MetaPath:   metaPath,
	}
	for i, rec := range samples {
		switch o := outcomes[i]; {
		case o.ok:
			result.Written++
			result.Exported = append(result.Exported, o.exported)
			result.ModeCounts[o.exported.Mode]++
		case o.err != nil:
			result.Failed = append(result.Failed, SampleFailure{
				SampleID:  rec.SampleID,
				FileName:  rec.FileName,
				Sensor:    rec.Sensor,
				Timepoint: rec.Timepoint,
				Reason:    o.err.Error(),
			})
		}
	}

	reportPath, err := e.writeRunReport(samples, outcomes)
	if err != nil {
		e.traceErr("run report unwritable")
		return nil, pipeline.Wrap(pipeline.ErrInfrastructure, pipeline.StageExport, "write run report", "", err)
	}
	result.ReportPath = reportPath

	if err := e.trace.Append(pipeline.StageExport, trace.MarkerDone,
		trace.Int("written", result.Written),
		trace.Int("failed", len(result.Failed)),
		trace.Modes(result.ModeCounts),
		trace.F("src", metaPath),
	); err != nil {
		return nil, pipeline.Wrap(pipeline.ErrInfrastructure, pipeline.StageExport, "append trace line", "", err)
	}

	e.logger.Info("export batch complete",
		logging.Int("written", result.Written),
		logging.Int("failed", len(result.Failed)))
	return result, nil
}

type sampleOutcome struct {
	exported ExportedFile
	ok       bool
	err      error
}

func (e *Exporter) exportOne(ctx context.Context, rec inventory.Record, refs *referenceSet, policy string) (ExportedFile, error) {
	fail := func(action string, err error) (ExportedFile, error) {
		return ExportedFile{}, pipeline.Wrap(pipeline.ErrSample, pipeline.StageExport, rec.SampleID, action, err)
	}

	hdr, err := envi.ReadHeader(rec.HdrPath)
	if err != nil {
		return fail("load header", err)
	}
	if err := hdr.Validate(); err != nil {
		return fail("validate header", err)
	}

	axis, fromHeader := hdr.WavelengthAxis()
	if !fromHeader {
		logging.WithContext(ctx, e.logger).Debug("wavelength axis degraded to band indices",
			logging.Int("bands", hdr.Bands))
	}
	if !spectral.MonotonicWavelengths(axis) {
		return fail("check wavelengths", fmt.Errorf("axis is not strictly increasing"))
	}

	window := envi.CenteredWindow(hdr, e.cfg.Normalization.ROIFraction)
	values, err := envi.MeanSpectrum(rec.CubePath, hdr, window)
	if err != nil {
		return fail("reduce cube", err)
	}

	inputs := spectral.Inputs{Sample: values}
	if cloth, ok := refs.clothFor(rec.SampleID); ok {
		if cloth.err != nil {
			return fail("load cloth reference", cloth.err)
		}
		inputs.Cloth = cloth.values
		inputs.ClothFile = cloth.file
	}
	if bl, ok := refs.baselineFor(rec.Sensor); ok {
		inputs.Baseline = bl.values
		inputs.BaselineFile = bl.file
	}

	outcome, err := spectral.Normalize(policy, inputs)
	if err != nil {
		return fail("normalize", err)
	}

	// The file layer preserves whatever it is given, so non-finite output
	// (an Inf pixel surviving into a z-score, for instance) is rejected
	// here rather than persisted for the self-check to find.
	normalized := spectral.Spectrum{Wavelengths: axis, Values: outcome.Values}
	if err := normalized.Validate(); err != nil {
		return fail("validate spectrum", err)
	}

	srec := SpectrumRecord{
		SampleID:    rec.SampleID,
		Sensor:      rec.Sensor,
		Timepoint:   rec.Timepoint,
		Wavelengths: axis,
		Reflectance: outcome.Values,
		NormMode:    string(outcome.Mode),
		RefFile:     outcome.RefFile,
		Region:      regionLabel(e.cfg.Normalization.ROIFraction),
	}
	path, err := WriteSpectrumFile(e.cfg.Paths.ProcessedDir, srec)
	if err != nil {
		return ExportedFile{}, pipeline.Wrap(pipeline.ErrInfrastructure, pipeline.StageExport,
			rec.SampleID, "write spectrum file", err)
	}

	return ExportedFile{
		SampleID:  rec.SampleID,
		Sensor:    rec.Sensor,
		Timepoint: rec.Timepoint,
		Mode:      string(outcome.Mode),
		RefFile:   outcome.RefFile,
		Path:      path,
	}, nil
}

// writeRunReport renders the per-run export report in metadata-table order,
// so re-running an unchanged batch produces an identical report.
func (e *Exporter) writeRunReport(samples []inventory.Record, outcomes []sampleOutcome) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(runReportColumns); err != nil {
		return "", err
	}
	for i, rec := range samples {
		var row []string
		switch o := outcomes[i]; {
		case o.ok:
			row = []string{"OK", rec.FileName, rec.Sensor, rec.Timepoint, o.exported.RefFile, filepath.Base(o.exported.Path)}
		case o.err != nil:
			row = []string{"ERR", rec.FileName, rec.Sensor, rec.Timepoint, "-", o.err.Error()}
		default:
			continue
		}
		if err := w.Write(row); err != nil {
			return "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}

	path := filepath.Join(e.cfg.Paths.ReportsDir, RunReportFileName)
	if err := fileutil.WriteFileAtomic(path, buf.Bytes(), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func (e *Exporter) traceErr(reason string) {
	if err := e.trace.Append(pipeline.StageExport, trace.MarkerErr, trace.F("err", reason)); err != nil {
		e.logger.Warn("trace append failed", logging.Error(err))
	}
}

type clothCurve struct {
	file   string
	values []float64
	err    error
}

type baselineCurve struct {
	file   string
	values []float64
}

// referenceSet holds the reference curves resolved once before the batch, so
// a cloth shared by many samples is reduced a single time and workers only
// read.
type referenceSet struct {
	clothPick map[string]string
	cloths    map[string]clothCurve
	baselines map[string]baselineCurve
}

func (r *referenceSet) clothFor(sampleID string) (clothCurve, bool) {
	id, ok := r.clothPick[sampleID]
	if !ok {
		return clothCurve{}, false
	}
	curve, ok := r.cloths[id]
	return curve, ok
}

func (r *referenceSet) baselineFor(sensor string) (baselineCurve, bool) {
	curve, ok := r.baselines[sensor]
	return curve, ok
}

func (e *Exporter) resolveReferences(table *inventory.Table, samples []inventory.Record) *referenceSet {
	refs := &referenceSet{
		clothPick: make(map[string]string),
		cloths:    make(map[string]clothCurve),
		baselines: make(map[string]baselineCurve),
	}

	sensors := make(map[string]struct{})
	for _, rec := range samples {
		sensors[rec.Sensor] = struct{}{}

		cloth, ok := table.ClothFor(rec.Sensor, rec.Timepoint)
		if !ok {
			continue
		}
		refs.clothPick[rec.SampleID] = cloth.SampleID
		if _, loaded := refs.cloths[cloth.SampleID]; !loaded {
			refs.cloths[cloth.SampleID] = e.loadCloth(cloth)
		}
	}

	for sensor := range sensors {
		name := BaselineFileName(sensor)
		curve, err := ReadBaselineCurve(filepath.Join(e.cfg.Paths.ProcessedDir, name))
		if err != nil {
			if !os.IsNotExist(err) {
				e.logger.Warn("baseline curve unreadable",
					logging.String(logging.FieldSensor, sensor),
					logging.Error(err))
			}
			continue
		}
		// A curve with NaN holes would poison every ratio it touches, so
		// it is treated the same as a missing one.
		if !spectral.AllFinite(curve.Values) {
			e.logger.Warn("baseline curve has non-finite values",
				logging.String(logging.FieldSensor, sensor),
				logging.String("file", name))
			continue
		}
		refs.baselines[sensor] = baselineCurve{file: name, values: curve.Values}
	}
	return refs
}

func (e *Exporter) loadCloth(rec inventory.Record) clothCurve {
	curve := clothCurve{file: rec.FileName}

	hdr, err := envi.ReadHeader(rec.HdrPath)
	if err == nil {
		err = hdr.Validate()
	}
	if err != nil {
		curve.err = fmt.Errorf("cloth %s: %w", rec.SampleID, err)
		return curve
	}
	values, err := envi.MeanSpectrum(rec.CubePath, hdr, envi.CenteredWindow(hdr, e.cfg.Normalization.ROIFraction))
	if err != nil {
		curve.err = fmt.Errorf("cloth %s: %w", rec.SampleID, err)
		return curve
	}
	curve.values = values
	return curve
}

func regionLabel(fraction float64) string {
	if fraction >= 1 {
		return "full"
	}
	return fmt.Sprintf("center:%.2f", fraction)
}
